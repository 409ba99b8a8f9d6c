// Package models defines the records persisted by the blog: users, posts,
// comments and login sessions. Relations are plain foreign-key ids.
package models
