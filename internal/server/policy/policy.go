// Package policy decides who may do what with posts and comments. It has
// no side effects and never touches storage.
package policy

import "github.com/inkwell-blog/inkwell/internal/server/models"

// Actor is whoever issued a request. The zero value is an anonymous visitor.
type Actor struct {
	UserID        int64
	Name          string
	Email         string
	Authenticated bool
}

var Anonymous = Actor{}

func AuthenticatedActor(u *models.User) Actor {
	return Actor{UserID: u.ID, Name: u.Name, Email: u.Email, Authenticated: true}
}

// Policy holds the one piece of configuration authorization depends on:
// which user id is the administrator.
type Policy struct {
	AdminID int64
}

func New(adminID int64) Policy {
	return Policy{AdminID: adminID}
}

func (p Policy) IsAdmin(a Actor) bool {
	return a.Authenticated && a.UserID == p.AdminID
}

func (p Policy) CanCreatePost(a Actor) bool {
	return p.IsAdmin(a)
}

func (p Policy) CanDeletePost(a Actor, _ *models.Post) bool {
	return p.IsAdmin(a)
}

// CanEditPost allows the admin and the post's own author.
func (p Policy) CanEditPost(a Actor, post *models.Post) bool {
	if p.IsAdmin(a) {
		return true
	}
	return a.Authenticated && post != nil && post.AuthorID == a.UserID
}

func (p Policy) CanComment(a Actor) bool {
	return a.Authenticated
}
