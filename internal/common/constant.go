// Package common contains shared constants and sentinel errors used across
// inkwell components.
package common

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "inkwell_session"

// PostDateLayout is the display format stamped on posts at creation time.
const PostDateLayout = "January 02, 2006"
