package models

import "time"

// Session is a server-side login. The cookie only carries a signed
// reference to ID; deleting the row logs the user out.
type Session struct {
	ID        string
	UserID    int64
	Expires   time.Time
	CreatedAt time.Time
}
