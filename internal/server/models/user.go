package models

import "time"

// User is a registered account. Password holds a self-describing hash,
// never the raw secret.
type User struct {
	ID        int64     `db:"id"`
	Email     string    `db:"email"`
	Password  string    `db:"password"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}
