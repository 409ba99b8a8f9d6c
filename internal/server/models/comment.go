package models

type Comment struct {
	ID       int64  `db:"id"`
	Text     string `db:"text"`
	AuthorID int64  `db:"author_id"`
	PostID   int64  `db:"post_id"`
}
