package models

// Post is a blog article. Date is a display string stamped at creation
// time, not a sortable timestamp.
type Post struct {
	ID       int64  `db:"id"`
	Title    string `db:"title"`
	Subtitle string `db:"subtitle"`
	Date     string `db:"date"`
	Body     string `db:"body"`
	ImgURL   string `db:"img_url"`
	AuthorID int64  `db:"author_id"`
}

// PostFields are the editable parts of a post.
type PostFields struct {
	Title    string
	Subtitle string
	Body     string
	ImgURL   string
}
