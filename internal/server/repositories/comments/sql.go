// Package comments stores reader comments attached to posts.
package comments

import (
	"context"
	"fmt"

	"github.com/inkwell-blog/inkwell/internal/dbx"
	"github.com/inkwell-blog/inkwell/internal/server/models"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, d dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: d}
}

func (r *SQLRepository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	query := r.dialect.Rebind(
		`INSERT INTO comments (text, author_id, post_id)
		 VALUES (?, ?, ?)
		 RETURNING id`)

	if err := r.db.QueryRowContext(ctx, query, c.Text, c.AuthorID, c.PostID).Scan(&c.ID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// ListByPost returns the comments of one post, oldest first.
func (r *SQLRepository) ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error) {
	query := r.dialect.Rebind(
		`SELECT id, text, author_id, post_id FROM comments
		 WHERE post_id = ?
		 ORDER BY id`)

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Comment
	for rows.Next() {
		c := &models.Comment{}
		if err := rows.Scan(&c.ID, &c.Text, &c.AuthorID, &c.PostID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

// DeleteByPost removes all comments of a post and reports how many went.
func (r *SQLRepository) DeleteByPost(ctx context.Context, postID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM comments WHERE post_id = ?`), postID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
