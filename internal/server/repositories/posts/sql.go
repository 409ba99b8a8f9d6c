// Package posts stores blog articles.
package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/inkwell-blog/inkwell/internal/common"
	"github.com/inkwell-blog/inkwell/internal/dbx"
	"github.com/inkwell-blog/inkwell/internal/server/models"
)

const selectPost = `SELECT id, title, subtitle, date, body, img_url, author_id FROM blog_posts`

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, d dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: d}
}

// List returns every post in insertion order.
func (r *SQLRepository) List(ctx context.Context) ([]*models.Post, error) {
	rows, err := r.db.QueryContext(ctx, selectPost+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

func (r *SQLRepository) Get(ctx context.Context, id int64) (*models.Post, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(selectPost+` WHERE id = ?`), id)

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	return p, err
}

// Create inserts post and sets its id. A title already in use yields
// common.ErrDuplicateTitle.
func (r *SQLRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query := r.dialect.Rebind(
		`INSERT INTO blog_posts (title, subtitle, date, body, img_url, author_id)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`)

	err := r.db.QueryRowContext(ctx, query,
		post.Title, post.Subtitle, post.Date, post.Body, post.ImgURL, post.AuthorID).Scan(&post.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrDuplicateTitle
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return post, nil
}

// Update rewrites the editable fields. Date and author never change.
func (r *SQLRepository) Update(ctx context.Context, id int64, f models.PostFields) error {
	query := r.dialect.Rebind(
		`UPDATE blog_posts SET title = ?, subtitle = ?, body = ?, img_url = ?
		 WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, f.Title, f.Subtitle, f.Body, f.ImgURL, id)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrDuplicateTitle
		}
		return fmt.Errorf("db error: %w", err)
	}

	return expectOneRow(res)
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM blog_posts WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*models.Post, error) {
	p := &models.Post{}
	if err := s.Scan(&p.ID, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.ImgURL, &p.AuthorID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}
