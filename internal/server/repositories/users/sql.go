// Package users stores registered accounts.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/inkwell-blog/inkwell/internal/common"
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

// Create inserts user and fills in its id and creation time. A taken email
// yields common.ErrDuplicateEmail.
func (r *SQLRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := r.dialect.Rebind(
		`INSERT INTO users (email, password, name, created_at)
		 VALUES (?, ?, ?, ?)
		 RETURNING id`)

	created := time.Now().UTC().Truncate(time.Second)

	err := r.db.QueryRowContext(ctx, query,
		user.Email, user.Password, user.Name, created.Unix()).Scan(&user.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.CreatedAt = created
	return user, nil
}

func (r *SQLRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := r.dialect.Rebind(
		`SELECT id, email, password, name, created_at FROM users
		 WHERE email = ?`)

	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := r.dialect.Rebind(
		`SELECT id, email, password, name, created_at FROM users
		 WHERE id = ?`)

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByIDs loads several users at once, keyed by id. Unknown ids are
// simply absent from the result.
func (r *SQLRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	out := make(map[int64]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(
		`SELECT id, email, password, name, created_at FROM users
		 WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, password, name, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLRepository) scanRow(s scanner) (*models.User, error) {
	u := &models.User{}
	var created int64
	if err := s.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &created); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

func (r *SQLRepository) scanOne(row *sql.Row) (*models.User, error) {
	u, err := r.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	return u, err
}
