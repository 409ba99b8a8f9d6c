// Package repomanager wires repository constructors for one SQL dialect
// together with the embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/inkwell-blog/inkwell/internal/dbx"
	"github.com/inkwell-blog/inkwell/internal/server/migrations"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/comments"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/posts"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/sessions"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/users"
)

// SQLRepositoryManager vends repositories that speak the given dialect.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

func (m *SQLRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Posts(db dbx.DBTX) posts.Repository {
	return posts.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Comments(db dbx.DBTX) comments.Repository {
	return comments.NewSQLRepository(db, m.dialect)
}

func (m *SQLRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLRepository(db, m.dialect)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations for the manager's dialect.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect.Goose); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, m.dialect.MigrationsDir); err != nil {
		return err
	}
	return nil
}

func NewSQLRepositoryManager(d dbx.Dialect) RepositoryManager {
	return &SQLRepositoryManager{dialect: d}
}
