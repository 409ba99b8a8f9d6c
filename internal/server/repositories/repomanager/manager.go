package repomanager

import (
	"context"
	"database/sql"

	"github.com/inkwell-blog/inkwell/internal/dbx"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/comments"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/posts"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/sessions"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Posts(db dbx.DBTX) posts.Repository
	Comments(db dbx.DBTX) comments.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
