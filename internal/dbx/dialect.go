package dbx

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Dialect describes how to talk to one of the supported SQL backends.
// Queries are written with '?' placeholders and rebound per dialect.
type Dialect struct {
	// Name is the database/sql driver name.
	Name string
	// Goose is the goose dialect used for migrations.
	Goose string
	// MigrationsDir is the embedded migrations directory for this backend.
	MigrationsDir string

	bind int
}

var (
	Postgres = Dialect{Name: "pgx", Goose: "postgres", MigrationsDir: "postgres", bind: sqlx.DOLLAR}
	SQLite   = Dialect{Name: "sqlite", Goose: "sqlite3", MigrationsDir: "sqlite", bind: sqlx.QUESTION}
)

// Rebind converts a '?' placeholder query to the dialect's bind style.
func (d Dialect) Rebind(query string) string {
	return sqlx.Rebind(d.bind, query)
}

// ParseDSN picks the dialect for dsn and returns the driver-specific
// connection string.
//
// Recognised forms:
//
//	postgres://... | postgresql://...   -> pgx
//	sqlite:///relative.db               -> sqlite, file relative.db
//	sqlite:////abs/path.db              -> sqlite, file /abs/path.db
//	file:... | any other path           -> sqlite
//
// SQLite connections always enable foreign key enforcement.
func ParseDSN(dsn string) (Dialect, string, error) {
	switch {
	case dsn == "":
		return Dialect{}, "", errors.New("empty database DSN")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Postgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return SQLite, withForeignKeys(strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite://"), "/")), nil
	default:
		return SQLite, withForeignKeys(dsn), nil
	}
}

func withForeignKeys(path string) string {
	if strings.Contains(path, "foreign_keys") {
		return path
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)"
}

// Open opens and pings a database for dsn.
func Open(dsn string) (*sql.DB, Dialect, error) {
	d, conn, err := ParseDSN(dsn)
	if err != nil {
		return nil, Dialect{}, err
	}

	db, err := sql.Open(d.Name, conn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("db open error: %w", err)
	}

	if d == SQLite {
		// sqlite serializes writers; a single connection keeps in-memory
		// databases and pragmas consistent across the pool.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, Dialect{}, fmt.Errorf("db ping error: %w", err)
	}

	return db, d, nil
}

// IsUniqueViolation reports whether err was caused by a UNIQUE constraint
// in either supported backend.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}
