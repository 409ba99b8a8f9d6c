// Package ctl implements the inkwellctl administration commands.
package ctl

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/inkwell-blog/inkwell/internal/common"
	"github.com/inkwell-blog/inkwell/internal/netx"
	"github.com/inkwell-blog/inkwell/internal/server/policy"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/repomanager"
	"github.com/inkwell-blog/inkwell/internal/server/services"
)

// Commands lists the supported subcommands.
var Commands = []string{"migrate", "register", "users", "cover"}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
)

// max size of an uploaded cover image
const maxCoverBytes = 10 << 20

// Registrar is the part of the identity service the register command uses.
type Registrar interface {
	Register(ctx context.Context, email, password, name string) (*services.IssuedSession, error)
	EndSession(ctx context.Context, token string) error
}

// Presigner hands out cover image upload URLs.
type Presigner interface {
	PresignCoverUpload(ctx context.Context, actor policy.Actor, contentType string) (*services.CoverUpload, error)
}

type App struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	identity    Registrar
	media       Presigner
	adminID     int64
	httpClient  *http.Client

	in    *bufio.Reader
	out   io.Writer
	ttyFd int
}

// NewApp builds the command runner. Prompts read from in and write to out;
// passwords are read from the terminal behind ttyFd.
func NewApp(db *sql.DB, m repomanager.RepositoryManager, identity Registrar, media Presigner, adminID int64, in io.Reader, out io.Writer, ttyFd int) *App {
	return &App{
		db:          db,
		repomanager: m,
		identity:    identity,
		media:       media,
		adminID:     adminID,
		httpClient:  http.DefaultClient,
		in:          bufio.NewReader(in),
		out:         out,
		ttyFd:       ttyFd,
	}
}

func (a *App) Run(ctx context.Context, cmd string, args ...string) error {
	switch cmd {
	case "migrate":
		return a.Migrate(ctx)
	case "register":
		return a.Register(ctx)
	case "users":
		return a.Users(ctx)
	case "cover":
		if len(args) != 1 {
			return fmt.Errorf("%w: cover <image file>", ErrUsage)
		}
		return a.Cover(ctx, args[0])
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
}

func (a *App) Migrate(ctx context.Context) error {
	if err := a.repomanager.RunMigrations(ctx, a.db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}
	fmt.Fprintln(a.out, "Migrations applied.")
	return nil
}

// Register prompts for an email, a display name and a hidden password and
// creates the account. The login session this opens is ended straight away.
func (a *App) Register(ctx context.Context) error {
	email, err := getText(a.in, "Enter email", a.out)
	if err != nil {
		return err
	}
	name, err := getText(a.in, "Enter name", a.out)
	if err != nil {
		return err
	}
	if email == "" || name == "" {
		return errors.New("email and name are required")
	}

	pw, err := getPassword(a.ttyFd, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	if len(pw) == 0 {
		return errors.New("password is required")
	}

	issued, err := a.identity.Register(ctx, email, string(pw), name)
	if err != nil {
		return err
	}
	if err := a.identity.EndSession(ctx, issued.Token); err != nil {
		return err
	}

	role := ""
	if issued.User.ID == a.adminID {
		role = " (administrator)"
	}
	fmt.Fprintf(a.out, "Registered user %d%s.\n", issued.User.ID, role)
	return nil
}

func (a *App) Users(ctx context.Context) error {
	list, err := a.repomanager.Users(a.db).List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE")
	for _, u := range list {
		role := "user"
		if u.ID == a.adminID {
			role = "admin"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, role)
	}
	return tw.Flush()
}

// Cover uploads an image file as a post cover on behalf of the
// administrator and prints the URL to use as the post's image.
func (a *App) Cover(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) > maxCoverBytes {
		return fmt.Errorf("%s is larger than %d bytes", path, maxCoverBytes)
	}

	contentType := http.DetectContentType(data)
	admin := policy.Actor{UserID: a.adminID, Authenticated: true}

	up, err := a.media.PresignCoverUpload(ctx, admin, contentType)
	if err != nil {
		return err
	}
	if err := netx.PutPresigned(ctx, a.httpClient, up.UploadURL, contentType, data); err != nil {
		return err
	}

	fmt.Fprintln(a.out, up.PublicURL)
	return nil
}
