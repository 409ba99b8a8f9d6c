// Package services contains the blog's business logic. IdentityService
// registers and authenticates users and keeps their server-side sessions.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-blog/inkwell/internal/common"
	"github.com/inkwell-blog/inkwell/internal/dbx"
	"github.com/inkwell-blog/inkwell/internal/server/auth"
	"github.com/inkwell-blog/inkwell/internal/server/models"
	"github.com/inkwell-blog/inkwell/internal/server/passwords"
	"github.com/inkwell-blog/inkwell/internal/server/policy"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/repomanager"
)

// IssuedSession is a freshly created session together with the signed
// token that goes into the cookie.
type IssuedSession struct {
	Session *models.Session
	User    *models.User
	Token   string
}

type IdentityService struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	hasher          passwords.Hasher
	secret          []byte
	sessionDuration time.Duration
	now             func() time.Time
}

func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, secret []byte, sessionDuration time.Duration) *IdentityService {
	return &IdentityService{
		db:              db,
		repomanager:     m,
		secret:          secret,
		sessionDuration: sessionDuration,
		now:             time.Now,
	}
}

// Register creates an account and logs it in. An email that is already
// taken yields common.ErrDuplicateEmail and nothing is written.
func (s *IdentityService) Register(ctx context.Context, email, password, name string) (*IssuedSession, error) {
	_, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrDuplicateEmail
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	var issued *IssuedSession
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).Create(ctx, &models.User{Email: email, Password: hash, Name: name})
		if err != nil {
			if errors.Is(err, common.ErrDuplicateEmail) {
				return err
			}
			return fmt.Errorf("error creating user: %w", err)
		}

		issued, err = s.issueSession(ctx, tx, u)
		return err
	})
	if err != nil {
		return nil, err
	}

	return issued, nil
}

// Authenticate checks credentials and opens a session. An unknown email
// and a wrong password are reported as different errors.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*IssuedSession, error) {
	u, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnknownEmail
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	ok, err := s.hasher.Verify(u.Password, password)
	if err != nil {
		return nil, fmt.Errorf("error checking password: %w", err)
	}
	if !ok {
		return nil, common.ErrBadCredential
	}

	return s.issueSession(ctx, s.db, u)
}

// CurrentActor resolves a cookie token to the user behind it. Anything
// that does not lead to a live session and an existing user yields the
// anonymous actor.
func (s *IdentityService) CurrentActor(ctx context.Context, token string) policy.Actor {
	if token == "" {
		return policy.Anonymous
	}

	sessionID, err := auth.GetSessionIDFromToken(token, s.secret)
	if err != nil {
		return policy.Anonymous
	}

	sess, err := s.repomanager.Sessions(s.db).Get(ctx, sessionID)
	if err != nil || !sess.Expires.After(s.now()) {
		return policy.Anonymous
	}

	u, err := s.repomanager.Users(s.db).GetByID(ctx, sess.UserID)
	if err != nil {
		return policy.Anonymous
	}

	return policy.AuthenticatedActor(u)
}

// EndSession logs out. Ending an unknown, expired or already ended
// session is a no-op.
func (s *IdentityService) EndSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	sessionID, err := auth.GetSessionIDFromToken(token, s.secret)
	if err != nil {
		return nil
	}

	if err := s.repomanager.Sessions(s.db).Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// CleanupExpiredSessions purges sessions past their expiry and returns
// how many were removed.
func (s *IdentityService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.repomanager.Sessions(s.db).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("error purging sessions: %w", err)
	}
	return n, nil
}

func (s *IdentityService) issueSession(ctx context.Context, db dbx.DBTX, u *models.User) (*IssuedSession, error) {
	now := s.now().UTC().Truncate(time.Second)
	sess := &models.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Expires:   now.Add(s.sessionDuration),
		CreatedAt: now,
	}

	if err := s.repomanager.Sessions(db).Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	token, err := auth.GenerateToken(sess.ID, s.secret, s.sessionDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &IssuedSession{Session: sess, User: u, Token: token}, nil
}
