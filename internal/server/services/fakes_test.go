package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/inkwell-blog/inkwell/internal/common"
	"github.com/inkwell-blog/inkwell/internal/dbx"
	"github.com/inkwell-blog/inkwell/internal/server/models"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/comments"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/posts"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/sessions"
	"github.com/inkwell-blog/inkwell/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// memStore is an in-memory stand-in for all repositories. Transactions
// are not simulated; sqlmock covers Begin/Commit/Rollback.
type memStore struct {
	mu sync.Mutex

	users    map[int64]*models.User
	posts    map[int64]*models.Post
	comments map[int64]*models.Comment
	sessions map[string]*models.Session

	nextUser, nextPost, nextComment int64

	// failing operations, keyed by "repo.Method"
	fail map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*models.User{},
		posts:    map[int64]*models.Post{},
		comments: map[int64]*models.Comment{},
		sessions: map[string]*models.Session{},
		fail:     map[string]error{},
	}
}

func (m *memStore) failing(op string) error {
	return m.fail[op]
}

func (m *memStore) addUser(email, name string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUser++
	u := &models.User{ID: m.nextUser, Email: email, Name: name, Password: "x"}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addPost(title string, authorID int64) *models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPost++
	p := &models.Post{ID: m.nextPost, Title: title, Subtitle: "sub", Date: "May 01, 2024", Body: "body", ImgURL: "http://img", AuthorID: authorID}
	m.posts[p.ID] = p
	return p
}

func (m *memStore) addComment(text string, authorID, postID int64) *models.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextComment++
	c := &models.Comment{ID: m.nextComment, Text: text, AuthorID: authorID, PostID: postID}
	m.comments[c.ID] = c
	return c
}

type fakeRepoManager struct{ s *memStore }

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository            { return &memUsers{f.s} }
func (f *fakeRepoManager) Posts(dbx.DBTX) posts.Repository            { return &memPosts{f.s} }
func (f *fakeRepoManager) Comments(dbx.DBTX) comments.Repository      { return &memComments{f.s} }
func (f *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository      { return &memSessions{f.s} }

// --- users ---

type memUsers struct{ s *memStore }

func (r *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if err := r.s.failing("users.Create"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return nil, common.ErrDuplicateEmail
		}
	}
	r.s.nextUser++
	u.ID = r.s.nextUser
	r.s.users[u.ID] = u
	return u, nil
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := r.s.failing("users.GetByEmail"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if err := r.s.failing("users.GetByID"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	if err := r.s.failing("users.GetByIDs"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[int64]*models.User{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (r *memUsers) List(ctx context.Context) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- posts ---

type memPosts struct{ s *memStore }

func (r *memPosts) List(ctx context.Context) ([]*models.Post, error) {
	if err := r.s.failing("posts.List"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Post, 0, len(r.s.posts))
	for _, p := range r.s.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memPosts) Get(ctx context.Context, id int64) (*models.Post, error) {
	if err := r.s.failing("posts.Get"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPosts) titleTaken(title string, except int64) bool {
	for _, p := range r.s.posts {
		if p.Title == title && p.ID != except {
			return true
		}
	}
	return false
}

func (r *memPosts) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	if err := r.s.failing("posts.Create"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.titleTaken(p.Title, 0) {
		return nil, common.ErrDuplicateTitle
	}
	r.s.nextPost++
	p.ID = r.s.nextPost
	cp := *p
	r.s.posts[p.ID] = &cp
	return p, nil
}

func (r *memPosts) Update(ctx context.Context, id int64, f models.PostFields) error {
	if err := r.s.failing("posts.Update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[id]
	if !ok {
		return common.ErrorNotFound
	}
	if r.titleTaken(f.Title, id) {
		return common.ErrDuplicateTitle
	}
	p.Title, p.Subtitle, p.Body, p.ImgURL = f.Title, f.Subtitle, f.Body, f.ImgURL
	return nil
}

func (r *memPosts) Delete(ctx context.Context, id int64) error {
	if err := r.s.failing("posts.Delete"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.posts, id)
	return nil
}

// --- comments ---

type memComments struct{ s *memStore }

func (r *memComments) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	if err := r.s.failing("comments.Create"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextComment++
	c.ID = r.s.nextComment
	r.s.comments[c.ID] = c
	return c, nil
}

func (r *memComments) ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error) {
	if err := r.s.failing("comments.ListByPost"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Comment
	for _, c := range r.s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memComments) DeleteByPost(ctx context.Context, postID int64) (int64, error) {
	if err := r.s.failing("comments.DeleteByPost"); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, c := range r.s.comments {
		if c.PostID == postID {
			delete(r.s.comments, id)
			n++
		}
	}
	return n, nil
}

// --- sessions ---

type memSessions struct{ s *memStore }

func (r *memSessions) Create(ctx context.Context, sess *models.Session) error {
	if err := r.s.failing("sessions.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions[sess.ID] = sess
	return nil
}

func (r *memSessions) Get(ctx context.Context, id string) (*models.Session, error) {
	if err := r.s.failing("sessions.Get"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sess, ok := r.s.sessions[id]; ok {
		return sess, nil
	}
	return nil, common.ErrorNotFound
}

func (r *memSessions) Delete(ctx context.Context, id string) error {
	if err := r.s.failing("sessions.Delete"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.sessions, id)
	return nil
}

func (r *memSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := r.s.failing("sessions.DeleteExpired"); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, sess := range r.s.sessions {
		if !sess.Expires.After(now) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}
