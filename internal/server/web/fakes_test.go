package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/inkwell-blog/inkwell/internal/common"
	"github.com/inkwell-blog/inkwell/internal/logging"
	"github.com/inkwell-blog/inkwell/internal/server/models"
	"github.com/inkwell-blog/inkwell/internal/server/policy"
	"github.com/inkwell-blog/inkwell/internal/server/services"
)

var (
	adminActor  = policy.Actor{UserID: 1, Name: "Admin", Email: "admin@example.com", Authenticated: true}
	authorActor = policy.Actor{UserID: 2, Name: "Author", Email: "author@example.com", Authenticated: true}
	readerActor = policy.Actor{UserID: 3, Name: "Reader", Email: "reader@example.com", Authenticated: true}
)

type fakeIdentity struct {
	actors map[string]policy.Actor

	registerErr error
	authErr     error
	ended       []string
}

func (f *fakeIdentity) Register(ctx context.Context, email, password, name string) (*services.IssuedSession, error) {
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return issued(4, "new-token"), nil
}

func (f *fakeIdentity) Authenticate(ctx context.Context, email, password string) (*services.IssuedSession, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return issued(3, "reader-token"), nil
}

func (f *fakeIdentity) CurrentActor(ctx context.Context, token string) policy.Actor {
	if a, ok := f.actors[token]; ok {
		return a
	}
	return policy.Anonymous
}

func (f *fakeIdentity) EndSession(ctx context.Context, token string) error {
	f.ended = append(f.ended, token)
	return nil
}

func issued(userID int64, token string) *services.IssuedSession {
	return &services.IssuedSession{
		Session: &models.Session{ID: "sid", UserID: userID, Expires: time.Now().Add(time.Hour)},
		User:    &models.User{ID: userID},
		Token:   token,
	}
}

type fakeContent struct {
	posts    map[int64]*models.Post
	comments []*models.Comment

	createErr error
	updateErr error
	deleteErr error

	created []models.PostFields
	updated []models.PostFields
	deleted []int64
}

func newFakeContent() *fakeContent {
	return &fakeContent{posts: map[int64]*models.Post{
		1: {ID: 1, Title: "First Post", Subtitle: "Sub", Date: "May 01, 2024", Body: "<p>Hello <b>world</b></p>", ImgURL: "http://img/1.jpg", AuthorID: 2},
	}}
}

func (f *fakeContent) ListPosts(ctx context.Context) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range f.posts {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeContent) Authors(ctx context.Context, posts []*models.Post) (map[int64]*models.User, error) {
	return map[int64]*models.User{2: {ID: 2, Name: "Author"}}, nil
}

func (f *fakeContent) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	if p, ok := f.posts[id]; ok {
		return p, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeContent) GetPostView(ctx context.Context, id int64) (*services.PostView, error) {
	p, err := f.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	v := &services.PostView{Post: p, Author: &models.User{ID: p.AuthorID, Name: "Author"}}
	for _, c := range f.comments {
		v.Comments = append(v.Comments, services.CommentView{Comment: c, AuthorName: "Reader", AvatarURL: "http://avatar"})
	}
	return v, nil
}

func (f *fakeContent) CreatePost(ctx context.Context, actor policy.Actor, fields models.PostFields) (*models.Post, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, fields)
	return &models.Post{ID: 2, Title: fields.Title}, nil
}

func (f *fakeContent) UpdatePost(ctx context.Context, actor policy.Actor, id int64, fields models.PostFields) (*models.Post, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updated = append(f.updated, fields)
	return f.posts[id], nil
}

func (f *fakeContent) DeletePost(ctx context.Context, actor policy.Actor, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.posts[id]; !ok {
		return common.ErrorNotFound
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeContent) AddComment(ctx context.Context, actor policy.Actor, postID int64, text string) (*models.Comment, error) {
	if _, ok := f.posts[postID]; !ok {
		return nil, common.ErrorNotFound
	}
	c := &models.Comment{ID: int64(len(f.comments) + 1), Text: text, AuthorID: actor.UserID, PostID: postID}
	f.comments = append(f.comments, c)
	return c, nil
}

type fakeContact struct {
	err  error
	sent []services.ContactForm
}

func (f *fakeContact) SubmitContact(ctx context.Context, form services.ContactForm) error {
	if f.err != nil {
		return f.err
	}
	if missing := form.Missing(); len(missing) > 0 {
		return &common.IncompleteError{Missing: missing}
	}
	f.sent = append(f.sent, form)
	return nil
}

type fakeMedia struct {
	policy policy.Policy
	err    error
}

func (f *fakeMedia) PresignCoverUpload(ctx context.Context, actor policy.Actor, contentType string) (*services.CoverUpload, error) {
	if !f.policy.CanCreatePost(actor) {
		return nil, common.ErrForbidden
	}
	if f.err != nil {
		return nil, f.err
	}
	return &services.CoverUpload{Key: "covers/k.png", UploadURL: "http://s3/put", PublicURL: "http://cdn/covers/k.png"}, nil
}

type harness struct {
	srv      *Server
	handler  http.Handler
	identity *fakeIdentity
	content  *fakeContent
	contact  *fakeContact
	media    *fakeMedia
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	p := policy.New(1)
	h := &harness{
		identity: &fakeIdentity{actors: map[string]policy.Actor{
			"admin-token":  adminActor,
			"author-token": authorActor,
			"reader-token": readerActor,
		}},
		content: newFakeContent(),
		contact: &fakeContact{},
		media:   &fakeMedia{policy: p},
	}
	h.srv = NewServer(Deps{
		Identity: h.identity,
		Content:  h.content,
		Contact:  h.contact,
		Media:    h.media,
		Policy:   p,
		Logger:   logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	})
	h.handler = h.srv.Routes()
	return h
}

// do sends a request, optionally as the holder of token, with form values
// encoded as the body.
func (h *harness) do(method, path, token string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: token})
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
