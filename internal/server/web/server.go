// Package web is the blog's HTTP surface: server-rendered pages, a small
// JSON API for cover uploads, health and metrics endpoints.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/inkwell-blog/inkwell/internal/logging"
	"github.com/inkwell-blog/inkwell/internal/server/metrics"
	"github.com/inkwell-blog/inkwell/internal/server/models"
	"github.com/inkwell-blog/inkwell/internal/server/policy"
	"github.com/inkwell-blog/inkwell/internal/server/services"
)

type Identity interface {
	Register(ctx context.Context, email, password, name string) (*services.IssuedSession, error)
	Authenticate(ctx context.Context, email, password string) (*services.IssuedSession, error)
	CurrentActor(ctx context.Context, token string) policy.Actor
	EndSession(ctx context.Context, token string) error
}

type Content interface {
	ListPosts(ctx context.Context) ([]*models.Post, error)
	Authors(ctx context.Context, posts []*models.Post) (map[int64]*models.User, error)
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	GetPostView(ctx context.Context, id int64) (*services.PostView, error)
	CreatePost(ctx context.Context, actor policy.Actor, f models.PostFields) (*models.Post, error)
	UpdatePost(ctx context.Context, actor policy.Actor, id int64, f models.PostFields) (*models.Post, error)
	DeletePost(ctx context.Context, actor policy.Actor, id int64) error
	AddComment(ctx context.Context, actor policy.Actor, postID int64, text string) (*models.Comment, error)
}

type Contact interface {
	SubmitContact(ctx context.Context, form services.ContactForm) error
}

type Media interface {
	PresignCoverUpload(ctx context.Context, actor policy.Actor, contentType string) (*services.CoverUpload, error)
}

// Deps are the collaborators a Server needs. Health may be nil.
type Deps struct {
	Identity Identity
	Content  Content
	Contact  Contact
	Media    Media
	Policy   policy.Policy
	Logger   logging.Logger
	Metrics  *metrics.Metrics
	Health   func(ctx context.Context) error

	RateLimit float64
	RateBurst int
}

type Server struct {
	Deps

	renderer *Renderer
	validate *validator.Validate
	limiter  *RateLimiter
}

func NewServer(d Deps) *Server {
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	return &Server{
		Deps:     d,
		renderer: NewRenderer(),
		validate: newValidator(),
		limiter:  NewRateLimiter(d.RateLimit, d.RateBurst, d.Logger),
	}
}

// Limiter is the rate limiter guarding the form posts.
func (s *Server) Limiter() *RateLimiter { return s.limiter }

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)
	r.Use(s.recordMetrics)
	r.Use(s.resolveActor)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	r.Get("/", s.handleIndex)
	r.Get("/about", s.handleAbout)
	r.Get("/post/{postID}", s.handleShowPost)

	r.Get("/register", s.handleRegisterForm)
	r.Get("/login", s.handleLoginForm)
	r.Get("/contact", s.handleContactForm)

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Handler)
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/contact", s.handleContact)
		r.Post("/post/{postID}", s.handleAddComment)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/logout", s.handleLogout)
		r.Get("/edit-post/{postID}", s.handleEditPostForm)
		r.Post("/edit-post/{postID}", s.handleEditPost)
		r.Post("/api/covers", s.handlePresignCover)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/new-post", s.handleNewPostForm)
			r.Post("/new-post", s.handleNewPost)
			r.Get("/delete/{postID}", s.handleDeletePost)
			r.Post("/delete/{postID}", s.handleDeletePost)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusMethodNotAllowed)
	})

	return r
}

// NewHTTPServer wraps handler with the timeouts the blog runs with.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
