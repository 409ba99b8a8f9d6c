package web

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/inkwell-blog/inkwell/internal/server/policy"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticRoot embed.FS

var staticFS, _ = fs.Sub(staticRoot, "static")

var pages = []string{
	"index.html",
	"register.html",
	"login.html",
	"post.html",
	"make-post.html",
	"about.html",
	"contact.html",
	"error.html",
}

// Renderer executes the embedded page templates. Every page is parsed
// together with layout.html and rendered through its "layout" template.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() *Renderer {
	funcs := template.FuncMap{
		// Post bodies come from the rich text editor and are stored as HTML.
		"safeHTML": func(s string) template.HTML { return template.HTML(s) },
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, p := range pages {
		r.pages[p] = template.Must(template.New(p).Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+p))
	}
	return r
}

// Page is the data every template receives.
type Page struct {
	Actor   policy.Actor
	IsAdmin bool
	Flashes []string
	Year    int
	Data    any
}

func (r *Renderer) Render(w http.ResponseWriter, status int, name string, p Page) error {
	t, ok := r.pages[name]
	if !ok {
		return &missingTemplateError{name: name}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

type missingTemplateError struct{ name string }

func (e *missingTemplateError) Error() string { return "web: no template " + e.name }

// render writes a page, falling back to a bare 500 if the template fails.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	actor := ActorFrom(r.Context())
	p := Page{
		Actor:   actor,
		IsAdmin: s.Policy.IsAdmin(actor),
		Flashes: popFlashes(w, r),
		Year:    time.Now().Year(),
		Data:    data,
	}

	if err := s.renderer.Render(w, status, name, p); err != nil {
		s.Logger.Error(r.Context(), "render failed", "template", name, "error", err, "request_id", RequestIDFrom(r.Context()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type errorPage struct {
	Status  int
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int) {
	s.render(w, r, status, "error.html", errorPage{Status: status, Message: http.StatusText(status)})
}

const flashCookieName = "inkwell_flash"

// flash queues a one-time message shown on the next rendered page.
func flash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func popFlashes(w http.ResponseWriter, r *http.Request) []string {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}

	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Value: "", Path: "/", MaxAge: -1})

	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	return []string{msg}
}
