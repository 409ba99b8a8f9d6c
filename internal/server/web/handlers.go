package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inkwell-blog/inkwell/internal/common"
	"github.com/inkwell-blog/inkwell/internal/server/models"
	"github.com/inkwell-blog/inkwell/internal/server/services"
)

type indexData struct {
	Posts   []*models.Post
	Authors map[int64]*models.User
}

type authData struct {
	Form   any
	Errors FieldErrors
	Error  string
}

type postData struct {
	View    *services.PostView
	CanEdit bool
	Form    CommentForm
	Errors  FieldErrors
}

type postFormData struct {
	Form    PostForm
	Errors  FieldErrors
	Editing bool
	Action  string
}

type contactData struct {
	Form    ContactForm
	Missing map[string]bool
	Sent    bool
	Failed  bool
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	posts, err := s.Content.ListPosts(ctx)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	authors, err := s.Content.Authors(ctx, posts)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "index.html", indexData{Posts: posts, Authors: authors})
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "about.html", nil)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Health != nil {
		if err := s.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// --- identity ---

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", authData{Form: RegisterForm{}})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form RegisterForm
	if err := bindForm(r, &form); err != nil {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}

	if fe, err := s.check(form); err != nil {
		s.serverError(w, r, err)
		return
	} else if fe != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", authData{Form: form, Errors: fe})
		return
	}

	issued, err := s.Identity.Register(r.Context(), form.Email, form.Password, form.Name)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			flash(w, "user already registered, log in here")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		s.serverError(w, r, err)
		return
	}

	s.Logger.Info(r.Context(), "user registered", "user_id", issued.User.ID)
	setSessionCookie(w, r, issued)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", authData{Form: LoginForm{}})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form LoginForm
	if err := bindForm(r, &form); err != nil {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}

	if fe, err := s.check(form); err != nil {
		s.serverError(w, r, err)
		return
	} else if fe != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "login.html", authData{Form: form, Errors: fe})
		return
	}

	issued, err := s.Identity.Authenticate(r.Context(), form.Email, form.Password)
	switch {
	case errors.Is(err, common.ErrUnknownEmail), errors.Is(err, common.ErrBadCredential):
		s.render(w, r, http.StatusUnauthorized, "login.html", authData{Form: LoginForm{Email: form.Email}, Error: err.Error()})
		return
	case err != nil:
		s.serverError(w, r, err)
		return
	}

	setSessionCookie(w, r, issued)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(common.SessionCookieName); err == nil {
		if err := s.Identity.EndSession(r.Context(), c.Value); err != nil {
			s.serverError(w, r, err)
			return
		}
	}
	clearSessionCookie(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// --- posts ---

func (s *Server) handleShowPost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.postID(w, r)
	if !ok {
		return
	}
	s.showPost(w, r, id, http.StatusOK, CommentForm{}, nil)
}

func (s *Server) showPost(w http.ResponseWriter, r *http.Request, id int64, status int, form CommentForm, fe FieldErrors) {
	view, err := s.Content.GetPostView(r.Context(), id)
	if err != nil {
		s.domainError(w, r, err)
		return
	}

	canEdit := s.Policy.CanEditPost(ActorFrom(r.Context()), view.Post)
	s.render(w, r, status, "post.html", postData{View: view, CanEdit: canEdit, Form: form, Errors: fe})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.postID(w, r)
	if !ok {
		return
	}

	actor := ActorFrom(r.Context())
	if !actor.Authenticated {
		flash(w, "You need to login or register to comment.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	var form CommentForm
	if err := bindForm(r, &form); err != nil {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}
	if fe, err := s.check(form); err != nil {
		s.serverError(w, r, err)
		return
	} else if fe != nil {
		s.showPost(w, r, id, http.StatusUnprocessableEntity, form, fe)
		return
	}

	if _, err := s.Content.AddComment(r.Context(), actor, id, form.Comment); err != nil {
		s.domainError(w, r, err)
		return
	}

	http.Redirect(w, r, "/post/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

func (s *Server) handleNewPostForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "make-post.html", postFormData{Action: "/new-post"})
}

func (s *Server) handleNewPost(w http.ResponseWriter, r *http.Request) {
	var form PostForm
	if err := bindForm(r, &form); err != nil {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}

	data := postFormData{Form: form, Action: "/new-post"}
	if fe, err := s.check(form); err != nil {
		s.serverError(w, r, err)
		return
	} else if fe != nil {
		data.Errors = fe
		s.render(w, r, http.StatusUnprocessableEntity, "make-post.html", data)
		return
	}

	post, err := s.Content.CreatePost(r.Context(), ActorFrom(r.Context()), form.Fields())
	if err != nil {
		if errors.Is(err, common.ErrDuplicateTitle) {
			data.Errors = FieldErrors{"title": "A post with this title already exists."}
			s.render(w, r, http.StatusConflict, "make-post.html", data)
			return
		}
		s.domainError(w, r, err)
		return
	}

	s.Logger.Info(r.Context(), "post created", "post_id", post.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleEditPostForm(w http.ResponseWriter, r *http.Request) {
	id, ok := s.postID(w, r)
	if !ok {
		return
	}

	post, err := s.Content.GetPost(r.Context(), id)
	if err != nil {
		s.domainError(w, r, err)
		return
	}
	if !s.Policy.CanEditPost(ActorFrom(r.Context()), post) {
		s.renderError(w, r, http.StatusForbidden)
		return
	}

	s.render(w, r, http.StatusOK, "make-post.html", postFormData{
		Form:    postFormFrom(post),
		Editing: true,
		Action:  "/edit-post/" + strconv.FormatInt(id, 10),
	})
}

func (s *Server) handleEditPost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.postID(w, r)
	if !ok {
		return
	}

	var form PostForm
	if err := bindForm(r, &form); err != nil {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}

	data := postFormData{Form: form, Editing: true, Action: "/edit-post/" + strconv.FormatInt(id, 10)}
	if fe, err := s.check(form); err != nil {
		s.serverError(w, r, err)
		return
	} else if fe != nil {
		data.Errors = fe
		s.render(w, r, http.StatusUnprocessableEntity, "make-post.html", data)
		return
	}

	if _, err := s.Content.UpdatePost(r.Context(), ActorFrom(r.Context()), id, form.Fields()); err != nil {
		if errors.Is(err, common.ErrDuplicateTitle) {
			data.Errors = FieldErrors{"title": "A post with this title already exists."}
			s.render(w, r, http.StatusConflict, "make-post.html", data)
			return
		}
		s.domainError(w, r, err)
		return
	}

	http.Redirect(w, r, "/post/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := s.postID(w, r)
	if !ok {
		return
	}

	if err := s.Content.DeletePost(r.Context(), ActorFrom(r.Context()), id); err != nil {
		s.domainError(w, r, err)
		return
	}

	s.Logger.Info(r.Context(), "post deleted", "post_id", id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// --- contact ---

func (s *Server) handleContactForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "contact.html", contactData{})
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var form ContactForm
	if err := bindForm(r, &form); err != nil {
		s.renderError(w, r, http.StatusBadRequest)
		return
	}

	data := contactData{Form: form}
	err := s.Contact.SubmitContact(r.Context(), services.ContactForm{
		Name:    form.Name,
		Email:   form.Email,
		Phone:   form.Phone,
		Message: form.Message,
	})

	var incomplete *common.IncompleteError
	switch {
	case errors.As(err, &incomplete):
		s.Metrics.RecordContact("incomplete")
		data.Missing = make(map[string]bool, len(incomplete.Missing))
		for _, f := range incomplete.Missing {
			data.Missing[f] = true
		}
		s.render(w, r, http.StatusUnprocessableEntity, "contact.html", data)
	case errors.Is(err, common.ErrDeliveryFailed):
		s.Metrics.RecordContact("failed")
		s.Logger.Warn(r.Context(), "contact delivery failed", "error", err)
		data.Failed = true
		s.render(w, r, http.StatusBadGateway, "contact.html", data)
	case err != nil:
		s.serverError(w, r, err)
	default:
		s.Metrics.RecordContact("sent")
		s.render(w, r, http.StatusOK, "contact.html", contactData{Sent: true})
	}
}

// --- api ---

type presignRequest struct {
	ContentType string `json:"content_type" validate:"required"`
}

func (s *Server) handlePresignCover(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "content_type required"})
		return
	}

	up, err := s.Media.PresignCoverUpload(r.Context(), ActorFrom(r.Context()), req.ContentType)
	switch {
	case errors.Is(err, common.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "forbidden"})
	case errors.Is(err, services.ErrUnsupportedMediaType):
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]any{"error": err.Error()})
	case err != nil:
		s.Logger.Error(r.Context(), "presign failed", "error", err, "request_id", RequestIDFrom(r.Context()))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
	default:
		writeJSON(w, http.StatusOK, up)
	}
}

// --- helpers ---

func (s *Server) postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil || id <= 0 {
		s.renderError(w, r, http.StatusNotFound)
		return 0, false
	}
	return id, true
}

// domainError maps service errors to status pages.
func (s *Server) domainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrForbidden):
		s.renderError(w, r, http.StatusForbidden)
	case errors.Is(err, common.ErrorNotFound):
		s.renderError(w, r, http.StatusNotFound)
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.Error(r.Context(), "request failed", "error", err, "request_id", RequestIDFrom(r.Context()))
	s.renderError(w, r, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, issued *services.IssuedSession) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    issued.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		Expires:  issued.Session.Expires,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   -1,
	})
}
