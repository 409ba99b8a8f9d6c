package web

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/inkwell-blog/inkwell/internal/server/models"
)

type RegisterForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
	Name     string `form:"name" validate:"required"`
}

type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type PostForm struct {
	Title    string `form:"title" validate:"required,max=250"`
	Subtitle string `form:"subtitle" validate:"required,max=250"`
	ImgURL   string `form:"img_url" validate:"required,url,max=250"`
	Body     string `form:"body" validate:"required"`
}

func (f PostForm) Fields() models.PostFields {
	return models.PostFields{Title: f.Title, Subtitle: f.Subtitle, Body: f.Body, ImgURL: f.ImgURL}
}

func postFormFrom(p *models.Post) PostForm {
	return PostForm{Title: p.Title, Subtitle: p.Subtitle, ImgURL: p.ImgURL, Body: p.Body}
}

type CommentForm struct {
	Comment string `form:"comment" validate:"required"`
}

// ContactForm uses the field names of the contact page, where the phone
// input is called phone_number.
type ContactForm struct {
	Name    string `form:"name"`
	Email   string `form:"email"`
	Phone   string `form:"phone_number"`
	Message string `form:"message"`
}

// FieldErrors maps a form field name to a message for the user.
type FieldErrors map[string]string

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindForm fills the string fields of dst from the request's form values
// using their form tags. Values are trimmed except for passwords.
func bindForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}

	v := reflect.ValueOf(dst).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("form")
		if name == "" || f.Type.Kind() != reflect.String {
			continue
		}
		val := r.PostForm.Get(name)
		if name != "password" {
			val = strings.TrimSpace(val)
		}
		v.Field(i).SetString(val)
	}
	return nil
}

// check validates form and turns validator failures into FieldErrors.
// Anything other than a validation failure is returned as an error.
func (s *Server) check(form any) (FieldErrors, error) {
	err := s.validate.Struct(form)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	out := FieldErrors{}
	for _, fe := range verrs {
		out[fe.Field()] = messageFor(fe)
	}
	return out, nil
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "url":
		return "Invalid URL."
	case "max":
		return "Field must be at most " + fe.Param() + " characters long."
	default:
		return "Invalid value."
	}
}
