package services

import (
	"context"
	"fmt"

	"github.com/inkwell-blog/inkwell/internal/common"
	"github.com/inkwell-blog/inkwell/internal/server/mail"
)

const ContactSubject = "Your message sent from the blog website as below is received!"

// ContactForm is what a visitor fills in on the contact page.
type ContactForm struct {
	Name    string
	Email   string
	Phone   string
	Message string
}

// Missing lists the empty fields in form order.
func (f ContactForm) Missing() []string {
	var missing []string
	for _, field := range []struct {
		name, value string
	}{
		{"name", f.Name},
		{"email", f.Email},
		{"phone", f.Phone},
		{"message", f.Message},
	} {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// ContactService forwards contact form submissions to the site owner and
// a copy to the visitor. Nothing is stored.
type ContactService struct {
	relay  mail.Relay
	sender string
}

func NewContactService(relay mail.Relay, sender string) *ContactService {
	return &ContactService{relay: relay, sender: sender}
}

// SubmitContact sends one message when every field is filled. Otherwise
// it returns a *common.IncompleteError and sends nothing.
func (s *ContactService) SubmitContact(ctx context.Context, form ContactForm) error {
	if missing := form.Missing(); len(missing) > 0 {
		return &common.IncompleteError{Missing: missing}
	}

	msg := mail.Message{
		From:    s.sender,
		To:      []string{form.Email, s.sender},
		Subject: ContactSubject,
		Body: fmt.Sprintf("Name: %s \nemail: %s\nPhone: %s \nMessage:%s",
			form.Name, form.Email, form.Phone, form.Message),
	}

	if err := s.relay.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDeliveryFailed, err)
	}
	return nil
}
