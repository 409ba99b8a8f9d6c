package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"time"
)

// SMTPRelay talks to a submission server: STARTTLS when offered, then
// PLAIN auth when a username is configured.
type SMTPRelay struct {
	Addr     string
	Username string
	Password string
	Timeout  time.Duration

	// TLSConfig overrides the STARTTLS configuration; nil verifies the
	// server name against Addr's host.
	TLSConfig *tls.Config
}

func NewSMTPRelay(addr, username, password string) *SMTPRelay {
	return &SMTPRelay{Addr: addr, Username: username, Password: password, Timeout: 30 * time.Second}
}

func (r *SMTPRelay) Send(ctx context.Context, m Message) (err error) {
	if len(m.To) == 0 {
		return errors.New("smtp: no recipients")
	}

	host, _, err := net.SplitHostPort(r.Addr)
	if err != nil {
		return fmt.Errorf("smtp: bad address %q: %w", r.Addr, err)
	}

	d := net.Dialer{Timeout: r.Timeout}
	conn, err := d.DialContext(ctx, "tcp", r.Addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if r.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(r.Timeout))
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		cfg := r.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{ServerName: host}
		}
		if err := c.StartTLS(cfg); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}

	if r.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", r.Username, r.Password, host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(m.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, to := range m.To {
		if err := c.Rcpt(to); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", to, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(m.Bytes()); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}

	return c.Quit()
}
