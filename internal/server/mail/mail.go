// Package mail sends plain-text notifications through an SMTP relay.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"strings"
)

// Message is a single plain-text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Relay delivers a message. Implementations make a single attempt.
type Relay interface {
	Send(ctx context.Context, m Message) error
}

// Bytes renders m as an RFC 5322 message with CRLF line endings.
func (m Message) Bytes() []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")

	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")

	return b.Bytes()
}
