// Package mail delivers outbound email. The SMTP backend is used in
// production; the console backend logs messages instead of sending them and
// the memory backend keeps them in an outbox for tests.
package mail

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ConfirmationCode builds the signup email carrying code.
func ConfirmationCode(from, to, code string) Message {
	return Message{
		From:    from,
		To:      []string{to},
		Subject: "confirmation_code for registration",
		Body:    "Check out your confirmation_code: " + code,
	}
}

type SMTPSender struct {
	addr string
	auth smtp.Auth
	// send is smtp.SendMail; replaced in tests
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender returns a sender for host:port. PLAIN auth is used when
// username is set.
func NewSMTPSender(host string, port int, username, password string) *SMTPSender {
	s := &SMTPSender{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		send: smtp.SendMail,
	}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	return s
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(s.addr, s.auth, msg.From, msg.To, encode(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", strings.Join(msg.To, ","), err)
	}
	return nil
}

func encode(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

type ConsoleSender struct {
	log zerolog.Logger
}

func NewConsoleSender(log zerolog.Logger) *ConsoleSender {
	return &ConsoleSender{log: log}
}

func (s *ConsoleSender) Send(_ context.Context, msg Message) error {
	s.log.Info().
		Str("from", msg.From).
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("email")
	return nil
}

// Outbox is an in-memory Sender. Setting Err makes every Send fail.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (o *Outbox) Send(_ context.Context, msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.messages = append(o.messages, msg)
	return nil
}

func (o *Outbox) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.messages...)
}

// Last returns the most recent message, if any.
func (o *Outbox) Last() (Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == 0 {
		return Message{}, false
	}
	return o.messages[len(o.messages)-1], true
}
