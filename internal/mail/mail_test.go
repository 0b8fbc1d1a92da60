package mail

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmationCodeMessage(t *testing.T) {
	msg := ConfirmationCode("noreply@yamdb.local", "b@x.com", "abc123")

	assert.Equal(t, []string{"b@x.com"}, msg.To)
	assert.Equal(t, "confirmation_code for registration", msg.Subject)
	assert.Contains(t, msg.Body, "abc123")
}

func TestSMTPSender(t *testing.T) {
	s := NewSMTPSender("mail.example.com", 587, "user", "pass")
	var gotAddr string
	var gotBody []byte
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotBody = msg
		assert.NotNil(t, a)
		assert.Equal(t, "noreply@yamdb.local", from)
		assert.Equal(t, []string{"b@x.com"}, to)
		return nil
	}

	err := s.Send(context.Background(), ConfirmationCode("noreply@yamdb.local", "b@x.com", "abc123"))
	require.NoError(t, err)
	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Contains(t, string(gotBody), "Subject: confirmation_code for registration\r\n")
	assert.Contains(t, string(gotBody), "abc123")
}

func TestSMTPSenderFailure(t *testing.T) {
	s := NewSMTPSender("localhost", 25, "", "")
	assert.Nil(t, s.auth)
	s.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := s.Send(context.Background(), ConfirmationCode("a@x.com", "b@x.com", "x"))
	assert.ErrorContains(t, err, "connection refused")
}

func TestConsoleSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSender(zerolog.New(&buf))

	require.NoError(t, s.Send(context.Background(), ConfirmationCode("a@x.com", "b@x.com", "code42")))
	assert.Contains(t, buf.String(), "code42")
	assert.Contains(t, buf.String(), `"to":["b@x.com"]`)
}

func TestOutbox(t *testing.T) {
	o := &Outbox{}
	_, ok := o.Last()
	assert.False(t, ok)

	require.NoError(t, o.Send(context.Background(), Message{Subject: "one"}))
	require.NoError(t, o.Send(context.Background(), Message{Subject: "two"}))
	last, ok := o.Last()
	require.True(t, ok)
	assert.Equal(t, "two", last.Subject)
	assert.Len(t, o.Messages(), 2)

	o.Err = errors.New("down")
	assert.Error(t, o.Send(context.Background(), Message{}))
	assert.Len(t, o.Messages(), 2)
}
