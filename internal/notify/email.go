package notify

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

// ErrNoEmail is returned when the recipient has no email address.
var ErrNoEmail = errors.New("recipient has no email address")

// mailSender is the part of gomail.Dialer the dispatcher needs.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailDispatcher sends alerts over SMTP.
type EmailDispatcher struct {
	from   string
	sender mailSender
}

// EmailOption configures an EmailDispatcher.
type EmailOption func(*EmailDispatcher)

// withMailSender replaces the SMTP dialer; used by tests.
func withMailSender(s mailSender) EmailOption {
	return func(e *EmailDispatcher) {
		e.sender = s
	}
}

// NewEmailDispatcher creates a dispatcher sending through host:port.
func NewEmailDispatcher(
	host string,
	port int,
	username, password, from string,
	opts ...EmailOption,
) *EmailDispatcher {
	e := &EmailDispatcher{
		from:   from,
		sender: gomail.NewDialer(host, port, username, password),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deliver sends a plain-text mail. gomail has no context support, so the
// send runs in its own goroutine and Deliver returns when ctx is done even
// if the SMTP exchange has not finished.
func (e *EmailDispatcher) Deliver(ctx context.Context, msg *Message) error {
	if msg.Recipient.Email == "" {
		return ErrNoEmail
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", msg.Recipient.Email)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	done := make(chan error, 1)
	go func() {
		done <- e.sender.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("sending email to %s: %w", msg.Recipient.Email, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sending email to %s: %w", msg.Recipient.Email, ctx.Err())
	}
}
