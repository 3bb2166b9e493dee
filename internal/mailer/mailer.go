// Package mailer delivers outgoing email.
package mailer

import (
	"context"
	"errors"
)

var ErrEmptyRecipient = errors.New("mailer: empty recipient")

type Message struct {
	To      string
	From    string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
