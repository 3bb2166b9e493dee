package mailer

import (
	"context"

	"github.com/thereayou/accounts/internal/logging"
)

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log logging.Logger
}

func NewLogMailer(log logging.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (l *LogMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrEmptyRecipient
	}
	l.log.Info(ctx, "mail not sent, no provider configured",
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return nil
}
