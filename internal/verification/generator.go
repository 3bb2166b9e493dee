// Package verification creates email-verification tokens and sends the
// verification link to the account owner.
package verification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/accounts/internal/logging"
	"github.com/thereayou/accounts/internal/mailer"
)

const (
	Subject = "Email verification"

	defaultSendTimeout = 15 * time.Second
)

type Generator struct {
	mailer      mailer.Mailer
	log         logging.Logger
	baseURL     string
	from        string
	sendTimeout time.Duration

	wg sync.WaitGroup
}

func NewGenerator(m mailer.Mailer, log logging.Logger, baseURL, from string) *Generator {
	return &Generator{
		mailer:      m,
		log:         log.With("component", "verification"),
		baseURL:     baseURL,
		from:        from,
		sendTimeout: defaultSendTimeout,
	}
}

// GenerateToken returns a fresh, URL-safe verification token.
func (g *Generator) GenerateToken() string {
	return uuid.NewString()
}

// Link builds the absolute URL that consumes token.
func (g *Generator) Link(token string) string {
	return g.baseURL + "/users/verify/" + token
}

// Message builds the verification email for email.
func (g *Generator) Message(email, token string) mailer.Message {
	return mailer.Message{
		To:      email,
		From:    g.from,
		Subject: Subject,
		Text:    "Verification link: " + g.Link(token),
	}
}

// Dispatch sends the verification email in the background. Delivery
// failures are logged and never reach the caller.
func (g *Generator) Dispatch(email, token string) {
	msg := g.Message(email, token)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), g.sendTimeout)
		defer cancel()

		if err := g.mailer.Send(ctx, msg); err != nil {
			g.log.Error(ctx, "verification email failed", "email", email, "error", err)
			return
		}
		g.log.Debug(ctx, "verification email sent", "email", email)
	}()
}

// Wait blocks until all in-flight dispatches have finished.
func (g *Generator) Wait() {
	g.wg.Wait()
}
