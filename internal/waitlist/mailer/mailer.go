// Package mailer delivers confirmation emails. Rendering stays deliberately
// plain; a transactional email provider can sit behind Sender.
package mailer

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/waitlist/pkg/cryptox"
)

var ErrInvalidMessage = errors.New("mailer: invalid message")

// Confirmation is one confirmation email. URL embeds the raw token; it must
// never be logged outside development.
type Confirmation struct {
	Email     string
	Locale    string
	Token     string
	URL       string
	ExpiresAt time.Time
}

func (c Confirmation) validate() error {
	if c.Email == "" || c.Token == "" || c.URL == "" {
		return ErrInvalidMessage
	}
	return nil
}

type Sender interface {
	SendConfirmation(ctx context.Context, msg Confirmation) error
}

// ConfirmURL builds <base>/waitlist/confirm?token=<token>.
func ConfirmURL(base, token string) string {
	return strings.TrimRight(base, "/") + "/waitlist/confirm?token=" + url.QueryEscape(token)
}

// LogSender writes confirmation links to the log instead of sending mail.
// Development only.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) SendConfirmation(ctx context.Context, msg Confirmation) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.Logger.InfoContext(ctx, "confirmation email (not sent)",
		slog.String("recipient", cryptox.FingerprintToken(msg.Email)),
		slog.String("locale", msg.Locale),
		slog.String("confirm_url", msg.URL),
		slog.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}
