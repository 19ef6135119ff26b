package tasks

import (
	"context"

	"github.com/rs/zerolog"
)

// Mailer delivers transactional mail. Delivery itself is outside this service.
type Mailer interface {
	SendPasswordReset(ctx context.Context, mail PasswordResetMail) error
}

// LogMailer records the dispatch instead of sending anything.
type LogMailer struct {
	logger zerolog.Logger
	from   string
}

func NewLogMailer(logger zerolog.Logger, from string) *LogMailer {
	return &LogMailer{logger: logger, from: from}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, mail PasswordResetMail) error {
	m.logger.Info().
		Str("from", m.from).
		Str("to", mail.Email).
		Str("user_id", mail.UserID).
		Time("expires_at", mail.ExpiresAt).
		Msg("password reset mail")
	return nil
}
