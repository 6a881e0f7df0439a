package auth

import (
	"context"

	"go.uber.org/zap"
)

// Mailer delivers account emails (verification, password reset).
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer writes mails to the log instead of sending them. Used until an
// SMTP or API mailer is configured.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) Send(_ context.Context, to, subject, body string) error {
	if m.Logger != nil {
		m.Logger.Info("mail", zap.String("to", to), zap.String("subject", subject), zap.String("body", body))
	}
	return nil
}
