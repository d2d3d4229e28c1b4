package notify

import (
	"context"

	"github.com/rs/zerolog"

	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*LogMailer)(nil)

// LogMailer writes e-mails to the log instead of sending them. Dev only.
type LogMailer struct {
	log *zerolog.Logger
}

func NewLogMailer(logger *zerolog.Logger) *LogMailer {
	return &LogMailer{log: logger}
}

func (m *LogMailer) Name() string { return "log" }

func (m *LogMailer) Send(ctx context.Context, msg *model.OutboundEmail) error {
	m.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("template", string(msg.Template)).
		Str("event_id", msg.EventID).
		Int("body_bytes", len(msg.HTMLBody)).
		Msg("email (not sent)")
	return nil
}
