package adapter

import (
	"context"

	"payment-events/internal/domain/model"
)

// Mailer is the delivery channel for rendered notifications.
type Mailer interface {
	Name() string
	Send(ctx context.Context, msg *model.OutboundEmail) error
}

// TemplateRenderer renders a notification into subject and HTML body.
type TemplateRenderer interface {
	Render(n *model.EmailNotification) (*model.OutboundEmail, error)
}
