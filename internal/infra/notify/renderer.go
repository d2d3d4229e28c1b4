package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"net/mail"
	"strings"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/adapter"
)

//go:embed templates/*.html
var templateFS embed.FS

var _ adapter.TemplateRenderer = (*Renderer)(nil)

var allTemplates = []model.Template{
	model.TemplatePaymentSucceeded,
	model.TemplatePaymentFailed,
	model.TemplatePaymentRefunded,
	model.TemplateSubscriptionRenewed,
	model.TemplateSubscriptionCanceled,
	model.TemplateInvoicePaymentFailed,
	model.TemplateCommissionEarned,
}

// Renderer holds one parsed set per template: the shared layout plus the
// template's own "subject" and "body".
type Renderer struct {
	sets map[model.Template]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{sets: make(map[model.Template]*template.Template, len(allTemplates))}
	for _, name := range allTemplates {
		t, err := template.New(string(name)).Option("missingkey=zero").
			ParseFS(templateFS, "templates/layout.html", "templates/"+string(name)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.sets[name] = t
	}
	return r, nil
}

func (r *Renderer) Render(n *model.EmailNotification) (*model.OutboundEmail, error) {
	set, ok := r.sets[n.Template]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTemplate, n.Template)
	}
	addr, err := mail.ParseAddress(n.Recipient)
	if err != nil {
		return nil, fmt.Errorf("%w: recipient: %v", domain.ErrInvalidArgument, err)
	}

	vars := n.Variables
	if vars == nil {
		vars = map[string]string{}
	}
	var subject, body bytes.Buffer
	if err := set.ExecuteTemplate(&subject, "subject", vars); err != nil {
		return nil, fmt.Errorf("render %s subject: %w", n.Template, err)
	}
	if err := set.ExecuteTemplate(&body, "layout", vars); err != nil {
		return nil, fmt.Errorf("render %s body: %w", n.Template, err)
	}

	return &model.OutboundEmail{
		To:       addr.Address,
		Subject:  strings.TrimSpace(html.UnescapeString(subject.String())),
		HTMLBody: body.String(),
		Template: n.Template,
		OrderID:  n.OrderID,
		EventID:  n.EventID,
	}, nil
}
