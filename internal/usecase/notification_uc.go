package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/adapter"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// TaskQueue runs work off the request path. A full queue returns an error
// instead of blocking.
type TaskQueue interface {
	Submit(task func(ctx context.Context) error) error
}

type NotificationUseCase interface {
	// Dispatch hands every notification to the queue and returns immediately.
	Dispatch(ctx context.Context, notes []*model.EmailNotification)
	// Deliver renders and sends one notification with bounded retry.
	Deliver(ctx context.Context, n *model.EmailNotification) error
}

// NotifyPolicy bounds how long and how often a single send is tried.
type NotifyPolicy struct {
	SendTimeout time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

// DeliveryObserver is told how each notification ended. It may be nil.
type DeliveryObserver func(t model.Template, status string)

type notificationUC struct {
	renderer adapter.TemplateRenderer
	mailer   adapter.Mailer
	queue    TaskQueue
	policy   NotifyPolicy
	observe  DeliveryObserver
	log      *zerolog.Logger
	redact   func(string) string
}

func NewNotificationUseCase(renderer adapter.TemplateRenderer, mailer adapter.Mailer, queue TaskQueue, policy NotifyPolicy, observe DeliveryObserver, redact func(string) string, logger *zerolog.Logger) *notificationUC {
	if policy.SendTimeout <= 0 {
		policy.SendTimeout = 10 * time.Second
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.Backoff <= 0 {
		policy.Backoff = 200 * time.Millisecond
	}
	if observe == nil {
		observe = func(model.Template, string) {}
	}
	if redact == nil {
		redact = func(s string) string { return s }
	}
	return &notificationUC{
		renderer: renderer,
		mailer:   mailer,
		queue:    queue,
		policy:   policy,
		observe:  observe,
		log:      logger,
		redact:   redact,
	}
}

func (n *notificationUC) Dispatch(ctx context.Context, notes []*model.EmailNotification) {
	for _, note := range notes {
		note := note
		err := n.queue.Submit(func(ctx context.Context) error {
			return n.Deliver(ctx, note)
		})
		if err != nil {
			n.observe(note.Template, "dropped")
			n.logFailure(note, fmt.Errorf("%w: %v", domain.ErrQueueFull, err)).Msg("notification dropped")
		}
	}
}

func (n *notificationUC) Deliver(ctx context.Context, note *model.EmailNotification) error {
	msg, err := n.renderer.Render(note)
	if err != nil {
		n.observe(note.Template, "failed")
		n.logFailure(note, err).Msg("notification render failed")
		return err
	}

	backoff := n.policy.Backoff
	for attempt := 1; attempt <= n.policy.MaxAttempts; attempt++ {
		sctx, cancel := context.WithTimeout(ctx, n.policy.SendTimeout)
		err = n.mailer.Send(sctx, msg)
		cancel()
		if err == nil {
			n.observe(note.Template, "sent")
			n.log.Debug().Str("template", string(note.Template)).Str("order_id", note.OrderID).
				Str("event_id", note.EventID).Str("channel", n.mailer.Name()).Int("attempt", attempt).Msg("notification sent")
			return nil
		}
		if attempt == n.policy.MaxAttempts {
			break
		}
		n.log.Debug().Err(err).Str("template", string(note.Template)).Int("attempt", attempt).Msg("notification send failed; retrying")
		if !sleepCtx(ctx, backoff) {
			err = ctx.Err()
			break
		}
		backoff *= 2
	}

	n.observe(note.Template, "failed")
	n.logFailure(note, err).Str("channel", n.mailer.Name()).Msg("notification send failed")
	return err
}

func (n *notificationUC) logFailure(note *model.EmailNotification, err error) *zerolog.Event {
	return n.log.Error().Err(err).
		Str("template", string(note.Template)).
		Str("order_id", note.OrderID).
		Str("event_id", note.EventID).
		Str("recipient", n.redact(note.Recipient))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
