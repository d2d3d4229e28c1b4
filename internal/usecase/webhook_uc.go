// File: internal/usecase/webhook_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/adapter"
)

// Compile-time check
var _ WebhookUseCase = (*webhookUC)(nil)

// WebhookUseCase is the inbound pipeline: verify, admit, classify, reconcile,
// reward, notify, complete.
type WebhookUseCase interface {
	// Handle processes one raw delivery. Errors wrap domain.ErrInvalidSignature,
	// domain.ErrMalformedPayload or anything else that should trigger redelivery.
	Handle(ctx context.Context, payload []byte, signatureHeader string) (model.Outcome, error)
	// Replay re-runs a stored event that was admitted but never finished.
	Replay(ctx context.Context, row *model.WebhookEvent) (model.Outcome, error)
}

type webhookUC struct {
	verifier  adapter.EventVerifier
	decoder   adapter.EventDecoder
	ledger    LedgerUseCase
	reconcile ReconcileUseCase
	notifier  NotificationUseCase
	log       *zerolog.Logger
}

func NewWebhookUseCase(
	verifier adapter.EventVerifier,
	decoder adapter.EventDecoder,
	ledger LedgerUseCase,
	reconcile ReconcileUseCase,
	notifier NotificationUseCase,
	logger *zerolog.Logger,
) *webhookUC {
	return &webhookUC{
		verifier:  verifier,
		decoder:   decoder,
		ledger:    ledger,
		reconcile: reconcile,
		notifier:  notifier,
		log:       logger,
	}
}

func (w *webhookUC) Handle(ctx context.Context, payload []byte, signatureHeader string) (model.Outcome, error) {
	ev, err := w.verifier.Verify(payload, signatureHeader)
	if err != nil {
		return "", err
	}

	adm, err := w.ledger.Begin(ctx, ev)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	switch adm {
	case model.AlreadyProcessed:
		w.log.Debug().Str("event_id", ev.ID).Str("type", string(ev.Type)).Msg("duplicate delivery")
		return model.OutcomeDuplicate, nil
	case model.InFlight:
		w.log.Debug().Str("event_id", ev.ID).Str("type", string(ev.Type)).Msg("delivery already in flight")
		return model.OutcomeInFlight, nil
	}
	return w.process(ctx, ev)
}

func (w *webhookUC) Replay(ctx context.Context, row *model.WebhookEvent) (model.Outcome, error) {
	ok, err := w.ledger.Reclaim(ctx, row.ProviderEventID)
	if err != nil {
		return "", err
	}
	if !ok {
		return model.OutcomeInFlight, nil
	}
	// the body was authenticated when it was first received
	ev, err := w.decoder.ParseEvent(row.RawPayload)
	if err != nil {
		w.fail(ctx, row.ProviderEventID, err)
		return "", err
	}
	return w.process(ctx, ev)
}

func (w *webhookUC) process(ctx context.Context, ev *model.ProviderEvent) (model.Outcome, error) {
	cat := Classify(ev.Type)
	logger := w.log.With().Str("event_id", ev.ID).Str("type", string(ev.Type)).Str("category", string(cat)).Logger()

	res, err := w.apply(ctx, ev, cat)
	if err != nil {
		w.fail(ctx, ev.ID, err)
		return "", err
	}

	if notes := PlanNotifications(res); len(notes) > 0 {
		w.notifier.Dispatch(ctx, notes)
	}

	if err := w.ledger.MarkComplete(ctx, ev.ID); err != nil {
		// effects are committed; a redelivery re-applies as a no-op
		logger.Error().Err(err).Msg("failed to mark event processed")
		return "", fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	logger.Info().Str("outcome", string(res.Outcome)).Bool("transitioned", res.Transitioned).Msg("webhook event processed")
	return res.Outcome, nil
}

// apply isolates a panicking handler to this one event.
func (w *webhookUC) apply(ctx context.Context, ev *model.ProviderEvent, cat EventCategory) (res *ReconcileResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			w.log.Error().Str("event_id", ev.ID).Str("type", string(ev.Type)).
				Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("panic while reconciling event")
			res, err = nil, fmt.Errorf("%w: %v", domain.ErrContractViolation, rec)
		}
	}()
	return w.reconcile.Apply(ctx, ev, cat)
}

func (w *webhookUC) fail(ctx context.Context, eventID string, cause error) {
	lvl := w.log.Error()
	if errors.Is(cause, domain.ErrMalformedPayload) {
		lvl = w.log.Warn()
	}
	lvl.Err(cause).Str("event_id", eventID).Msg("webhook event failed")
	if err := w.ledger.MarkFailed(ctx, eventID, cause.Error()); err != nil {
		w.log.Error().Err(err).Str("event_id", eventID).Msg("failed to mark event failed")
	}
}
