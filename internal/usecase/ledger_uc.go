// File: internal/usecase/ledger_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/adapter"
	"payment-events/internal/domain/ports/repository"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// LedgerUseCase gates every side effect on a delivery. The exclusive insert in
// the webhook_events table is the only cross-request mutual exclusion.
type LedgerUseCase interface {
	// Begin records the delivery and decides whether the caller may process it.
	Begin(ctx context.Context, ev *model.ProviderEvent) (model.Admission, error)
	// Reclaim re-admits a stale pending or failed row. Exactly one racing caller wins.
	Reclaim(ctx context.Context, providerEventID string) (bool, error)
	MarkComplete(ctx context.Context, providerEventID string) error
	MarkFailed(ctx context.Context, providerEventID, reason string) error
	// ListStale returns pending rows whose claim is older than the stale bound.
	ListStale(ctx context.Context, limit int) ([]*model.WebhookEvent, error)
}

type ledgerUC struct {
	events     repository.WebhookEventRepository
	cache      adapter.ProcessedCache // optional
	staleAfter time.Duration
	cacheTTL   time.Duration
	log        *zerolog.Logger
	now        func() time.Time
}

// NewLedgerUseCase builds the ledger. cache may be nil.
func NewLedgerUseCase(events repository.WebhookEventRepository, cache adapter.ProcessedCache, staleAfter, cacheTTL time.Duration, logger *zerolog.Logger) *ledgerUC {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if cacheTTL <= 0 {
		cacheTTL = 72 * time.Hour
	}
	return &ledgerUC{
		events:     events,
		cache:      cache,
		staleAfter: staleAfter,
		cacheTTL:   cacheTTL,
		log:        logger,
		now:        time.Now,
	}
}

func (l *ledgerUC) Begin(ctx context.Context, ev *model.ProviderEvent) (model.Admission, error) {
	if ev == nil || ev.ID == "" {
		return model.Admitted, fmt.Errorf("ledger begin: %w", domain.ErrInvalidArgument)
	}

	// The cache only ever answers "processed"; admission always goes through the insert.
	if l.cache != nil {
		hit, err := l.cache.IsProcessed(ctx, ev.ID)
		if err != nil {
			l.log.Warn().Err(err).Str("event_id", ev.ID).Msg("processed cache lookup failed; using store")
		} else if hit {
			return model.AlreadyProcessed, nil
		}
	}

	now := l.now()
	row := &model.WebhookEvent{
		ProviderEventID: ev.ID,
		Type:            string(ev.Type),
		ReceivedAt:      now,
		RawPayload:      ev.Raw,
		Status:          model.ProcessingStatusPending,
		Attempts:        1,
		ClaimedAt:       now,
	}
	created, err := l.events.Insert(ctx, nil, row)
	if err != nil {
		return model.Admitted, fmt.Errorf("ledger insert %s: %w", ev.ID, err)
	}
	if created {
		return model.Admitted, nil
	}

	existing, err := l.events.FindByID(ctx, nil, ev.ID)
	if err != nil {
		return model.Admitted, fmt.Errorf("ledger lookup %s: %w", ev.ID, err)
	}
	switch existing.Status {
	case model.ProcessingStatusProcessed:
		l.warm(ctx, ev.ID)
		return model.AlreadyProcessed, nil
	case model.ProcessingStatusPending:
		if existing.ClaimedAt.After(now.Add(-l.staleAfter)) {
			return model.InFlight, nil
		}
	}

	ok, err := l.events.Reclaim(ctx, nil, ev.ID, now.Add(-l.staleAfter), now)
	if err != nil {
		return model.Admitted, fmt.Errorf("ledger reclaim %s: %w", ev.ID, err)
	}
	if !ok {
		return model.InFlight, nil
	}
	l.log.Info().Str("event_id", ev.ID).Str("previous_status", string(existing.Status)).
		Int("attempt", existing.Attempts+1).Msg("re-admitted webhook event")
	return model.Admitted, nil
}

func (l *ledgerUC) Reclaim(ctx context.Context, providerEventID string) (bool, error) {
	now := l.now()
	return l.events.Reclaim(ctx, nil, providerEventID, now.Add(-l.staleAfter), now)
}

func (l *ledgerUC) MarkComplete(ctx context.Context, providerEventID string) error {
	if err := l.events.MarkProcessed(ctx, nil, providerEventID, l.now()); err != nil {
		return fmt.Errorf("ledger complete %s: %w", providerEventID, err)
	}
	l.warm(ctx, providerEventID)
	return nil
}

func (l *ledgerUC) MarkFailed(ctx context.Context, providerEventID, reason string) error {
	if err := l.events.MarkFailed(ctx, nil, providerEventID, reason); err != nil {
		return fmt.Errorf("ledger fail %s: %w", providerEventID, err)
	}
	return nil
}

func (l *ledgerUC) ListStale(ctx context.Context, limit int) ([]*model.WebhookEvent, error) {
	rows, err := l.events.ListStalePending(ctx, nil, l.now().Add(-l.staleAfter), limit)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return rows, nil
}

func (l *ledgerUC) warm(ctx context.Context, id string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.MarkProcessed(ctx, id, l.cacheTTL); err != nil {
		l.log.Debug().Err(err).Str("event_id", id).Msg("processed cache write failed")
	}
}
