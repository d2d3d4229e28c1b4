package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"payment-events/internal/domain/model"
	"payment-events/internal/infra/metrics"
	red "payment-events/internal/infra/redis"
)

// StaleLister is the ledger side the replayer reads from.
type StaleLister interface {
	ListStale(ctx context.Context, limit int) ([]*model.WebhookEvent, error)
}

// Replayer re-runs the pipeline for one stored delivery.
type Replayer interface {
	Replay(ctx context.Context, row *model.WebhookEvent) (model.Outcome, error)
}

// Locker keeps replicas from sweeping at the same time. Optional.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

const sweepLockKey = "stale-replayer"

// StaleReplayer periodically picks up deliveries that were admitted but never
// finished, for example because the process died mid-pipeline, and replays
// them from the stored payload. The ledger's conditional reclaim decides who
// runs each row, so overlapping sweeps are harmless.
type StaleReplayer struct {
	ledger   StaleLister
	replayer Replayer
	locker   Locker
	interval time.Duration
	batch    int
	log      *zerolog.Logger
}

func NewStaleReplayer(ledger StaleLister, replayer Replayer, locker Locker, interval time.Duration, batch int, logger *zerolog.Logger) *StaleReplayer {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 50
	}
	return &StaleReplayer{ledger: ledger, replayer: replayer, locker: locker, interval: interval, batch: batch, log: logger}
}

func (w *StaleReplayer) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

// tick returns how many rows were replayed to completion.
func (w *StaleReplayer) tick(ctx context.Context) int {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, sweepLockKey, w.interval)
		switch {
		case errors.Is(err, red.ErrLockHeld):
			w.log.Debug().Msg("stale-replayer: another instance is sweeping")
			return 0
		case err != nil:
			// the ledger reclaim still keeps each row single-owner
			w.log.Warn().Err(err).Msg("stale-replayer: lock unavailable, sweeping anyway")
		default:
			defer func() {
				if err := w.locker.Unlock(context.WithoutCancel(ctx), sweepLockKey, token); err != nil {
					w.log.Warn().Err(err).Msg("stale-replayer: unlock failed")
				}
			}()
		}
	}

	stale, err := w.ledger.ListStale(ctx, w.batch)
	if err != nil {
		w.log.Error().Err(err).Msg("stale-replayer: list stale error")
		return 0
	}
	metrics.SetLedgerStalePending(len(stale))
	if len(stale) == 0 {
		return 0
	}

	done := 0
	for _, row := range stale {
		if ctx.Err() != nil {
			break
		}
		out, err := w.replayer.Replay(ctx, row)
		if err != nil {
			metrics.IncLedgerReplay("error")
			ev := w.log.Warn()
			if !errors.Is(err, context.Canceled) {
				ev = w.log.Error()
			}
			ev.Err(err).Str("event_id", row.ProviderEventID).Str("type", row.Type).Int("attempts", row.Attempts).
				Msg("stale-replayer: replay failed")
			continue
		}
		metrics.IncLedgerReplay(string(out))
		if out != model.OutcomeInFlight {
			done++
		}
		w.log.Info().Str("event_id", row.ProviderEventID).Str("outcome", string(out)).Msg("stale-replayer: replayed event")
	}
	return done
}
