// File: internal/usecase/rewards_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"payment-events/internal/domain"
	"payment-events/internal/domain/model"
	"payment-events/internal/domain/ports/repository"
)

// Compile-time check
var _ RewardsUseCase = (*rewardsUC)(nil)

// RewardsConfig carries the reward rates from configuration.
type RewardsConfig struct {
	DefaultRateBps  int64
	PointsUnitMinor int64
	PointsPerUnit   int64
}

// RewardsResult lists what a Grant call created. Nil fields mean nothing new
// was written, either because it already existed or because it did not apply.
type RewardsResult struct {
	Commission *model.AffiliateCommission
	Affiliate  *model.Affiliate
	Points     *model.PointsLedgerEntry
}

// RewardsUseCase derives commission and loyalty points from paid orders. Both
// methods run inside the caller's transaction and are safe to repeat.
type RewardsUseCase interface {
	Grant(ctx context.Context, tx repository.Tx, order *model.Order) (*RewardsResult, error)
	// Revoke appends an entry offsetting the points granted for order.
	Revoke(ctx context.Context, tx repository.Tx, order *model.Order) (*model.PointsLedgerEntry, error)
}

type rewardsUC struct {
	affiliates  repository.AffiliateRepository
	commissions repository.CommissionRepository
	points      repository.PointsRepository
	cfg         RewardsConfig
	log         *zerolog.Logger
	now         func() time.Time
}

func NewRewardsUseCase(
	affiliates repository.AffiliateRepository,
	commissions repository.CommissionRepository,
	points repository.PointsRepository,
	cfg RewardsConfig,
	logger *zerolog.Logger,
) *rewardsUC {
	return &rewardsUC{
		affiliates:  affiliates,
		commissions: commissions,
		points:      points,
		cfg:         cfg,
		log:         logger,
		now:         time.Now,
	}
}

func (u *rewardsUC) Grant(ctx context.Context, tx repository.Tx, order *model.Order) (*RewardsResult, error) {
	if order == nil || order.Status != model.OrderStatusPaid {
		return nil, fmt.Errorf("rewards for unpaid order: %w", domain.ErrInvalidArgument)
	}
	res := &RewardsResult{}

	c, aff, err := u.grantCommission(ctx, tx, order)
	if err != nil {
		return nil, err
	}
	res.Commission, res.Affiliate = c, aff

	p, err := u.grantPoints(ctx, tx, order)
	if err != nil {
		return nil, err
	}
	res.Points = p
	return res, nil
}

func (u *rewardsUC) grantCommission(ctx context.Context, tx repository.Tx, order *model.Order) (*model.AffiliateCommission, *model.Affiliate, error) {
	code := order.Affiliate()
	if code == "" {
		return nil, nil, nil
	}
	aff, err := u.affiliates.FindActiveByCode(ctx, tx, code)
	if errors.Is(err, domain.ErrNotFound) {
		u.log.Info().Str("order_id", order.ID).Str("affiliate_code", code).Msg("unknown or inactive affiliate; commission skipped")
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find affiliate %s: %w", code, err)
	}

	rate := u.cfg.DefaultRateBps
	if aff.RateBps != nil {
		rate = *aff.RateBps
	}
	amount := model.CommissionAmount(order.Amount, rate)
	if amount <= 0 {
		return nil, nil, nil
	}

	c := &model.AffiliateCommission{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		AffiliateCode: aff.Code,
		Amount:        amount,
		Currency:      order.Currency,
		RateBps:       rate,
		Status:        model.CommissionStatusPending,
		CreatedAt:     u.now(),
	}
	created, err := u.commissions.Create(ctx, tx, c)
	if err != nil {
		return nil, nil, fmt.Errorf("create commission for order %s: %w", order.ID, err)
	}
	if !created {
		return nil, nil, nil
	}
	u.log.Info().Str("order_id", order.ID).Str("affiliate_code", aff.Code).Int64("amount", amount).
		Int64("rate_bps", rate).Msg("commission recorded")
	return c, aff, nil
}

func (u *rewardsUC) grantPoints(ctx context.Context, tx repository.Tx, order *model.Order) (*model.PointsLedgerEntry, error) {
	owner := order.PointsOwner()
	if owner == "" {
		return nil, nil
	}
	pts := model.PointsFor(order.Amount, u.cfg.PointsUnitMinor, u.cfg.PointsPerUnit)
	if pts <= 0 {
		return nil, nil
	}
	e := &model.PointsLedgerEntry{
		ID:        ulid.Make().String(),
		UserID:    owner,
		OrderID:   order.ID,
		Points:    pts,
		Reason:    model.PointsReasonOrderPaid,
		CreatedAt: u.now(),
	}
	created, err := u.points.Append(ctx, tx, e)
	if err != nil {
		return nil, fmt.Errorf("append points for order %s: %w", order.ID, err)
	}
	if !created {
		return nil, nil
	}
	return e, nil
}

func (u *rewardsUC) Revoke(ctx context.Context, tx repository.Tx, order *model.Order) (*model.PointsLedgerEntry, error) {
	if order == nil {
		return nil, domain.ErrInvalidArgument
	}
	entries, err := u.points.ListByOrder(ctx, tx, order.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("list points for order %s: %w", order.ID, err)
	}

	// Offset what was actually granted, not what the current rate would give.
	var granted int64
	var owner string
	for _, e := range entries {
		if e.Reason == model.PointsReasonOrderPaid {
			granted += e.Points
			owner = e.UserID
		}
	}
	if granted <= 0 {
		return nil, nil
	}

	e := &model.PointsLedgerEntry{
		ID:        ulid.Make().String(),
		UserID:    owner,
		OrderID:   order.ID,
		Points:    -granted,
		Reason:    model.PointsReasonOrderRefunded,
		CreatedAt: u.now(),
	}
	created, err := u.points.Append(ctx, tx, e)
	if err != nil {
		return nil, fmt.Errorf("append refund points for order %s: %w", order.ID, err)
	}
	if !created {
		return nil, nil
	}
	return e, nil
}
