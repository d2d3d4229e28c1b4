package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an infra-defined transaction handle (pgx.Tx for Postgres). Repositories
// accept nil and fall back to the pool.
type Tx interface{}

// TransactionManager runs fn inside one database transaction and hands the
// handle to every repository call made from fn. Returning an error rolls the
// whole unit back.
//
// Usage:
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx Tx) error {
//		o, err := orders.FindByExternalPaymentID(ctx, tx, sessionID)
//		...
//		return err
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
