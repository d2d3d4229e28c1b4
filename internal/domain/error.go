package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid db execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// ErrStoreUnavailable wraps any durable-store failure that should make the
	// provider redeliver the notification.
	ErrStoreUnavailable = errors.New("durable store unavailable")

	// Webhook boundary
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrMalformedPayload  = errors.New("malformed webhook payload")
	ErrContractViolation = errors.New("webhook contract violation")

	// Reconciliation
	ErrOrderNotFound        = errors.New("no order matches payment reference")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidTransition    = errors.New("invalid order status transition")

	// Notifications
	ErrUnknownTemplate = errors.New("unknown notification template")
	ErrQueueFull       = errors.New("notification queue full")
)
