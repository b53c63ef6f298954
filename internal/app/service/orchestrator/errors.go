package orchestrator

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrPlanNotFound          = errors.New("subscription plan not found")
	ErrSubscriptionNotActive = errors.New("subscription is not active")
	// ErrDuplicateConfirmation marks a confirmation whose transaction id was
	// already applied. It is an idempotent no-op, not a failure: callers map
	// it to an "already processed" success.
	ErrDuplicateConfirmation = errors.New("confirmation already processed")
	ErrInvalidConfirmation   = errors.New("confirmation is missing required fields")
	// ErrLedgerInconsistency marks a fact/ledger split detected during
	// reconciliation.
	ErrLedgerInconsistency = errors.New("subscription fact and ledger disagree")
)
