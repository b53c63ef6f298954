package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tierbill/tierbill/pkg/types"
)

var (
	// ErrProviderUnavailable marks transport failures and timeouts; callers
	// may retry.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	// ErrProviderRejected marks requests the provider refused; not retried
	// automatically.
	ErrProviderRejected = errors.New("payment provider rejected the request")
)

// Metadata is the strongly-typed bag handed to the provider on initialize
// and echoed back inside confirmations. Keeping it typed instead of a raw
// map removes a class of key-mismatch bugs.
type Metadata struct {
	UserID          string                `json:"user_id"`
	Plan            string                `json:"plan"`
	BillingCycle    types.BillingCycle    `json:"billing_cycle"`
	DurationInDays  int                   `json:"duration_in_days"`
	TransactionType types.TransactionType `json:"transaction_type"`
}

func (m *Metadata) Validate() error {
	if m == nil {
		return fmt.Errorf("metadata is nil")
	}
	if m.UserID == "" {
		return fmt.Errorf("metadata user_id is empty")
	}
	if m.Plan == "" {
		return fmt.Errorf("metadata plan is empty")
	}
	if !m.BillingCycle.Valid() {
		return fmt.Errorf("metadata billing_cycle %q is invalid", m.BillingCycle)
	}
	if m.DurationInDays <= 0 {
		return fmt.Errorf("metadata duration_in_days must be positive")
	}
	return nil
}

// InitializeRequest starts a charge or recurring subscription.
type InitializeRequest struct {
	UserEmail string
	// AmountMinor is the charge amount in the provider's sub-unit.
	AmountMinor int64
	PlanCode    string
	Metadata    Metadata
}

// PaymentReference is what the caller needs to complete a checkout;
// the Code doubles as the verify handle.
type PaymentReference struct {
	Code        string `json:"code"`
	CheckoutURL string `json:"checkout_url,omitempty"`
	// Confirmation is non-nil only for adapters that settle synchronously
	// (manual settlement).
	Confirmation *Confirmation `json:"-"`
}

// Confirmation is the normalized assertion that a payment completed,
// sourced from a webhook or a synchronous verify call.
type Confirmation struct {
	Provider types.PaymentProvider `json:"provider"`
	// TransactionID is the idempotency key.
	TransactionID string `json:"transaction_id"`
	// Amount is in the major currency unit.
	Amount int64 `json:"amount"`
	// Channel is the provider-reported payment method; may be empty.
	Channel          string         `json:"channel"`
	PaidAt           time.Time      `json:"paid_at"`
	SubscriptionCode string         `json:"subscription_code,omitempty"`
	Metadata         Metadata       `json:"metadata"`
	Raw              map[string]any `json:"-"`
}

// Adapter is the capability contract every payment backend implements.
// Manual settlement implements it with Initialize settling synchronously and
// DisableRecurring as a no-op.
type Adapter interface {
	Initialize(ctx context.Context, req *InitializeRequest) (*PaymentReference, error)
	Verify(ctx context.Context, reference string) (*Confirmation, error)
	// DisableRecurring is best-effort remote cancellation. Local state stays
	// authoritative whether or not it succeeds.
	DisableRecurring(ctx context.Context, subscriptionCode string) error
}

// Registry maps providers to their adapters, built once at startup.
type Registry map[types.PaymentProvider]Adapter

func (r Registry) Get(p types.PaymentProvider) (Adapter, error) {
	a, ok := r[p]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", p)
	}
	return a, nil
}
