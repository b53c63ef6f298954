package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tierbill/tierbill/pkg/types"
)

// TransactionExtra carries the tier pricing snapshot and the raw provider
// payload for a ledger row. The snapshot keeps the row interpretable even
// after the catalog changes.
type TransactionExtra struct {
	TierSnapshot *types.TierBillingCycle `json:"tier_snapshot,omitempty"`
	ProviderRaw  map[string]any          `json:"provider_raw,omitempty"`
}

// Transaction is one append-only ledger row, created once per accepted
// payment event and never mutated afterwards. User fields are denormalized
// snapshots so the ledger stays readable if the user record changes.
type Transaction struct {
	ID       string `gorm:"column:id;primary_key;type:uuid;index:idx_tx_user_id_id,priority:2,sort:desc" json:"id"`
	UserID   string `gorm:"column:user_id;type:varchar(64);not null;index:idx_tx_user_id_id,priority:1" json:"user_id"`
	UserName string `gorm:"column:user_name;type:varchar(128);not null" json:"user_name"`
	Email    string `gorm:"column:email;type:varchar(255);not null" json:"email"`

	Plan         string             `gorm:"column:plan;type:varchar(64);not null" json:"plan"`
	BillingCycle types.BillingCycle `gorm:"column:billing_cycle;type:varchar(32);not null" json:"billing_cycle"`
	// Amount is in the major currency unit, never sub-units.
	Amount          int64                 `gorm:"column:amount;type:bigint;not null" json:"amount"`
	TransactionType types.TransactionType `gorm:"column:transaction_type;type:varchar(32);not null" json:"transaction_type"`

	// TransactionID is the idempotency key for provider-confirmed events.
	TransactionID string `gorm:"column:transaction_id;type:varchar(128);not null;uniqueIndex" json:"transaction_id"`
	// ReferenceID is a secondary correlation id, generated locally.
	ReferenceID string `gorm:"column:reference_id;type:varchar(128);index" json:"reference_id"`

	PaymentProvider types.PaymentProvider `gorm:"column:payment_provider;type:varchar(32);not null" json:"payment_provider"`
	// PaymentMethod is the provider-reported channel; may be empty.
	PaymentMethod string `gorm:"column:payment_method;type:varchar(64)" json:"payment_method"`

	Status           types.TransactionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	SubscriptionCode string                  `gorm:"column:subscription_code;type:varchar(128)" json:"subscription_code"`
	PaidAt           time.Time               `gorm:"column:paid_at;default:null" json:"paid_at"`
	ExpiresAt        time.Time               `gorm:"column:expires_at;default:null" json:"expires_at"`

	Extra     datatypes.JSONType[*TransactionExtra] `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt time.Time                             `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transaction"
}

func (t *Transaction) GetTierSnapshot() *types.TierBillingCycle {
	if t == nil || t.Extra.Data() == nil {
		return nil
	}
	return t.Extra.Data().TierSnapshot
}
