package models

import (
	"time"

	"github.com/tierbill/tierbill/pkg/types"
)

// Subscription is the single mutable subscription fact per user.
// Use Valid() to determine whether the subscription currently grants access.
type Subscription struct {
	ID     string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string                   `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`
	Plan   string                   `gorm:"column:plan;type:varchar(64)" json:"plan"`
	Status types.SubscriptionStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	// TransactionID is the last provider-assigned or locally generated
	// transaction identifier; empty while no confirmed payment is linked.
	TransactionID string `gorm:"column:transaction_id;type:varchar(128)" json:"transaction_id"`
	// SubscriptionCode is the provider-side recurring-subscription handle;
	// empty for providers without one. Provider records which backend owns
	// the handle so cancellation can route the remote disable.
	SubscriptionCode string                `gorm:"column:subscription_code;type:varchar(128)" json:"subscription_code"`
	Provider         types.PaymentProvider `gorm:"column:provider;type:varchar(32)" json:"provider"`
	ExpiresAt        *time.Time            `gorm:"column:expires_at;default:null" json:"expires_at"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

func (s *Subscription) Valid() bool {
	return s != nil &&
		s.Status == types.SubscriptionStatusActive &&
		s.ExpiresAt != nil &&
		s.ExpiresAt.After(time.Now())
}
