package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tierbill/tierbill/pkg/types"
)

// SubscriptionLog records every change to a user's subscription fact.
// Use case: troubleshooting and reconciliation.
type SubscriptionLog struct {
	ID     string `gorm:"column:id;type:uuid;primary_key"`
	UserID string `gorm:"column:user_id;type:varchar(64);index:idx_sub_log_user;not null"`
	// Reason is the change reason.
	Reason types.SubscriptionChangeReason `gorm:"column:reason;type:varchar(64);not null"`
	// Before stores the fact before the change in JSON format.
	Before datatypes.JSONType[*Subscription] `gorm:"column:before;type:jsonb;default:'null'"`
	// After stores the fact after the change in JSON format.
	After datatypes.JSONType[*Subscription] `gorm:"column:after;type:jsonb;default:'null'"`
	// Extra stores additional context such as the triggering transaction id.
	Extra     datatypes.JSONMap `gorm:"column:extra;type:jsonb;default:'{}'"`
	CreatedAt time.Time
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
