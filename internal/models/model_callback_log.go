package models

import (
	"time"

	"gorm.io/datatypes"
)

type CallbackLogStatus string

const (
	CallbackLogStatusReceived     CallbackLogStatus = "received"
	CallbackLogStatusHandled      CallbackLogStatus = "handled"
	CallbackLogStatusHandleFailed CallbackLogStatus = "handle_failed"
)

// CallbackLog is the audit trail of provider callbacks. Every webhook is
// logged on receipt and again after handling, so failed or split writes can
// be reconciled from the raw payload.
type CallbackLog struct {
	ID            string            `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Provider      string            `gorm:"column:provider;type:varchar(64);not null" json:"provider"`
	UserID        *string           `gorm:"column:user_id;type:varchar(64)" json:"user_id"`
	TraceID       string            `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	TransactionID string            `gorm:"column:transaction_id;type:varchar(128);index" json:"transaction_id"`
	ReceivedAt    time.Time         `gorm:"column:received_at" json:"received_at"`
	Data          datatypes.JSON    `gorm:"column:data;type:jsonb" json:"data"`
	Result        *datatypes.JSON   `gorm:"column:result;type:jsonb" json:"result"`
	Status        CallbackLogStatus `gorm:"column:status;type:varchar(64);not null" json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func (CallbackLog) TableName() string {
	return "callback_log"
}
