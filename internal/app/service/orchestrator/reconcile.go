package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tierbill/tierbill/pkg/logctx"
	"github.com/tierbill/tierbill/pkg/metrics"
	"github.com/tierbill/tierbill/pkg/types"
)

// Inconsistency is an active subscription fact whose activating transaction
// id has no successful ledger row backing it.
type Inconsistency struct {
	UserID        string     `json:"user_id" gorm:"column:user_id"`
	Plan          string     `json:"plan" gorm:"column:plan"`
	TransactionID string     `json:"transaction_id" gorm:"column:transaction_id"`
	ExpiresAt     *time.Time `json:"expires_at" gorm:"column:expires_at"`
}

// Reconciler audits the fact table against the ledger. It only reads; fixing
// a reported row is an operator decision.
type Reconciler struct {
	db      *gorm.DB
	metrics *metrics.Prometheus
	log     *zap.SugaredLogger
}

func NewReconciler(db *gorm.DB, m *metrics.Prometheus, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{db: db, metrics: m, log: log}
}

// DetectInconsistencies lists active facts that are not backed by a success
// ledger row. An activating write couples both tables in one transaction, so
// any hit here means out-of-band mutation or data loss.
func (r *Reconciler) DetectInconsistencies(ctx context.Context) ([]*Inconsistency, error) {
	var rows []*Inconsistency
	err := r.db.WithContext(ctx).
		Table("subscription AS s").
		Select("s.user_id, s.plan, s.transaction_id, s.expires_at").
		Joins("LEFT JOIN transaction AS t ON t.transaction_id = s.transaction_id AND t.status = ?", types.TransactionStatusSuccess).
		Where("s.status = ?", types.SubscriptionStatusActive).
		Where("s.transaction_id <> ''").
		Where("t.id IS NULL").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if ierr := inconsistencyError(rows); ierr != nil {
		if r.metrics != nil {
			r.metrics.LedgerInconsistencies.Add(float64(len(rows)))
		}
		logctx.FromCtx(ctx, r.log).Warnw("ledger inconsistencies detected",
			"err", ierr, "count", len(rows), "users", affectedUsers(rows))
	}
	return rows, nil
}

// inconsistencyError folds detected rows into ErrLedgerInconsistency so the
// report is never silently swallowed and stays matchable with errors.Is.
func inconsistencyError(rows []*Inconsistency) error {
	if len(rows) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d active subscriptions lack a success ledger row", ErrLedgerInconsistency, len(rows))
}

func affectedUsers(rows []*Inconsistency) []string {
	users := make([]string, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.UserID)
	}
	return users
}
