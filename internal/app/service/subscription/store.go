package subscription

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tierbill/tierbill/internal/models"
	"github.com/tierbill/tierbill/pkg/logctx"
	"github.com/tierbill/tierbill/pkg/tool"
	"github.com/tierbill/tierbill/pkg/types"
)

// Store owns all writes to the subscription fact and the ledger. The
// orchestrator is its only caller; no other component may touch either table.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewStore(db *gorm.DB, log *zap.SugaredLogger) *Store {
	return &Store{db: db, log: log}
}

// Get returns the user's subscription fact, or nil when none exists yet.
func (s *Store) Get(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// ApplyConfirmation writes the fact transition and the ledger row for one
// confirmed payment in a single database transaction, keyed on the record's
// transaction id. It reports applied=false when a row with the same
// transaction id already exists, including when a concurrent apply wins the
// race on the unique index.
func (s *Store) ApplyConfirmation(ctx context.Context, fact *models.Subscription, rec *models.Transaction) (bool, error) {
	var before *models.Subscription
	applied := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Transaction
		err := tx.Where("transaction_id = ?", rec.TransactionID).First(&existing).Error
		if err == nil {
			return nil // already processed
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check existing transaction: %w", err)
		}

		before, err = s.upsertFactTx(ctx, tx, fact)
		if err != nil {
			return err
		}

		if rec.ID == "" {
			rec.ID = tool.GenerateUUIDV7()
		}
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to append ledger record: %w", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		// Two deliveries of the same transaction id can both pass the read
		// check; the unique index decides the winner.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}

	if applied {
		s.logChange(ctx, before, fact, changeReason(rec), rec.TransactionID)
	}
	return applied, nil
}

// ReplacePlan writes the plan-change fact (left inactive until the next
// confirmation) and its upgrade/downgrade ledger row atomically.
func (s *Store) ReplacePlan(ctx context.Context, fact *models.Subscription, rec *models.Transaction) error {
	var before *models.Subscription

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		before, err = s.upsertFactTx(ctx, tx, fact)
		if err != nil {
			return err
		}
		if rec.ID == "" {
			rec.ID = tool.GenerateUUIDV7()
		}
		if err := tx.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to append ledger record: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logChange(ctx, before, fact, types.SubscriptionChangeReasonPlanChange, rec.TransactionID)
	return nil
}

// SetInactive deactivates the fact without touching the ledger; cancellation
// never produces a ledger entry.
func (s *Store) SetInactive(ctx context.Context, userID string, reason types.SubscriptionChangeReason) error {
	var before, after *models.Subscription

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sub models.Subscription
		if err := tx.Where("user_id = ?", userID).First(&sub).Error; err != nil {
			return fmt.Errorf("failed to load subscription: %w", err)
		}
		cp := sub
		before = &cp
		sub.Status = types.SubscriptionStatusInactive
		if err := tx.Save(&sub).Error; err != nil {
			return fmt.Errorf("failed to deactivate subscription: %w", err)
		}
		after = &sub
		return nil
	})
	if err != nil {
		return err
	}

	s.logChange(ctx, before, after, reason, "")
	return nil
}

// upsertFactTx saves the fact preserving identity of an existing row.
func (s *Store) upsertFactTx(ctx context.Context, tx *gorm.DB, fact *models.Subscription) (*models.Subscription, error) {
	var original models.Subscription
	err := tx.Where("user_id = ?", fact.UserID).First(&original).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load original subscription: %w", err)
	}

	var before *models.Subscription
	if original.ID != "" {
		cp := original
		before = &cp
		fact.ID = original.ID
		fact.CreatedAt = original.CreatedAt
	} else if fact.ID == "" {
		fact.ID = tool.GenerateUUIDV7()
	}

	if err := tx.Save(fact).Error; err != nil {
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return before, nil
}

// logChange writes the change log asynchronously; errors are logged, never
// returned.
func (s *Store) logChange(ctx context.Context, before, after *models.Subscription, reason types.SubscriptionChangeReason, transactionID string) {
	go func() {
		entry := &models.SubscriptionLog{
			ID:     tool.GenerateUUIDV7(),
			UserID: after.UserID,
			Reason: reason,
			Before: datatypes.NewJSONType(before),
			After:  datatypes.NewJSONType(after),
			Extra:  datatypes.JSONMap{},
		}
		if transactionID != "" {
			entry.Extra["transaction_id"] = transactionID
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}()
}

func changeReason(rec *models.Transaction) types.SubscriptionChangeReason {
	if rec.PaymentProvider == types.PaymentProviderManual {
		return types.SubscriptionChangeReasonManual
	}
	return types.SubscriptionChangeReasonPurchase
}
