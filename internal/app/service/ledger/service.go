package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tierbill/tierbill/internal/models"
)

// Service is the read side of the ledger. Writes happen only through the
// subscription store so that fact and ledger move together.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

type ListRequest struct {
	Filter *TransactionFilter `json:"filter"`
	From   int                `json:"from"`
	Size   int                `json:"size"`
}

type ListResponse struct {
	Items []*models.Transaction `json:"items"`
	Total int64                 `json:"total"`
}

// List returns matching ledger rows ordered by creation time, newest first.
func (s *Service) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 50
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Transaction{})
	if req.Filter != nil {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{req.Filter}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	var rows []*models.Transaction
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: "created_at"}, Desc: true}}})
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return &ListResponse{Items: rows, Total: total}, nil
}

// FindByTransactionID returns nil when no row carries the id.
func (s *Service) FindByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var row models.Transaction
	err := s.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
