package ledger

import (
	"time"

	"gorm.io/gorm/clause"

	"github.com/tierbill/tierbill/pkg/types"
)

// TransactionFilter is a conjunction over ledger fields; zero-valued fields
// are unconstrained.
type TransactionFilter struct {
	Provider        types.PaymentProvider   `json:"provider,omitempty"`
	Status          types.TransactionStatus `json:"status,omitempty"`
	UserID          string                  `json:"user_id,omitempty"`
	Plan            string                  `json:"plan,omitempty"`
	BillingCycle    types.BillingCycle      `json:"billing_cycle,omitempty"`
	PaymentMethod   string                  `json:"payment_method,omitempty"`
	TransactionID   string                  `json:"transaction_id,omitempty"`
	ReferenceID     string                  `json:"reference_id,omitempty"`
	TransactionType types.TransactionType   `json:"transaction_type,omitempty"`
	CreatedFrom     *time.Time              `json:"created_from,omitempty"`
	CreatedTo       *time.Time              `json:"created_to,omitempty"`
}

// Exprs returns the GORM clause expressions for every constrained field.
func (f *TransactionFilter) Exprs() []clause.Expression {
	if f == nil {
		return nil
	}
	var exprs []clause.Expression
	eq := func(column string, v any, set bool) {
		if set {
			exprs = append(exprs, clause.Eq{Column: clause.Column{Name: column}, Value: v})
		}
	}
	eq("payment_provider", f.Provider, f.Provider != "")
	eq("status", f.Status, f.Status != "")
	eq("user_id", f.UserID, f.UserID != "")
	eq("plan", f.Plan, f.Plan != "")
	eq("billing_cycle", f.BillingCycle, f.BillingCycle != "")
	eq("payment_method", f.PaymentMethod, f.PaymentMethod != "")
	eq("transaction_id", f.TransactionID, f.TransactionID != "")
	eq("reference_id", f.ReferenceID, f.ReferenceID != "")
	eq("transaction_type", f.TransactionType, f.TransactionType != "")
	if f.CreatedFrom != nil {
		exprs = append(exprs, clause.Gte{Column: clause.Column{Name: "created_at"}, Value: *f.CreatedFrom})
	}
	if f.CreatedTo != nil {
		exprs = append(exprs, clause.Lte{Column: clause.Column{Name: "created_at"}, Value: *f.CreatedTo})
	}
	return exprs
}

// Build implements clause.Expression so the filter can drop straight into a
// WHERE clause. No constraints builds to a tautology.
func (f *TransactionFilter) Build(builder clause.Builder) {
	exprs := f.Exprs()
	if len(exprs) == 0 {
		builder.WriteString("1=1")
		return
	}
	clause.And(exprs...).Build(builder)
}
