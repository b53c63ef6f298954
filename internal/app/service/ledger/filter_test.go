package ledger

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/clause"

	"github.com/tierbill/tierbill/pkg/types"
)

// sqlBuilder is a minimal clause.Builder capturing generated SQL.
type sqlBuilder struct {
	strings.Builder
	vars []interface{}
}

func (b *sqlBuilder) WriteQuoted(field interface{}) {
	switch v := field.(type) {
	case clause.Column:
		b.WriteString(v.Name)
	default:
		b.WriteString(fmt.Sprint(field))
	}
}

func (b *sqlBuilder) AddVar(_ clause.Writer, vars ...interface{}) {
	b.vars = append(b.vars, vars...)
	b.WriteString("?")
}

func (b *sqlBuilder) AddError(err error) error { return err }

func TestTransactionFilterEmpty(t *testing.T) {
	var nilFilter *TransactionFilter
	assert.Nil(t, nilFilter.Exprs())

	f := &TransactionFilter{}
	assert.Empty(t, f.Exprs())

	b := &sqlBuilder{}
	f.Build(b)
	assert.Equal(t, "1=1", b.String())
}

func TestTransactionFilterExprs(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter *TransactionFilter
		want   int
	}{
		{name: "provider only", filter: &TransactionFilter{Provider: types.PaymentProviderManual}, want: 1},
		{name: "status and user", filter: &TransactionFilter{Status: types.TransactionStatusSuccess, UserID: "u1"}, want: 2},
		{name: "time range", filter: &TransactionFilter{CreatedFrom: &from, CreatedTo: &to}, want: 2},
		{
			name: "everything",
			filter: &TransactionFilter{
				Provider:        types.PaymentProviderHostedGateway,
				Status:          types.TransactionStatusSuccess,
				UserID:          "u1",
				Plan:            "premium",
				BillingCycle:    types.BillingCycleMonthly,
				PaymentMethod:   "card",
				TransactionID:   "tx_1",
				ReferenceID:     "ref_1",
				TransactionType: types.TransactionTypeSubscription,
				CreatedFrom:     &from,
				CreatedTo:       &to,
			},
			want: 11,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.filter.Exprs(), tt.want)
		})
	}
}

func TestTransactionFilterBuild(t *testing.T) {
	f := &TransactionFilter{UserID: "u1", Status: types.TransactionStatusSuccess}
	b := &sqlBuilder{}
	f.Build(b)

	sql := b.String()
	assert.Contains(t, sql, "status")
	assert.Contains(t, sql, "user_id")
	assert.Contains(t, sql, "AND")
	assert.Len(t, b.vars, 2)
}
