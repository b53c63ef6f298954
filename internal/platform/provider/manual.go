package provider

import (
	"context"
	"time"

	"github.com/tierbill/tierbill/pkg/tool"
	"github.com/tierbill/tierbill/pkg/types"
)

// Manual settles offline payments (cash, bank transfer recorded by staff).
// Initialize succeeds synchronously with a locally generated transaction id
// and carries its own Confirmation; there is no remote side to disable.
type Manual struct{}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) Initialize(ctx context.Context, req *InitializeRequest) (*PaymentReference, error) {
	if err := req.Metadata.Validate(); err != nil {
		return nil, err
	}
	txID := tool.GenerateTransactionID(string(req.Metadata.TransactionType), string(types.PaymentProviderManual))
	return &PaymentReference{
		Code: txID,
		Confirmation: &Confirmation{
			Provider:      types.PaymentProviderManual,
			TransactionID: txID,
			Amount:        req.AmountMinor / 100,
			PaidAt:        time.Now(),
			Metadata:      req.Metadata,
		},
	}, nil
}

func (m *Manual) Verify(ctx context.Context, reference string) (*Confirmation, error) {
	// Manual payments are confirmed at record time; there is nothing to poll.
	return nil, ErrProviderRejected
}

func (m *Manual) DisableRecurring(ctx context.Context, subscriptionCode string) error {
	return nil
}
