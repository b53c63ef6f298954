package callback

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tierbill/tierbill/internal/app/service/orchestrator"
	"github.com/tierbill/tierbill/internal/models"
	"github.com/tierbill/tierbill/internal/platform/provider"
	"github.com/tierbill/tierbill/pkg/config"
	"github.com/tierbill/tierbill/pkg/types"
)

type captureSink struct {
	mu   sync.Mutex
	rows []*models.CallbackLog
}

func (c *captureSink) Save(_ context.Context, entry *models.CallbackLog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *entry
	c.rows = append(c.rows, &cp)
}

type handlerUserStore struct {
	users map[string]*models.User
}

func (s *handlerUserStore) FindByID(_ context.Context, id string) (*models.User, error) {
	return s.users[id], nil
}

type handlerFactStore struct {
	mu     sync.Mutex
	facts  map[string]*models.Subscription
	ledger []*models.Transaction
}

func (f *handlerFactStore) Get(_ context.Context, userID string) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.facts[userID], nil
}

func (f *handlerFactStore) ApplyConfirmation(_ context.Context, fact *models.Subscription, rec *models.Transaction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.ledger {
		if t.TransactionID == rec.TransactionID {
			return false, nil
		}
	}
	f.facts[fact.UserID] = fact
	f.ledger = append(f.ledger, rec)
	return true, nil
}

func (f *handlerFactStore) ReplacePlan(_ context.Context, fact *models.Subscription, rec *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.facts[fact.UserID] = fact
	f.ledger = append(f.ledger, rec)
	return nil
}

func (f *handlerFactStore) SetInactive(_ context.Context, userID string, _ types.SubscriptionChangeReason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fact, ok := f.facts[userID]; ok {
		fact.Status = types.SubscriptionStatusInactive
	}
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *captureSink) {
	t.Helper()
	cfg := &config.Config{
		Tiers: []*types.Tier{{
			Name: "premium",
			BillingCycles: map[types.BillingCycle]*types.TierBillingCycle{
				types.BillingCycleMonthly: {PriceMajor: 5000, DurationInDays: 30, ProviderPlanCode: "PLN_premium_m"},
			},
		}},
		HostedGateway: config.HostedGatewayConfig{WebhookSecret: testSecret},
		CardProcessor: config.CardProcessorConfig{WebhookSecret: testSecret},
	}
	log := zap.NewNop().Sugar()
	orch := orchestrator.NewService(
		cfg,
		&handlerUserStore{users: map[string]*models.User{
			"u1": {ID: "u1", Username: "user one", Email: "u1@example.com"},
		}},
		&handlerFactStore{facts: map[string]*models.Subscription{}},
		provider.Registry{},
		nil,
		nil,
		log,
	)
	sink := &captureSink{}
	return NewHandler(cfg, orch, provider.Registry{}, sink, log), sink
}

func gatewayChargeBody() []byte {
	return []byte(`{
		"event": "charge.success",
		"data": {
			"id": 4039571234,
			"reference": "ref_abc",
			"amount": 500000,
			"channel": "card",
			"paid_at": "2026-03-01T12:00:00Z",
			"subscription_code": "SUB_xyz",
			"metadata": {
				"user_id": "u1",
				"plan": "premium",
				"billing_cycle": "monthly",
				"duration_in_days": 30,
				"transaction_type": "subscription"
			}
		}
	}`)
}

func TestHandleWritesReceiptAndOutcomeRows(t *testing.T) {
	h, sink := newTestHandler(t)
	body := gatewayChargeBody()

	res, err := h.Handle(context.Background(), types.PaymentProviderHostedGateway, signGatewayBody(body), body)
	require.NoError(t, err)
	require.NotNil(t, res.Transaction)

	require.Len(t, sink.rows, 2)
	received, outcome := sink.rows[0], sink.rows[1]

	assert.Equal(t, models.CallbackLogStatusReceived, received.Status)
	assert.Equal(t, models.CallbackLogStatusHandled, outcome.Status)
	// Independent rows: the receipt write may land after the outcome write
	// without clobbering it, so the two must never share a primary key.
	assert.NotEqual(t, received.ID, outcome.ID)
	assert.Equal(t, "4039571234", outcome.TransactionID)
	require.NotNil(t, outcome.UserID)
	assert.Equal(t, "u1", *outcome.UserID)
	require.NotNil(t, outcome.Result)
	assert.Contains(t, string(*outcome.Result), "4039571234")
	assert.Nil(t, received.Result)
}

func TestHandleReplayRecordedAsHandled(t *testing.T) {
	h, sink := newTestHandler(t)
	body := gatewayChargeBody()
	header := signGatewayBody(body)

	_, err := h.Handle(context.Background(), types.PaymentProviderHostedGateway, header, body)
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), types.PaymentProviderHostedGateway, header, body)
	assert.ErrorIs(t, err, orchestrator.ErrDuplicateConfirmation)

	require.Len(t, sink.rows, 4)
	assert.Equal(t, models.CallbackLogStatusHandled, sink.rows[3].Status)
	require.NotNil(t, sink.rows[3].Result)
	assert.Contains(t, string(*sink.rows[3].Result), "already processed")
}

func TestHandleBadSignatureRecordedAsFailed(t *testing.T) {
	h, sink := newTestHandler(t)
	body := gatewayChargeBody()

	_, err := h.Handle(context.Background(), types.PaymentProviderHostedGateway, nil, body)
	assert.ErrorIs(t, err, ErrBadSignature)

	require.Len(t, sink.rows, 2)
	assert.Equal(t, models.CallbackLogStatusReceived, sink.rows[0].Status)
	assert.Equal(t, models.CallbackLogStatusHandleFailed, sink.rows[1].Status)
}
