package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tierbill/tierbill/pkg/config"
)

func newProcessor(t *testing.T, handler http.HandlerFunc) *CardProcessor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCardProcessor(config.CardProcessorConfig{
		BaseURL: srv.URL,
		APIKey:  "pk_test",
	}, zap.NewNop().Sugar())
}

func TestCardProcessorInitialize(t *testing.T) {
	p := newProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/charges", r.URL.Path)
		require.Equal(t, "Bearer pk_test", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           "ch_123",
			"status":       "pending",
			"checkout_url": "https://processor.example/pay/ch_123",
		})
	})

	ref, err := p.Initialize(context.Background(), &InitializeRequest{
		UserEmail:   "ada@example.com",
		AmountMinor: 500000,
		PlanCode:    "PLN_premium_m",
		Metadata:    validMetadata(),
	})
	require.NoError(t, err)
	assert.Equal(t, "ch_123", ref.Code)
	assert.Equal(t, "https://processor.example/pay/ch_123", ref.CheckoutURL)
}

func TestCardProcessorInitializeRejected(t *testing.T) {
	p := newProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "card_error", "message": "card declined"},
		})
	})

	_, err := p.Initialize(context.Background(), &InitializeRequest{
		UserEmail:   "ada@example.com",
		AmountMinor: 500000,
		Metadata:    validMetadata(),
	})
	assert.ErrorIs(t, err, ErrProviderRejected)
	assert.Contains(t, err.Error(), "card declined")
}

func TestCardProcessorVerify(t *testing.T) {
	p := newProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/charges/ch_123", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             "ch_123",
			"status":         "succeeded",
			"amount":         500000,
			"payment_method": "card",
			"paid_at":        1774958400,
			"subscription":   "sub_001",
			"metadata":       validMetadata(),
		})
	})

	conf, err := p.Verify(context.Background(), "ch_123")
	require.NoError(t, err)
	assert.Equal(t, "ch_123", conf.TransactionID)
	assert.Equal(t, int64(5000), conf.Amount)
	assert.Equal(t, "sub_001", conf.SubscriptionCode)
}

func TestCardProcessorVerifyNotSucceeded(t *testing.T) {
	p := newProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "ch_123", "status": "pending"})
	})

	_, err := p.Verify(context.Background(), "ch_123")
	assert.ErrorIs(t, err, ErrProviderRejected)
}

func TestCardProcessorUnavailable(t *testing.T) {
	p := newProcessor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := p.Verify(context.Background(), "ch_123")
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	err = p.DisableRecurring(context.Background(), "sub_001")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}
