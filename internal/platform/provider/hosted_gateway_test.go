package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tierbill/tierbill/pkg/config"
	"github.com/tierbill/tierbill/pkg/types"
)

func validMetadata() Metadata {
	return Metadata{
		UserID:          "u1",
		Plan:            "premium",
		BillingCycle:    types.BillingCycleMonthly,
		DurationInDays:  30,
		TransactionType: types.TransactionTypeSubscription,
	}
}

func newGateway(t *testing.T, handler http.HandlerFunc) (*HostedGateway, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g := NewHostedGateway(config.HostedGatewayConfig{
		BaseURL:     srv.URL,
		SecretKey:   "sk_test",
		CallbackURL: "https://app.example/callback",
	}, zap.NewNop().Sugar())
	return g, srv
}

func TestHostedGatewayInitialize(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	g, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/subscription", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"reference":         "ref_xyz",
				"authorization_url": "https://gateway.example/pay/ref_xyz",
			},
		})
	})

	ref, err := g.Initialize(context.Background(), &InitializeRequest{
		UserEmail:   "ada@example.com",
		AmountMinor: 500000,
		PlanCode:    "PLN_premium_m",
		Metadata:    validMetadata(),
	})
	require.NoError(t, err)
	assert.Equal(t, "ref_xyz", ref.Code)
	assert.Equal(t, "https://gateway.example/pay/ref_xyz", ref.CheckoutURL)
	assert.Equal(t, "Bearer sk_test", gotAuth)
	assert.Equal(t, "ada@example.com", gotBody["email"])
	assert.Equal(t, float64(500000), gotBody["amount"])
	assert.Equal(t, "https://app.example/callback", gotBody["callback_url"])
}

func TestHostedGatewayInitializeRejected(t *testing.T) {
	g, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "invalid plan"})
	})

	_, err := g.Initialize(context.Background(), &InitializeRequest{
		UserEmail:   "ada@example.com",
		AmountMinor: 500000,
		Metadata:    validMetadata(),
	})
	assert.ErrorIs(t, err, ErrProviderRejected)
	assert.Contains(t, err.Error(), "invalid plan")
}

func TestHostedGatewayInitializeUnavailable(t *testing.T) {
	g, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := g.Initialize(context.Background(), &InitializeRequest{
		UserEmail:   "ada@example.com",
		AmountMinor: 500000,
		Metadata:    validMetadata(),
	})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestHostedGatewayInitializeConnectionRefused(t *testing.T) {
	g, srv := newGateway(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := g.Initialize(context.Background(), &InitializeRequest{
		UserEmail:   "ada@example.com",
		AmountMinor: 500000,
		Metadata:    validMetadata(),
	})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestHostedGatewayVerify(t *testing.T) {
	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/transaction/verify/ref_xyz", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data": map[string]any{
				"id":           "4039571234",
				"amount":       500000,
				"channel":      "card",
				"paid_at":      paidAt.Format(time.RFC3339),
				"subscription": map[string]any{"code": "SUB_xyz"},
				"metadata":     validMetadata(),
			},
		})
	})

	conf, err := g.Verify(context.Background(), "ref_xyz")
	require.NoError(t, err)
	assert.Equal(t, "4039571234", conf.TransactionID)
	assert.Equal(t, int64(5000), conf.Amount)
	assert.Equal(t, "SUB_xyz", conf.SubscriptionCode)
	assert.True(t, conf.PaidAt.Equal(paidAt))
	assert.Equal(t, "u1", conf.Metadata.UserID)
	// The raw gateway payload rides along, same as on the webhook path.
	require.NotNil(t, conf.Raw)
	assert.Equal(t, "4039571234", conf.Raw["id"])
	assert.Equal(t, "card", conf.Raw["channel"])
}

func TestHostedGatewayDisableRecurring(t *testing.T) {
	var called bool
	g, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		require.Equal(t, "/subscription/SUB_xyz/disable", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": true})
	})

	require.NoError(t, g.DisableRecurring(context.Background(), "SUB_xyz"))
	assert.True(t, called)

	// Empty code is a no-op.
	called = false
	require.NoError(t, g.DisableRecurring(context.Background(), ""))
	assert.False(t, called)
}
