package callback

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tierbill/tierbill/internal/platform/provider"
	"github.com/tierbill/tierbill/pkg/types"
)

const testSecret = "whsec_test"

func signGatewayBody(body []byte) http.Header {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(body)
	h := http.Header{}
	h.Set(gatewaySignatureHeader, hex.EncodeToString(mac.Sum(nil)))
	return h
}

func TestHostedGatewayParser(t *testing.T) {
	p := NewHostedGatewayParser(testSecret)
	body := []byte(`{
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

	parsed, err := p.Parse(signGatewayBody(body), body)
	require.NoError(t, err)

	conf := parsed.Confirmation
	assert.Equal(t, types.PaymentProviderHostedGateway, conf.Provider)
	assert.Equal(t, "4039571234", conf.TransactionID)
	assert.Equal(t, int64(5000), conf.Amount)
	assert.Equal(t, "card", conf.Channel)
	assert.Equal(t, "SUB_xyz", conf.SubscriptionCode)
	assert.Equal(t, "u1", conf.Metadata.UserID)
	assert.Equal(t, 30, conf.Metadata.DurationInDays)
	assert.Equal(t, "ref_abc", parsed.Reference)
}

func TestHostedGatewayParserBadSignature(t *testing.T) {
	p := NewHostedGatewayParser(testSecret)
	body := []byte(`{"event":"charge.success","data":{"reference":"ref_abc"}}`)

	tests := []struct {
		name   string
		header http.Header
	}{
		{name: "missing header", header: http.Header{}},
		{name: "wrong signature", header: func() http.Header {
			h := http.Header{}
			h.Set(gatewaySignatureHeader, "deadbeef")
			return h
		}()},
		{name: "signed with other key", header: func() http.Header {
			mac := hmac.New(sha512.New, []byte("other"))
			mac.Write(body)
			h := http.Header{}
			h.Set(gatewaySignatureHeader, hex.EncodeToString(mac.Sum(nil)))
			return h
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.header, body)
			assert.ErrorIs(t, err, ErrBadSignature)
		})
	}
}

func TestHostedGatewayParserIgnoredEvent(t *testing.T) {
	p := NewHostedGatewayParser(testSecret)
	body := []byte(`{"event":"subscription.disable","data":{"reference":"ref_abc"}}`)
	_, err := p.Parse(signGatewayBody(body), body)
	assert.ErrorIs(t, err, ErrIgnoredEvent)
}

func signProcessorBody(t *testing.T, secret string, claims *processorClaims) []byte {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return []byte(token)
}

func TestCardProcessorParser(t *testing.T) {
	p := NewCardProcessorParser(testSecret)
	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	body := signProcessorBody(t, testSecret, &processorClaims{
		Event:         processorEventChargeSucceeded,
		ChargeID:      "ch_123",
		AmountMinor:   500000,
		PaymentMethod: "card",
		PaidAtUnix:    paidAt.Unix(),
		Metadata: provider.Metadata{
			UserID:          "u1",
			Plan:            "premium",
			BillingCycle:    types.BillingCycleMonthly,
			DurationInDays:  30,
			TransactionType: types.TransactionTypeSubscription,
		},
	})

	parsed, err := p.Parse(http.Header{}, body)
	require.NoError(t, err)

	conf := parsed.Confirmation
	assert.Equal(t, types.PaymentProviderCardProcessor, conf.Provider)
	assert.Equal(t, "ch_123", conf.TransactionID)
	assert.Equal(t, int64(5000), conf.Amount)
	assert.True(t, conf.PaidAt.Equal(paidAt))
	assert.Equal(t, "u1", conf.Metadata.UserID)
}

func TestCardProcessorParserBadSignature(t *testing.T) {
	p := NewCardProcessorParser(testSecret)

	body := signProcessorBody(t, "wrong-secret", &processorClaims{
		Event:    processorEventChargeSucceeded,
		ChargeID: "ch_123",
	})
	_, err := p.Parse(http.Header{}, body)
	assert.ErrorIs(t, err, ErrBadSignature)

	_, err = p.Parse(http.Header{}, []byte("not-a-token"))
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestCardProcessorParserIgnoredEvent(t *testing.T) {
	p := NewCardProcessorParser(testSecret)
	body := signProcessorBody(t, testSecret, &processorClaims{
		Event:    "charge.refunded",
		ChargeID: "ch_123",
	})
	_, err := p.Parse(http.Header{}, body)
	assert.ErrorIs(t, err, ErrIgnoredEvent)
}
