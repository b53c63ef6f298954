package callback

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/tierbill/tierbill/internal/platform/provider"
	"github.com/tierbill/tierbill/pkg/types"
)

const processorEventChargeSucceeded = "charge.succeeded"

// processorClaims is the JWS payload the card processor signs with the
// shared webhook secret.
type processorClaims struct {
	jwt.StandardClaims
	Event    string `json:"event"`
	ChargeID string `json:"charge_id"`
	// AmountMinor is in the processor's sub-unit.
	AmountMinor      int64             `json:"amount"`
	PaymentMethod    string            `json:"payment_method"`
	PaidAtUnix       int64             `json:"paid_at"`
	SubscriptionCode string            `json:"subscription,omitempty"`
	Metadata         provider.Metadata `json:"metadata"`
}

// CardProcessorParser verifies the processor's JWS-signed webhook body.
type CardProcessorParser struct {
	secret []byte
}

func NewCardProcessorParser(secret string) *CardProcessorParser {
	return &CardProcessorParser{secret: []byte(secret)}
}

func (p *CardProcessorParser) Parse(_ http.Header, body []byte) (*Parsed, error) {
	claims := &processorClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(string(body)), claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrBadSignature
	}
	if claims.Event != processorEventChargeSucceeded {
		return nil, fmt.Errorf("%w: %s", ErrIgnoredEvent, claims.Event)
	}
	if claims.ChargeID == "" {
		return nil, fmt.Errorf("processor webhook has no charge id")
	}

	var paidAt time.Time
	if claims.PaidAtUnix > 0 {
		paidAt = time.Unix(claims.PaidAtUnix, 0)
	}
	return &Parsed{
		Confirmation: &provider.Confirmation{
			Provider:         types.PaymentProviderCardProcessor,
			TransactionID:    claims.ChargeID,
			Amount:           claims.AmountMinor / 100,
			Channel:          claims.PaymentMethod,
			PaidAt:           paidAt,
			SubscriptionCode: claims.SubscriptionCode,
			Metadata:         claims.Metadata,
			Raw: map[string]any{
				"event":     claims.Event,
				"charge_id": claims.ChargeID,
			},
		},
		Reference: claims.ChargeID,
	}, nil
}
