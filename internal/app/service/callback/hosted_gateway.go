package callback

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tierbill/tierbill/internal/platform/provider"
	"github.com/tierbill/tierbill/pkg/types"
)

// gatewaySignatureHeader carries the hex HMAC-SHA512 of the raw body, keyed
// with the webhook secret.
const gatewaySignatureHeader = "X-Gateway-Signature"

const gatewayEventChargeSuccess = "charge.success"

type gatewayEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID        json.Number `json:"id"`
		Reference string      `json:"reference"`
		// Amount is in the gateway's sub-unit.
		Amount           int64             `json:"amount"`
		Channel          string            `json:"channel"`
		PaidAt           time.Time         `json:"paid_at"`
		SubscriptionCode string            `json:"subscription_code"`
		Metadata         provider.Metadata `json:"metadata"`
	} `json:"data"`
}

// HostedGatewayParser authenticates hosted gateway webhooks by recomputing
// the body HMAC.
type HostedGatewayParser struct {
	secret []byte
}

func NewHostedGatewayParser(secret string) *HostedGatewayParser {
	return &HostedGatewayParser{secret: []byte(secret)}
}

func (p *HostedGatewayParser) Parse(header http.Header, body []byte) (*Parsed, error) {
	mac := hmac.New(sha512.New, p.secret)
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	got := header.Get(gatewaySignatureHeader)
	if got == "" || !hmac.Equal([]byte(want), []byte(got)) {
		return nil, ErrBadSignature
	}

	var event gatewayEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to decode gateway event: %w", err)
	}
	if event.Event != gatewayEventChargeSuccess {
		return nil, fmt.Errorf("%w: %s", ErrIgnoredEvent, event.Event)
	}

	txID := event.Data.ID.String()
	if txID == "" {
		txID = event.Data.Reference
	}
	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	return &Parsed{
		Confirmation: &provider.Confirmation{
			Provider:         types.PaymentProviderHostedGateway,
			TransactionID:    txID,
			Amount:           event.Data.Amount / 100,
			Channel:          event.Data.Channel,
			PaidAt:           event.Data.PaidAt,
			SubscriptionCode: event.Data.SubscriptionCode,
			Metadata:         event.Data.Metadata,
			Raw:              raw,
		},
		Reference: event.Data.Reference,
	}, nil
}
