package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tierbill/tierbill/pkg/config"
	"github.com/tierbill/tierbill/pkg/types"
)

// HostedGateway talks to the hosted checkout gateway over its REST API.
// The gateway redirects the user to a hosted page and confirms asynchronously
// via webhook; Verify exists for defense-in-depth re-checks.
type HostedGateway struct {
	cfg  config.HostedGatewayConfig
	http *http.Client
	log  *zap.SugaredLogger
}

func NewHostedGateway(cfg config.HostedGatewayConfig, log *zap.SugaredLogger) *HostedGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HostedGateway{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

type gatewayEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type gatewayInitData struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
}

type gatewayVerifyData struct {
	ID           string         `json:"id"`
	AmountMinor  int64          `json:"amount"`
	Channel      string         `json:"channel"`
	PaidAt       time.Time      `json:"paid_at"`
	Subscription struct {
		Code string `json:"code"`
	} `json:"subscription"`
	Metadata Metadata `json:"metadata"`
}

func (g *HostedGateway) Initialize(ctx context.Context, req *InitializeRequest) (*PaymentReference, error) {
	if err := req.Metadata.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}
	body := map[string]any{
		"email":        req.UserEmail,
		"amount":       req.AmountMinor,
		"plan":         req.PlanCode,
		"callback_url": g.cfg.CallbackURL,
		"metadata":     req.Metadata,
	}
	var data gatewayInitData
	if _, err := g.call(ctx, http.MethodPost, "/subscription", body, &data); err != nil {
		return nil, err
	}
	if data.Reference == "" {
		return nil, fmt.Errorf("%w: empty reference in response", ErrProviderRejected)
	}
	return &PaymentReference{Code: data.Reference, CheckoutURL: data.AuthorizationURL}, nil
}

func (g *HostedGateway) Verify(ctx context.Context, reference string) (*Confirmation, error) {
	var data gatewayVerifyData
	payload, err := g.call(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &data)
	if err != nil {
		return nil, err
	}
	if data.ID == "" {
		return nil, fmt.Errorf("%w: verify response has no transaction id", ErrProviderRejected)
	}
	// Verify-sourced confirmations keep the gateway's payload the same way
	// webhook-sourced ones do, so the ledger extra is uniform.
	var raw map[string]any
	_ = json.Unmarshal(payload, &raw)
	return &Confirmation{
		Provider:         types.PaymentProviderHostedGateway,
		TransactionID:    data.ID,
		Amount:           data.AmountMinor / 100,
		Channel:          data.Channel,
		PaidAt:           data.PaidAt,
		SubscriptionCode: data.Subscription.Code,
		Metadata:         data.Metadata,
		Raw:              raw,
	}, nil
}

func (g *HostedGateway) DisableRecurring(ctx context.Context, subscriptionCode string) error {
	if subscriptionCode == "" {
		return nil
	}
	_, err := g.call(ctx, http.MethodPost, "/subscription/"+subscriptionCode+"/disable", map[string]any{}, nil)
	return err
}

// call performs one authenticated round-trip and returns the envelope's data
// payload. Transport failures map to ErrProviderUnavailable, gateway
// refusals to ErrProviderRejected.
func (g *HostedGateway) call(ctx context.Context, method, path string, body any, out any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal gateway request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: gateway returned %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: gateway returned %d: %s", ErrProviderRejected, resp.StatusCode, truncate(raw, 256))
	}

	var env gatewayEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err)
	}
	if !env.Status {
		return nil, fmt.Errorf("%w: %s", ErrProviderRejected, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("%w: decode response data: %v", ErrProviderUnavailable, err)
		}
	}
	return env.Data, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
