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

// CardProcessor drives the direct card processor. Unlike the hosted gateway
// it charges server-side and confirms each charge via a JWS-signed webhook.
type CardProcessor struct {
	cfg  config.CardProcessorConfig
	http *http.Client
	log  *zap.SugaredLogger
}

func NewCardProcessor(cfg config.CardProcessorConfig, log *zap.SugaredLogger) *CardProcessor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CardProcessor{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

type processorCharge struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	AmountMinor   int64    `json:"amount"`
	PaymentMethod string   `json:"payment_method"`
	PaidAtUnix    int64    `json:"paid_at"`
	Subscription  string   `json:"subscription"`
	CheckoutURL   string   `json:"checkout_url"`
	Metadata      Metadata `json:"metadata"`
}

type processorError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *CardProcessor) Initialize(ctx context.Context, req *InitializeRequest) (*PaymentReference, error) {
	if err := req.Metadata.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}
	body := map[string]any{
		"email":     req.UserEmail,
		"amount":    req.AmountMinor,
		"plan_code": req.PlanCode,
		"metadata":  req.Metadata,
	}
	var charge processorCharge
	if err := p.call(ctx, http.MethodPost, "/v1/charges", body, &charge); err != nil {
		return nil, err
	}
	if charge.ID == "" {
		return nil, fmt.Errorf("%w: charge response has no id", ErrProviderRejected)
	}
	return &PaymentReference{Code: charge.ID, CheckoutURL: charge.CheckoutURL}, nil
}

func (p *CardProcessor) Verify(ctx context.Context, reference string) (*Confirmation, error) {
	var charge processorCharge
	if err := p.call(ctx, http.MethodGet, "/v1/charges/"+reference, nil, &charge); err != nil {
		return nil, err
	}
	if charge.Status != "succeeded" {
		return nil, fmt.Errorf("%w: charge %s is %q", ErrProviderRejected, reference, charge.Status)
	}
	return &Confirmation{
		Provider:         types.PaymentProviderCardProcessor,
		TransactionID:    charge.ID,
		Amount:           charge.AmountMinor / 100,
		Channel:          charge.PaymentMethod,
		PaidAt:           time.Unix(charge.PaidAtUnix, 0),
		SubscriptionCode: charge.Subscription,
		Metadata:         charge.Metadata,
	}, nil
}

func (p *CardProcessor) DisableRecurring(ctx context.Context, subscriptionCode string) error {
	if subscriptionCode == "" {
		return nil
	}
	return p.call(ctx, http.MethodDelete, "/v1/subscriptions/"+subscriptionCode, nil, nil)
}

func (p *CardProcessor) call(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal processor request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, p.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build processor request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: processor returned %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var pe processorError
		if json.Unmarshal(raw, &pe) == nil && pe.Error.Message != "" {
			return fmt.Errorf("%w: %s: %s", ErrProviderRejected, pe.Error.Type, pe.Error.Message)
		}
		return fmt.Errorf("%w: processor returned %d", ErrProviderRejected, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err)
		}
	}
	return nil
}
