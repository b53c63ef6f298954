package callback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/tierbill/tierbill/internal/app/service/orchestrator"
	"github.com/tierbill/tierbill/internal/models"
	"github.com/tierbill/tierbill/internal/platform/provider"
	"github.com/tierbill/tierbill/pkg/config"
	"github.com/tierbill/tierbill/pkg/logctx"
	"github.com/tierbill/tierbill/pkg/tool"
	"github.com/tierbill/tierbill/pkg/types"
)

// Sink persists callback audit rows.
type Sink interface {
	Save(ctx context.Context, entry *models.CallbackLog)
}

// Handler drives one webhook end to end: log receipt, authenticate, apply,
// log outcome. Replays surface as orchestrator.ErrDuplicateConfirmation and
// are recorded as handled.
type Handler struct {
	cfg       *config.Config
	orch      *orchestrator.Service
	providers provider.Registry
	logs      Sink
	parsers   map[types.PaymentProvider]Parser
	log       *zap.SugaredLogger
}

func NewHandler(
	cfg *config.Config,
	orch *orchestrator.Service,
	providers provider.Registry,
	logs Sink,
	log *zap.SugaredLogger,
) *Handler {
	return &Handler{
		cfg:       cfg,
		orch:      orch,
		providers: providers,
		logs:      logs,
		parsers: map[types.PaymentProvider]Parser{
			types.PaymentProviderHostedGateway: NewHostedGatewayParser(cfg.HostedGateway.WebhookSecret),
			types.PaymentProviderCardProcessor: NewCardProcessorParser(cfg.CardProcessor.WebhookSecret),
		},
		log: log,
	}
}

// Handle processes one raw webhook for the named provider. Receipt and
// outcome are written as two independent rows with their own IDs, so the
// asynchronous receipt write can never clobber the outcome row.
func (h *Handler) Handle(ctx context.Context, p types.PaymentProvider, header http.Header, body []byte) (*orchestrator.ConfirmResult, error) {
	receivedAt := time.Now()
	traceID, _ := ctx.Value("traceID").(string)

	h.logs.Save(ctx, &models.CallbackLog{
		ID:         tool.GenerateUUIDV7(),
		Provider:   string(p),
		TraceID:    traceID,
		ReceivedAt: receivedAt,
		Data:       datatypes.JSON(body),
		Status:     models.CallbackLogStatusReceived,
	})

	outcome := &models.CallbackLog{
		ID:         tool.GenerateUUIDV7(),
		Provider:   string(p),
		TraceID:    traceID,
		ReceivedAt: receivedAt,
		Data:       datatypes.JSON(body),
	}

	res, err := h.process(ctx, p, header, body, outcome)

	switch {
	case err == nil, errors.Is(err, orchestrator.ErrDuplicateConfirmation):
		h.finish(ctx, outcome, models.CallbackLogStatusHandled, res, err)
	default:
		h.finish(ctx, outcome, models.CallbackLogStatusHandleFailed, nil, err)
	}
	return res, err
}

func (h *Handler) process(ctx context.Context, p types.PaymentProvider, header http.Header, body []byte, entry *models.CallbackLog) (*orchestrator.ConfirmResult, error) {
	parser, ok := h.parsers[p]
	if !ok {
		return nil, fmt.Errorf("no webhook parser for provider %s", p)
	}
	parsed, err := parser.Parse(header, body)
	if err != nil {
		return nil, err
	}

	conf := parsed.Confirmation
	entry.TransactionID = conf.TransactionID
	if conf.Metadata.UserID != "" {
		uid := conf.Metadata.UserID
		entry.UserID = &uid
	}

	// The gateway's webhook payload can optionally be treated as a hint
	// only, with the verify endpoint as the source of truth.
	if p == types.PaymentProviderHostedGateway && h.cfg.HostedGateway.VerifyOnWebhook && parsed.Reference != "" {
		adapter, aerr := h.providers.Get(p)
		if aerr != nil {
			return nil, aerr
		}
		verified, verr := adapter.Verify(ctx, parsed.Reference)
		if verr != nil {
			return nil, verr
		}
		conf = verified
	}

	res, err := h.orch.ConfirmPayment(ctx, conf)
	if err != nil && !errors.Is(err, orchestrator.ErrDuplicateConfirmation) {
		logctx.FromCtx(ctx, h.log).Errorw("webhook confirmation failed",
			"provider", p, "transaction_id", conf.TransactionID, "err", err)
	}
	return res, err
}

func (h *Handler) finish(ctx context.Context, entry *models.CallbackLog, status models.CallbackLogStatus, res *orchestrator.ConfirmResult, err error) {
	out := map[string]any{}
	if res != nil && res.Transaction != nil {
		out["transaction_id"] = res.Transaction.TransactionID
	}
	if err != nil {
		out["error"] = err.Error()
	}
	if raw, merr := json.Marshal(out); merr == nil {
		result := datatypes.JSON(raw)
		entry.Result = &result
	}
	entry.Status = status
	h.logs.Save(ctx, entry)
}
