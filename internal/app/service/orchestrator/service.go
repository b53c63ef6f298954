package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/tierbill/tierbill/internal/app/service/notifier"
	"github.com/tierbill/tierbill/internal/models"
	"github.com/tierbill/tierbill/internal/platform/provider"
	"github.com/tierbill/tierbill/pkg/config"
	"github.com/tierbill/tierbill/pkg/logctx"
	"github.com/tierbill/tierbill/pkg/metrics"
	"github.com/tierbill/tierbill/pkg/tool"
	"github.com/tierbill/tierbill/pkg/types"
)

// manualDurationDays is the default validity of a manually settled payment.
const manualDurationDays = 30

// UserStore is the identity collaborator contract.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// FactStore owns the subscription fact and the ledger; every write it
// performs couples both atomically.
type FactStore interface {
	Get(ctx context.Context, userID string) (*models.Subscription, error)
	ApplyConfirmation(ctx context.Context, fact *models.Subscription, rec *models.Transaction) (bool, error)
	ReplacePlan(ctx context.Context, fact *models.Subscription, rec *models.Transaction) error
	SetInactive(ctx context.Context, userID string, reason types.SubscriptionChangeReason) error
}

// Service is the subscription state machine. It is the only entry point that
// mutates subscription facts or appends ledger rows; all mutating operations
// for one user are mutually exclusive.
type Service struct {
	cfg       *config.Config
	users     UserStore
	facts     FactStore
	providers provider.Registry
	notif     notifier.Notifier
	metrics   *metrics.Prometheus
	log       *zap.SugaredLogger
	locks     *userLocks
}

func NewService(
	cfg *config.Config,
	users UserStore,
	facts FactStore,
	providers provider.Registry,
	notif notifier.Notifier,
	m *metrics.Prometheus,
	log *zap.SugaredLogger,
) *Service {
	return &Service{
		cfg:       cfg,
		users:     users,
		facts:     facts,
		providers: providers,
		notif:     notif,
		metrics:   m,
		log:       log,
		locks:     newUserLocks(),
	}
}

type InitializePaymentRequest struct {
	UserID       string                `json:"user_id"`
	Plan         string                `json:"plan"`
	BillingCycle types.BillingCycle    `json:"billing_cycle"`
	Provider     types.PaymentProvider `json:"provider"`
}

// InitializePayment starts a checkout with the provider and hands the
// reference back to the caller. It mutates neither the fact nor the ledger;
// only a later confirmation activates anything.
func (s *Service) InitializePayment(ctx context.Context, req *InitializePaymentRequest) (*provider.PaymentReference, error) {
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	tier, cycle, err := s.lookupTier(req.Plan, req.BillingCycle)
	if err != nil {
		return nil, err
	}

	if req.Provider == types.PaymentProviderManual || !req.Provider.Valid() {
		return nil, fmt.Errorf("%w: provider %q cannot initialize a checkout", provider.ErrProviderRejected, req.Provider)
	}
	adapter, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	ref, err := adapter.Initialize(ctx, &provider.InitializeRequest{
		UserEmail:   user.Email,
		AmountMinor: cycle.PriceMajor * 100,
		PlanCode:    cycle.ProviderPlanCode,
		Metadata: provider.Metadata{
			UserID:          user.ID,
			Plan:            tier.Name,
			BillingCycle:    req.BillingCycle,
			DurationInDays:  cycle.DurationInDays,
			TransactionType: types.TransactionTypeSubscription,
		},
	})
	if err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("payment initialized",
		"user_id", user.ID, "plan", tier.Name, "cycle", req.BillingCycle, "provider", req.Provider, "reference", ref.Code)
	return ref, nil
}

type ConfirmResult struct {
	Transaction *models.Transaction `json:"transaction"`
}

// ConfirmPayment applies one provider confirmation exactly once. A repeated
// transaction id returns ErrDuplicateConfirmation, which callers treat as
// "your previous request already succeeded".
func (s *Service) ConfirmPayment(ctx context.Context, conf *provider.Confirmation) (*ConfirmResult, error) {
	if conf == nil || conf.TransactionID == "" {
		return nil, fmt.Errorf("%w: transaction id is empty", ErrInvalidConfirmation)
	}
	if err := conf.Metadata.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfirmation, err)
	}

	user, err := s.users.FindByID(ctx, conf.Metadata.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	unlock := s.locks.acquire(user.ID)
	defer unlock()

	rec, applied, err := s.applyConfirmation(ctx, user, conf)
	if err != nil {
		return nil, err
	}
	if !applied {
		s.countConfirmation(conf.Provider, "duplicate")
		logctx.FromCtx(ctx, s.log).Infow("duplicate confirmation ignored",
			"user_id", user.ID, "transaction_id", conf.TransactionID)
		return nil, ErrDuplicateConfirmation
	}

	s.countConfirmation(conf.Provider, "applied")
	s.notifyAsync(ctx, user.Email, "Subscription Successful", notifier.TemplateSubscriptionConfirmed, map[string]any{
		"name":       user.Username,
		"plan":       conf.Metadata.Plan,
		"expires_at": rec.ExpiresAt.Format(time.DateOnly),
	})
	return &ConfirmResult{Transaction: rec}, nil
}

// CancelSubscription deactivates the local fact and best-effort disables the
// remote recurring subscription. The local state is authoritative: a failed
// remote disable is logged and never blocks the transition. No ledger entry
// is written.
func (s *Service) CancelSubscription(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	unlock := s.locks.acquire(userID)
	defer unlock()

	fact, err := s.facts.Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load subscription: %w", err)
	}
	if fact == nil || fact.Status != types.SubscriptionStatusActive {
		return ErrSubscriptionNotActive
	}

	s.disableRemote(ctx, fact)

	if err := s.facts.SetInactive(ctx, userID, types.SubscriptionChangeReasonCancel); err != nil {
		return err
	}

	s.notifyAsync(ctx, user.Email, "Subscription Canceled", notifier.TemplateSubscriptionCancelled, map[string]any{
		"name": user.Username,
		"plan": fact.Plan,
	})
	return nil
}

type ChangePlanRequest struct {
	UserID          string                `json:"user_id"`
	NewPlan         string                `json:"new_plan"`
	NewBillingCycle types.BillingCycle    `json:"new_billing_cycle"`
	Provider        types.PaymentProvider `json:"provider"`
}

// ChangePlan disables the old remote subscription best-effort, starts a
// checkout against the new plan and rewrites the fact as inactive. Access to
// the new plan is granted only by the confirmation that follows; plan-change
// never activates anything by itself.
func (s *Service) ChangePlan(ctx context.Context, req *ChangePlanRequest) (*provider.PaymentReference, error) {
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	tier, cycle, err := s.lookupTier(req.NewPlan, req.NewBillingCycle)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(req.UserID)
	defer unlock()

	old, err := s.facts.Get(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	prov := req.Provider
	if prov == "" && old != nil {
		prov = old.Provider
	}
	if prov == types.PaymentProviderManual || !prov.Valid() {
		prov = types.PaymentProviderHostedGateway
	}
	adapter, err := s.providers.Get(prov)
	if err != nil {
		return nil, err
	}

	if old != nil {
		s.disableRemote(ctx, old)
	}

	ref, err := adapter.Initialize(ctx, &provider.InitializeRequest{
		UserEmail:   user.Email,
		AmountMinor: cycle.PriceMajor * 100,
		PlanCode:    cycle.ProviderPlanCode,
		Metadata: provider.Metadata{
			UserID:          user.ID,
			Plan:            tier.Name,
			BillingCycle:    req.NewBillingCycle,
			DurationInDays:  cycle.DurationInDays,
			TransactionType: types.TransactionTypePlanChange,
		},
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.AddDate(0, 0, cycle.DurationInDays)
	fact := &models.Subscription{
		UserID: user.ID,
		Plan:   tier.Name,
		// Inactive until the confirmation for the new plan arrives: a plan
		// change must never grant access before payment clears.
		Status:           types.SubscriptionStatusInactive,
		TransactionID:    "",
		SubscriptionCode: "",
		Provider:         prov,
		ExpiresAt:        &expiresAt,
	}
	rec := &models.Transaction{
		UserID:          user.ID,
		UserName:        user.Username,
		Email:           user.Email,
		Plan:            tier.Name,
		BillingCycle:    req.NewBillingCycle,
		Amount:          cycle.PriceMajor,
		TransactionType: types.TransactionTypePlanChange,
		TransactionID:   tool.GenerateTransactionID("change", string(prov)),
		ReferenceID:     tool.GenerateReferenceID(string(prov)),
		PaymentProvider: prov,
		Status:          types.TransactionStatusSuccess,
		PaidAt:          now,
		ExpiresAt:       expiresAt,
		Extra:           datatypes.NewJSONType(&models.TransactionExtra{TierSnapshot: cycle}),
	}
	if err := s.facts.ReplacePlan(ctx, fact, rec); err != nil {
		return nil, err
	}

	s.notifyAsync(ctx, user.Email, "Subscription Plan Updated", notifier.TemplatePlanChanged, map[string]any{
		"name": user.Username,
		"plan": tier.Name,
	})
	return ref, nil
}

type ManualPaymentRequest struct {
	UserID string `json:"user_id"`
	// Amount is in the major currency unit.
	Amount        int64              `json:"amount"`
	Plan          string             `json:"plan"`
	BillingCycle  types.BillingCycle `json:"billing_cycle"`
	PaymentMethod string             `json:"payment_method"`
}

// RecordManualPayment settles an offline payment synchronously: a local
// transaction id is generated and the confirmation goes through the same
// apply path as provider callbacks. Validity defaults to 30 days.
func (s *Service) RecordManualPayment(ctx context.Context, req *ManualPaymentRequest) (*ConfirmResult, error) {
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	adapter, err := s.providers.Get(types.PaymentProviderManual)
	if err != nil {
		return nil, err
	}
	ref, err := adapter.Initialize(ctx, &provider.InitializeRequest{
		UserEmail:   user.Email,
		AmountMinor: req.Amount * 100,
		Metadata: provider.Metadata{
			UserID:          user.ID,
			Plan:            req.Plan,
			BillingCycle:    req.BillingCycle,
			DurationInDays:  manualDurationDays,
			TransactionType: types.TransactionTypeSubscription,
		},
	})
	if err != nil {
		return nil, err
	}
	conf := ref.Confirmation
	conf.Channel = req.PaymentMethod

	unlock := s.locks.acquire(user.ID)
	defer unlock()

	rec, applied, err := s.applyConfirmation(ctx, user, conf)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Locally generated ids collide only on a retried request.
		return nil, ErrDuplicateConfirmation
	}

	s.countConfirmation(types.PaymentProviderManual, "applied")
	s.notifyAsync(ctx, user.Email, "Payment Recorded", notifier.TemplateManualPaymentRecorded, map[string]any{
		"name":       user.Username,
		"plan":       req.Plan,
		"amount":     req.Amount,
		"expires_at": rec.ExpiresAt.Format(time.DateOnly),
	})
	return &ConfirmResult{Transaction: rec}, nil
}

// applyConfirmation derives the fact transition and ledger row for one
// confirmation and applies both atomically. Expiry derives from the
// provider's paid-at timestamp; local receipt time substitutes only when the
// provider supplied none.
func (s *Service) applyConfirmation(ctx context.Context, user *models.User, conf *provider.Confirmation) (*models.Transaction, bool, error) {
	paidAt := conf.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	expiresAt := paidAt.AddDate(0, 0, conf.Metadata.DurationInDays)

	var snapshot *types.TierBillingCycle
	if tier := s.cfg.GetTierByName(conf.Metadata.Plan); tier != nil {
		snapshot = tier.Cycle(conf.Metadata.BillingCycle)
	}

	fact := &models.Subscription{
		UserID:           user.ID,
		Plan:             conf.Metadata.Plan,
		Status:           types.SubscriptionStatusActive,
		TransactionID:    conf.TransactionID,
		SubscriptionCode: conf.SubscriptionCode,
		Provider:         conf.Provider,
		ExpiresAt:        &expiresAt,
	}
	rec := &models.Transaction{
		UserID:           user.ID,
		UserName:         user.Username,
		Email:            user.Email,
		Plan:             conf.Metadata.Plan,
		BillingCycle:     conf.Metadata.BillingCycle,
		Amount:           conf.Amount,
		TransactionType:  conf.Metadata.TransactionType,
		TransactionID:    conf.TransactionID,
		ReferenceID:      tool.GenerateReferenceID(string(conf.Provider)),
		PaymentProvider:  conf.Provider,
		PaymentMethod:    conf.Channel,
		Status:           types.TransactionStatusSuccess,
		SubscriptionCode: conf.SubscriptionCode,
		PaidAt:           paidAt,
		ExpiresAt:        expiresAt,
		Extra: datatypes.NewJSONType(&models.TransactionExtra{
			TierSnapshot: snapshot,
			ProviderRaw:  conf.Raw,
		}),
	}

	applied, err := s.facts.ApplyConfirmation(ctx, fact, rec)
	if err != nil {
		return nil, false, err
	}
	return rec, applied, nil
}

// disableRemote is advisory: it runs under the per-user lock but is bounded
// by the adapter's own timeout, and its failure never aborts the local
// transition.
func (s *Service) disableRemote(ctx context.Context, fact *models.Subscription) {
	if fact.SubscriptionCode == "" {
		return
	}
	adapter, err := s.providers.Get(fact.Provider)
	if err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("no adapter for remote disable",
			"user_id", fact.UserID, "provider", fact.Provider)
		return
	}
	if err := adapter.DisableRecurring(ctx, fact.SubscriptionCode); err != nil {
		// Left for manual reconciliation; the subscription code stays in the
		// change log written by the fact store.
		logctx.FromCtx(ctx, s.log).Errorw("remote disable failed",
			"user_id", fact.UserID,
			"provider", fact.Provider,
			"subscription_code", fact.SubscriptionCode,
			"err", err)
	}
}

func (s *Service) lookupTier(plan string, cycle types.BillingCycle) (*types.Tier, *types.TierBillingCycle, error) {
	tier := s.cfg.GetTierByName(plan)
	if tier == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrPlanNotFound, plan)
	}
	tc := tier.Cycle(cycle)
	if tc == nil {
		return nil, nil, fmt.Errorf("%w: %s has no %s cycle", ErrPlanNotFound, plan, cycle)
	}
	return tier, tc, nil
}

func (s *Service) notifyAsync(ctx context.Context, recipient, subject, template string, data map[string]any) {
	if s.notif == nil {
		return
	}
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.notif.Send(sendCtx, recipient, subject, template, "Subscription", data); err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to send %s notification: %v", template, err)
		}
	}()
}

func (s *Service) countConfirmation(p types.PaymentProvider, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ConfirmationsTotal.WithLabelValues(string(p), outcome).Inc()
}
