package notifier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mrz1836/postmark"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tierbill/tierbill/pkg/config"
)

// Template names for subscription lifecycle messages.
const (
	TemplateSubscriptionConfirmed = "subscription_confirmed"
	TemplateSubscriptionCancelled = "subscription_cancelled"
	TemplatePlanChanged           = "plan_changed"
	TemplateManualPaymentRecorded = "manual_payment_recorded"
)

// Notifier delivers lifecycle messages to users. Implementations own no
// state the orchestrator depends on; send failures never abort a payment
// transition.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, template, category string, data map[string]any) error
}

// postmarkNotifier sends through Postmark's transactional API.
type postmarkNotifier struct {
	client *postmark.Client
	from   string
}

func (n *postmarkNotifier) Send(ctx context.Context, recipient, subject, template, category string, data map[string]any) error {
	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:     n.from,
		To:       recipient,
		Subject:  subject,
		Tag:      category,
		HTMLBody: renderTemplate(template, data),
	})
	if err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error %d: %s", resp.ErrorCode, resp.Message)
	}
	return nil
}

// logNotifier is the dev fallback when no server token is configured.
type logNotifier struct {
	log *zap.SugaredLogger
}

func (n *logNotifier) Send(ctx context.Context, recipient, subject, template, category string, data map[string]any) error {
	n.log.Infow("notification (dry-run)",
		"recipient", recipient,
		"subject", subject,
		"template", template,
		"category", category,
		"data", data,
	)
	return nil
}

func New(cfg *config.Config, log *zap.SugaredLogger) Notifier {
	if cfg.Notifier.PostmarkServerToken == "" {
		log.Warnw("no postmark server token configured, notifications are logged only")
		return &logNotifier{log: log}
	}
	return &postmarkNotifier{
		client: postmark.NewClient(cfg.Notifier.PostmarkServerToken, ""),
		from:   cfg.Notifier.FromEmail,
	}
}

// renderTemplate produces a minimal HTML body. Real template content is a
// mail-team concern; the contract here is template name + data.
func renderTemplate(template string, data map[string]any) string {
	var b strings.Builder
	b.WriteString("<p>")
	b.WriteString(strings.ReplaceAll(template, "_", " "))
	b.WriteString("</p><ul>")
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "<li>%s: %v</li>", k, data[k])
	}
	b.WriteString("</ul>")
	return b.String()
}

var Module = fx.Options(
	fx.Provide(New),
)
