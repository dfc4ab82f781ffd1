package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/brightpath-health/coach-ai-platform/internal/monitoring"
	"github.com/brightpath-health/coach-ai-platform/pkg/logging"
)

// AlertNotifier emails the care team when the monitoring engine raises a
// critical alert. Implements the engine's Notifier contract.
type AlertNotifier struct {
	sender EmailSender
	to     string
	logger *logging.Logger
}

func NewAlertNotifier(sender EmailSender, to string, logger *logging.Logger) *AlertNotifier {
	if sender == nil {
		panic("notify: alert notifier sender cannot be nil")
	}
	if to == "" {
		panic("notify: alert notifier recipient cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AlertNotifier{sender: sender, to: to, logger: logger}
}

// NotifyCritical sends one email per critical alert.
func (n *AlertNotifier) NotifyCritical(ctx context.Context, alert monitoring.Alert) error {
	subject := fmt.Sprintf("[CRITICAL] %s for subject %s", alert.Rule, alert.SubjectID)

	var b strings.Builder
	fmt.Fprintf(&b, "A critical monitoring alert was raised.\n\n")
	fmt.Fprintf(&b, "Subject:  %s\n", alert.SubjectID)
	fmt.Fprintf(&b, "Rule:     %s\n", alert.Rule)
	fmt.Fprintf(&b, "Detail:   %s\n", alert.Message)
	fmt.Fprintf(&b, "Raised:   %s\n", alert.CreatedAt.Format("2006-01-02 15:04 MST"))
	if len(alert.ActionItems) > 0 {
		b.WriteString("\nSuggested actions:\n")
		for _, item := range alert.ActionItems {
			fmt.Fprintf(&b, "  - %s\n", item)
		}
	}
	fmt.Fprintf(&b, "\nPlease review the subject's dashboard and follow the escalation runbook.\n")

	err := n.sender.Send(ctx, EmailMessage{
		To:      n.to,
		ToName:  "Care Team",
		Subject: subject,
		Body:    b.String(),
	})
	if err != nil {
		return fmt.Errorf("notify: alert email: %w", err)
	}
	n.logger.Info("critical alert escalated", "rule", alert.Rule, "subject_id", alert.SubjectID)
	return nil
}

var _ monitoring.Notifier = (*AlertNotifier)(nil)
