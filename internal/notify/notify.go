// Package notify provides cross-platform desktop notifications for e-sign outcomes.
// It uses github.com/gen2brain/beeep for cross-platform notification support.
package notify

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/taxdesk/portal-client/internal/logging"
)

const appTitle = "TaxDesk"

// Swapped out in tests.
var (
	notifyFunc = func(title, message string) error { return beeep.Notify(title, message, "") }
	alertFunc  = func(title, message string) error { return beeep.Alert(title, message, "") }
)

// Notifier handles desktop notifications.
type Notifier struct {
	logger  *logging.Logger
	enabled bool
	cfg     Config
	mu      sync.RWMutex
}

// Config holds notification configuration.
type Config struct {
	// Enabled determines if notifications are sent.
	Enabled bool

	// ShowCompleted notifies when an assignment completes.
	ShowCompleted bool

	// ShowFailed notifies when the portal rejects an assignment.
	ShowFailed bool

	// ShowUnknown notifies when polling gave up with the outcome unknown.
	ShowUnknown bool
}

// DefaultConfig returns the default notification configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		ShowCompleted: true,
		ShowFailed:    true,
		ShowUnknown:   true,
	}
}

// NewNotifier creates a new notifier with the given configuration.
func NewNotifier(cfg *Config, logger *logging.Logger) *Notifier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Notifier{
		logger:  logger.Component("notify"),
		enabled: cfg.Enabled,
		cfg:     *cfg,
	}
}

// SetEnabled enables or disables notifications.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// IsEnabled returns whether notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// AssignmentCompleted sends a notification for a completed assignment.
func (n *Notifier) AssignmentCompleted(documentName string) {
	if !n.IsEnabled() || !n.cfg.ShowCompleted {
		return
	}

	message := fmt.Sprintf("\"%s\" was sent for signature.", truncate(documentName, 40))
	if err := n.send("Signature Request Sent", message); err != nil {
		n.logger.Warn().Err(err).Str("document", documentName).Msg("Failed to send completed notification")
	}
}

// AssignmentFailed sends a notification for a rejected assignment.
func (n *Notifier) AssignmentFailed(documentName string, errorMsg string) {
	if !n.IsEnabled() || !n.cfg.ShowFailed {
		return
	}

	message := fmt.Sprintf("\"%s\" could not be sent:\n%s", truncate(documentName, 40), truncate(errorMsg, 100))
	if err := n.send("Signature Request Failed", message); err != nil {
		n.logger.Warn().Err(err).Str("document", documentName).Msg("Failed to send failed notification")
	}
}

// AssignmentStillProcessing alerts that polling stopped before the portal
// reported an outcome. The request may still complete.
func (n *Notifier) AssignmentStillProcessing(documentName string) {
	if !n.IsEnabled() || !n.cfg.ShowUnknown {
		return
	}

	message := fmt.Sprintf("\"%s\" is still processing. Check its status before sending it again.", truncate(documentName, 40))
	if err := alertFunc(appTitle+" Alert", message); err != nil {
		if err := n.send(appTitle, message); err != nil {
			n.logger.Error().Err(err).Str("document", documentName).Msg("Failed to send still-processing alert")
		}
	}
}

// Settled dispatches on the terminal phase name of an assignment
// coordination. Cancelled and unknown phases are ignored.
func (n *Notifier) Settled(documentName, phase, errorMsg string) {
	switch phase {
	case "completed":
		n.AssignmentCompleted(documentName)
	case "failed":
		n.AssignmentFailed(documentName, errorMsg)
	case "timeout":
		n.AssignmentStillProcessing(documentName)
	}
}

func (n *Notifier) send(title, message string) error {
	return notifyFunc(title, message)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// ParseNotifyConfig parses notification settings from an INI section.
// Expected keys: enabled, show_completed, show_failed, show_unknown
func ParseNotifyConfig(settings map[string]string) *Config {
	cfg := DefaultConfig()

	if v, ok := settings["enabled"]; ok {
		cfg.Enabled = strings.ToLower(v) == "true"
	}
	if v, ok := settings["show_completed"]; ok {
		cfg.ShowCompleted = strings.ToLower(v) == "true"
	}
	if v, ok := settings["show_failed"]; ok {
		cfg.ShowFailed = strings.ToLower(v) == "true"
	}
	if v, ok := settings["show_unknown"]; ok {
		cfg.ShowUnknown = strings.ToLower(v) == "true"
	}

	return cfg
}
