// internal/models/notification.go
package models

// NotificationStatus values mirror what the delivery channels report.
const (
	NotificationSent     = "sent"
	NotificationFailed   = "failed"
	NotificationDisabled = "disabled"
)

// NotificationResult records the outcome of one delivery channel.
type NotificationResult struct {
	ID        string `json:"id"`
	Channel   string `json:"channel"` // "email" or "sms"
	Recipient string `json:"recipient"`
	Status    string `json:"status"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NotificationReport is the aggregate result of a post-submission dispatch.
type NotificationReport struct {
	Results []NotificationResult `json:"results"`
}

// Failed reports whether any enabled channel failed.
func (r NotificationReport) Failed() bool {
	for _, res := range r.Results {
		if res.Status == NotificationFailed {
			return true
		}
	}
	return false
}
