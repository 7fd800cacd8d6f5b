// internal/workers/loan/send-loan-notification/models.go
package sendloannotification

import "gfn-loan-service/internal/models"

type Input struct {
	ReceiptNumber string `json:"receiptNumber"`
}

type Output struct {
	NotificationSent bool                        `json:"notificationSent"`
	Results          []models.NotificationResult `json:"notificationResults"`
	SentAt           string                      `json:"sentAt"` // ISO 8601
}
