// internal/workers/loan/issue-verification-code/models.go
package issueverificationcode

type Input struct {
	ReceiptNumber string `json:"receiptNumber"`
}

// Output never carries the code itself; process variables are visible in operations
// tooling. A loan officer re-issues through the admin API when SMS delivery fails.
type Output struct {
	VerificationCodeIssued bool   `json:"verificationCodeIssued"`
	ExpiresAt              string `json:"verificationCodeExpiresAt"` // ISO 8601
	SMSDelivered           bool   `json:"smsDelivered"`
}
