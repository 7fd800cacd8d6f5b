// internal/workers/loan/create-loan-record/models.go
package createloanrecord

// Input is a phone-in application captured by a loan officer.
type Input struct {
	Name   string      `json:"name"`
	Phone  string      `json:"phone"`
	Email  string      `json:"email"`
	NIN    string      `json:"nin"`
	Amount interface{} `json:"amount"` // number or string
	Term   string      `json:"term"`
}

type Output struct {
	ApplicationID  string `json:"applicationId"`
	ReceiptNumber  string `json:"receiptNumber"`
	Term           string `json:"term"`
	Interest       int64  `json:"interest"`
	TotalAmount    string `json:"totalAmount"`
	CreatedAt      string `json:"createdAt"` // ISO 8601
	NotifyDegraded bool   `json:"notifyDegraded"`
}
