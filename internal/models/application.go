// internal/models/application.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Applicant is the contact data collected with an application.
type Applicant struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	NIN   string `json:"nin"`
}

// LoanApplicationRecord is the persisted application. Images are not stored with the record.
type LoanApplicationRecord struct {
	ID            string    `json:"id"`
	Applicant     Applicant `json:"applicant"`
	Quote         LoanQuote `json:"quote"`
	ReceiptNumber string    `json:"receiptNumber"`
	CreatedAt     time.Time `json:"createdAt"`
}

// WireRecord is the on-the-wire/persisted shape of an application.
type WireRecord struct {
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email"`
	NIN           string          `json:"nin"`
	Amount        decimal.Decimal `json:"amount"`
	Term          TermCode        `json:"term"`
	Interest      int64           `json:"interest"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ReceiptNumber string          `json:"receipt_number"`
}

func (r LoanApplicationRecord) Wire() WireRecord {
	return WireRecord{
		Name:          r.Applicant.Name,
		Phone:         r.Applicant.Phone,
		Email:         r.Applicant.Email,
		NIN:           r.Applicant.NIN,
		Amount:        r.Quote.Amount,
		Term:          r.Quote.Term,
		Interest:      r.Quote.InterestPercent(),
		TotalAmount:   r.Quote.TotalRepayment,
		ReceiptNumber: r.ReceiptNumber,
	}
}

// ClientSummary is a search hit for the returning-client lookup.
type ClientSummary struct {
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email"`
	ReceiptNumber string          `json:"receiptNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Term          TermCode        `json:"term"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (r LoanApplicationRecord) Summary() ClientSummary {
	return ClientSummary{
		Name:          r.Applicant.Name,
		Phone:         r.Applicant.Phone,
		Email:         r.Applicant.Email,
		ReceiptNumber: r.ReceiptNumber,
		Amount:        r.Quote.Amount,
		Term:          r.Quote.Term,
		CreatedAt:     r.CreatedAt,
	}
}
