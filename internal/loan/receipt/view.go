// Package receipt builds the client-facing and internal receipt view models and renders them to PDF.
package receipt

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gfn-loan-service/internal/models"

	"github.com/shopspring/decimal"
)

var fileNamePattern = regexp.MustCompile(`[^A-Za-z0-9\-_]`)

// FileName is the download name for a receipt.
func FileName(receiptNumber string) string {
	return fmt.Sprintf("Loan-Receipt-%s.pdf", fileNamePattern.ReplaceAllString(receiptNumber, ""))
}

// PublicReceipt is everything the applicant may download. It has no identity image fields.
type PublicReceipt struct {
	ReceiptNumber   string
	IssuedAt        time.Time
	ApplicantName   string
	Phone           string
	Email           string
	Currency        string
	Amount          decimal.Decimal
	TermLabel       string
	InterestPercent int64
	InterestAmount  decimal.Decimal
	TotalRepayment  decimal.Decimal
	DueDate         time.Time
}

// InternalReceipt is the back-office audit copy and carries both ID card scans.
type InternalReceipt struct {
	Public     PublicReceipt
	RecordID   string
	NIN        string
	FrontImage []byte
	BackImage  []byte
}

func NewPublicReceipt(record models.LoanApplicationRecord, currency string) PublicReceipt {
	issued := record.CreatedAt
	if issued.IsZero() {
		issued = time.Now().UTC()
	}
	return PublicReceipt{
		ReceiptNumber:   record.ReceiptNumber,
		IssuedAt:        issued,
		ApplicantName:   record.Applicant.Name,
		Phone:           record.Applicant.Phone,
		Email:           record.Applicant.Email,
		Currency:        currency,
		Amount:          record.Quote.Amount,
		TermLabel:       record.Quote.Term.Label(),
		InterestPercent: record.Quote.InterestPercent(),
		InterestAmount:  record.Quote.InterestAmount(),
		TotalRepayment:  record.Quote.TotalRepayment,
		DueDate:         issued.AddDate(0, 0, record.Quote.Term.Days()),
	}
}

func NewInternalReceipt(record models.LoanApplicationRecord, images models.IdentityImages, currency string) InternalReceipt {
	r := InternalReceipt{
		Public:   NewPublicReceipt(record, currency),
		RecordID: record.ID,
		NIN:      record.Applicant.NIN,
	}
	if images.Front.Present() {
		r.FrontImage = images.Front.Data
	}
	if images.Back.Present() {
		r.BackImage = images.Back.Data
	}
	return r
}

// FormatMoney renders 55000 as "UGX 55,000" and 14567.1 as "UGX 14,567.10".
func FormatMoney(currency string, amount decimal.Decimal) string {
	var s string
	if amount.Equal(amount.Truncate(0)) {
		s = amount.StringFixed(0)
	} else {
		s = amount.StringFixed(2)
	}

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	if currency == "" {
		return out
	}
	return currency + " " + out
}
