// internal/models/quote.go
package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TermCode identifies a repayment term.
type TermCode string

const (
	TermShort  TermCode = "SHORT"  // 14 days
	TermMedium TermCode = "MEDIUM" // 30 days
)

func (t TermCode) Valid() bool {
	return t == TermShort || t == TermMedium
}

// Days returns the term length.
func (t TermCode) Days() int {
	if t == TermShort {
		return 14
	}
	return 30
}

// Label is the human readable term, e.g. "14 days".
func (t TermCode) Label() string {
	if t == TermShort {
		return "14 days"
	}
	return "30 days"
}

func (t TermCode) String() string {
	return strings.ToUpper(string(t))
}

// LoanQuote is an immutable amount/term pair with its derived repayment.
type LoanQuote struct {
	Amount         decimal.Decimal `json:"amount"`
	Term           TermCode        `json:"term"`
	InterestRate   decimal.Decimal `json:"interestRate"`
	TotalRepayment decimal.Decimal `json:"totalRepayment"`
}

// InterestPercent is the rate as a whole percentage, e.g. 10 for 0.10.
func (q LoanQuote) InterestPercent() int64 {
	return q.InterestRate.Shift(2).IntPart()
}

// InterestAmount is TotalRepayment minus Amount.
func (q LoanQuote) InterestAmount() decimal.Decimal {
	return q.TotalRepayment.Sub(q.Amount)
}

func (q LoanQuote) IsZero() bool {
	return q.Term == "" && q.Amount.IsZero()
}
