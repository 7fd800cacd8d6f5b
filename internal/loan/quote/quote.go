// Package quote computes simple-interest loan quotes.
package quote

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gfn-loan-service/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrAmountNotNumeric = errors.New("AMOUNT_NOT_NUMERIC")
	ErrAmountOutOfRange = errors.New("AMOUNT_OUT_OF_RANGE")
	ErrUnknownTerm      = errors.New("UNKNOWN_TERM")
)

// Policy holds the amount bounds and per-term rates.
type Policy struct {
	MinAmount  decimal.Decimal
	MaxAmount  decimal.Decimal
	ShortRate  decimal.Decimal
	MediumRate decimal.Decimal
}

// DefaultPolicy is 10,000 to 500,000 inclusive at 10% (14 days) or 18% (30 days).
func DefaultPolicy() Policy {
	return Policy{
		MinAmount:  decimal.NewFromInt(10000),
		MaxAmount:  decimal.NewFromInt(500000),
		ShortRate:  decimal.RequireFromString("0.10"),
		MediumRate: decimal.RequireFromString("0.18"),
	}
}

// NewPolicy builds a policy from configured values.
func NewPolicy(minAmount, maxAmount int64, shortRate, mediumRate string) (Policy, error) {
	sr, err := decimal.NewFromString(shortRate)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid short rate %q: %w", shortRate, err)
	}
	mr, err := decimal.NewFromString(mediumRate)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid medium rate %q: %w", mediumRate, err)
	}
	return Policy{
		MinAmount:  decimal.NewFromInt(minAmount),
		MaxAmount:  decimal.NewFromInt(maxAmount),
		ShortRate:  sr,
		MediumRate: mr,
	}, nil
}

// Rate returns the interest rate for a term.
func (p Policy) Rate(term models.TermCode) (decimal.Decimal, error) {
	switch term {
	case models.TermShort:
		return p.ShortRate, nil
	case models.TermMedium:
		return p.MediumRate, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownTerm, term)
	}
}

// groupedAmount matches comma thousands grouping, e.g. 1,250,000.50.
var groupedAmount = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)

// ParseAmount accepts a plain numeric string. Well-formed thousands separators
// and surrounding whitespace are tolerated.
func (p Policy) ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", ErrAmountNotNumeric)
	}
	if strings.Contains(cleaned, ",") {
		if !groupedAmount.MatchString(cleaned) {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrAmountNotNumeric, raw)
		}
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrAmountNotNumeric, raw)
	}
	if amount.LessThan(p.MinAmount) || amount.GreaterThan(p.MaxAmount) {
		return decimal.Zero, fmt.Errorf("%w: amount must be between %s and %s",
			ErrAmountOutOfRange, p.MinAmount.String(), p.MaxAmount.String())
	}
	return amount, nil
}

// NewQuote validates the amount and derives the total repayment.
func (p Policy) NewQuote(rawAmount string, term models.TermCode) (models.LoanQuote, error) {
	rate, err := p.Rate(term)
	if err != nil {
		return models.LoanQuote{}, err
	}
	amount, err := p.ParseAmount(rawAmount)
	if err != nil {
		return models.LoanQuote{}, err
	}
	return models.LoanQuote{
		Amount:         amount,
		Term:           term,
		InterestRate:   rate,
		TotalRepayment: amount.Mul(decimal.NewFromInt(1).Add(rate)),
	}, nil
}

// ParseTerm accepts the enum value or the term length, case-insensitively:
// "short", "SHORT", "14" and "14days" all mean SHORT.
func ParseTerm(raw string) (models.TermCode, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", "")) {
	case "short", "14", "14days", "14d":
		return models.TermShort, nil
	case "medium", "30", "30days", "30d":
		return models.TermMedium, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTerm, raw)
	}
}
