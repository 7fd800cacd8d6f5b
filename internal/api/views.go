package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gfn-loan-service/internal/loan/quote"
	"gfn-loan-service/internal/loan/receipt"
	"gfn-loan-service/internal/loan/wizard"
	"gfn-loan-service/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// registerValidators adds the loanterm tag to gin's validator engine.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("loanterm", func(fl validator.FieldLevel) bool {
			_, err := quote.ParseTerm(fl.Field().String())
			return err == nil
		})
	})
}

// amountInput accepts 50000, "50000" or "50,000".
type amountInput string

func (a *amountInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = amountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("amount must be a number")
	}
	*a = amountInput(n.String())
	return nil
}

type quoteRequest struct {
	Amount amountInput `json:"amount" binding:"required"`
	Term   string      `json:"term" binding:"omitempty,loanterm"`
}

type applicantRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Phone string `json:"phone" binding:"required,max=32"`
	Email string `json:"email" binding:"required,email,max=254"`
}

type verifyRequest struct {
	Code string `json:"code" binding:"max=32"`
}

type clientSearchQuery struct {
	Name  string `form:"name" binding:"required,min=2,max=100"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type moneyView struct {
	Amount         string `json:"amount"`
	InterestAmount string `json:"interestAmount"`
	TotalRepayment string `json:"totalRepayment"`
}

type quoteView struct {
	Amount          string    `json:"amount"`
	Term            string    `json:"term"`
	TermLabel       string    `json:"termLabel"`
	Days            int       `json:"days"`
	InterestPercent int64     `json:"interestPercent"`
	InterestAmount  string    `json:"interestAmount"`
	TotalRepayment  string    `json:"totalRepayment"`
	Currency        string    `json:"currency"`
	Display         moneyView `json:"display"`
}

func newQuoteView(q models.LoanQuote, currency string) quoteView {
	return quoteView{
		Amount:          q.Amount.String(),
		Term:            string(q.Term),
		TermLabel:       q.Term.Label(),
		Days:            q.Term.Days(),
		InterestPercent: q.InterestPercent(),
		InterestAmount:  q.InterestAmount().String(),
		TotalRepayment:  q.TotalRepayment.String(),
		Currency:        currency,
		Display: moneyView{
			Amount:         receipt.FormatMoney(currency, q.Amount),
			InterestAmount: receipt.FormatMoney(currency, q.InterestAmount()),
			TotalRepayment: receipt.FormatMoney(currency, q.TotalRepayment),
		},
	}
}

type captureView struct {
	Step          string `json:"step"`
	Expected      string `json:"expected,omitempty"`
	FrontCaptured bool   `json:"frontCaptured"`
	BackCaptured  bool   `json:"backCaptured"`
}

type verificationView struct {
	Verified bool `json:"verified"`
	Attempts int  `json:"attempts"`
}

// sessionView never carries image bytes.
type sessionView struct {
	ID            string           `json:"id"`
	State         string           `json:"state"`
	PreferredTerm string           `json:"preferredTerm,omitempty"`
	Quote         *quoteView       `json:"quote,omitempty"`
	Capture       captureView      `json:"capture"`
	ReceiptNumber string           `json:"receiptNumber,omitempty"`
	Degraded      bool             `json:"degraded,omitempty"`
	LastError     string           `json:"lastError,omitempty"`
	Verification  verificationView `json:"verification"`
	CanDownload   bool             `json:"canDownload"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func newSessionView(s wizard.Session, currency string) sessionView {
	v := sessionView{
		ID:            s.ID,
		State:         string(s.State),
		PreferredTerm: string(s.PreferredTerm),
		Capture: captureView{
			Step:          string(s.Capture.Step),
			Expected:      string(s.Capture.Expected()),
			FrontCaptured: s.Capture.Images.Front.Present(),
			BackCaptured:  s.Capture.Images.Back.Present(),
		},
		ReceiptNumber: s.ReceiptNumber,
		Degraded:      s.Degraded,
		LastError:     s.LastError,
		Verification:  verificationView{Verified: s.Verification.Verified, Attempts: s.Verification.Attempts},
		CanDownload:   s.CanDownload(),
		UpdatedAt:     s.UpdatedAt,
	}
	if s.Quote != nil {
		q := newQuoteView(*s.Quote, currency)
		v.Quote = &q
	}
	if s.State != wizard.StateCapturingFront && s.State != wizard.StateCapturingBack {
		v.Capture.Expected = ""
	}
	return v
}
