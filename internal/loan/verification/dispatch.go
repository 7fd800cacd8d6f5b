package verification

import (
	"context"
	"fmt"

	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/models"
)

type Issuer interface {
	Issue(ctx context.Context, receiptNumber string) (Issued, error)
}

type RecordFinder interface {
	GetByReceiptNumber(ctx context.Context, receiptNumber string) (models.LoanApplicationRecord, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// Dispatch is the result of issuing a code for an application.
type Dispatch struct {
	Issued    Issued `json:"issued"`
	Phone     string `json:"phone"`
	Delivered bool   `json:"delivered"`
}

// Dispatcher issues a code for a stored application and texts it to the applicant.
type Dispatcher struct {
	issuer  Issuer
	records RecordFinder
	sms     SMSSender
	logger  logger.Logger
}

func NewDispatcher(issuer Issuer, records RecordFinder, sms SMSSender, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		issuer:  issuer,
		records: records,
		sms:     sms,
		logger:  log.WithFields(map[string]interface{}{"component": "code-dispatcher"}),
	}
}

// IssueAndSend fails only if the application is unknown or the code cannot be stored.
// An SMS failure leaves Delivered false so staff can read the code out instead.
func (d *Dispatcher) IssueAndSend(ctx context.Context, receiptNumber string) (Dispatch, error) {
	record, err := d.records.GetByReceiptNumber(ctx, receiptNumber)
	if err != nil {
		return Dispatch{}, err
	}

	issued, err := d.issuer.Issue(ctx, record.ReceiptNumber)
	if err != nil {
		return Dispatch{}, err
	}

	out := Dispatch{Issued: issued, Phone: record.Applicant.Phone}
	if d.sms == nil || record.Applicant.Phone == "" {
		return out, nil
	}

	msg := fmt.Sprintf("GFN: your verification code for receipt %s is %s. It expires at %s.",
		record.ReceiptNumber, issued.Code, issued.ExpiresAt.Format("15:04 MST"))
	if err := d.sms.SendSMS(ctx, record.Applicant.Phone, msg); err != nil {
		d.logger.Warn("verification code sms failed", map[string]interface{}{
			"receiptNumber": record.ReceiptNumber,
			"error":         err.Error(),
		})
		return out, nil
	}
	out.Delivered = true
	return out, nil
}
