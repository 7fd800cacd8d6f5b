package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"time"

	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/loan/receipt"
	"gfn-loan-service/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
)

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
	// ErrSMSDisabled means no SMS channel is configured; nothing was sent.
	ErrSMSDisabled = errors.New("SMS_DISABLED")
)

// NotificationPayload is everything the back office receives about a new application.
// Binary fields are already base64 encoded.
type NotificationPayload struct {
	Record           models.LoanApplicationRecord
	Currency         string
	ReceiptPDFBase64 string
	FrontImageBase64 string
	BackImageBase64  string
}

// Notifier dispatches post-submission notifications.
type Notifier interface {
	Notify(ctx context.Context, payload NotificationPayload) (models.NotificationReport, error)
}

type SESService interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type NotifierConfig struct {
	EmailEnabled    bool
	SMSEnabled      bool
	FromEmail       string
	BackOfficeEmail string
	SMSSenderID     string
	Timeout         time.Duration
}

// AWSNotifier emails the back office through SES and texts the applicant through SNS.
type AWSNotifier struct {
	config NotifierConfig
	ses    SESService
	sns    SNSService
	logger logger.Logger
}

func NewAWSNotifier(config NotifierConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *AWSNotifier {
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	return &AWSNotifier{
		config: config,
		ses:    sesClient,
		sns:    snsClient,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// Notify attempts every enabled channel and reports each outcome. The error is
// non-nil if any enabled channel failed.
func (n *AWSNotifier) Notify(ctx context.Context, payload NotificationPayload) (models.NotificationReport, error) {
	ctx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	report := models.NotificationReport{
		Results: []models.NotificationResult{
			n.sendBackOfficeEmail(ctx, payload),
			n.sendApplicantSMS(ctx, payload.Record),
		},
	}
	if report.Failed() {
		return report, fmt.Errorf("%w: receipt %s", ErrNotificationSendFailed, payload.Record.ReceiptNumber)
	}
	return report, nil
}

func (n *AWSNotifier) sendBackOfficeEmail(ctx context.Context, payload NotificationPayload) models.NotificationResult {
	res := models.NotificationResult{
		ID:        uuid.New().String(),
		Channel:   "email",
		Recipient: n.config.BackOfficeEmail,
		Status:    models.NotificationDisabled,
	}
	if !n.config.EmailEnabled || n.config.BackOfficeEmail == "" || n.ses == nil {
		return res
	}

	raw, err := buildApplicationEmail(n.config.FromEmail, n.config.BackOfficeEmail, payload)
	if err != nil {
		return n.failed(res, err)
	}

	out, err := n.ses.SendRawEmail(ctx, &ses.SendRawEmailInput{
		RawMessage:   &types.RawMessage{Data: raw},
		Source:       aws.String(n.config.FromEmail),
		Destinations: []string{n.config.BackOfficeEmail},
	})
	if err != nil {
		return n.failed(res, err)
	}

	res.Status = models.NotificationSent
	res.MessageID = aws.ToString(out.MessageId)
	n.logger.Info("back-office email sent", map[string]interface{}{
		"receiptNumber": payload.Record.ReceiptNumber,
		"messageId":     res.MessageID,
	})
	return res
}

func (n *AWSNotifier) sendApplicantSMS(ctx context.Context, record models.LoanApplicationRecord) models.NotificationResult {
	res := models.NotificationResult{
		ID:        uuid.New().String(),
		Channel:   "sms",
		Recipient: record.Applicant.Phone,
		Status:    models.NotificationDisabled,
	}
	if !n.config.SMSEnabled || record.Applicant.Phone == "" || n.sns == nil {
		return res
	}

	out, err := n.sns.Publish(ctx, n.smsInput(record.Applicant.Phone, fmt.Sprintf(
		"Hello %s, we received your loan application. Your receipt number is %s. A loan officer will call you with your verification code.",
		firstName(record.Applicant.Name), record.ReceiptNumber,
	)))
	if err != nil {
		return n.failed(res, err)
	}

	res.Status = models.NotificationSent
	res.MessageID = aws.ToString(out.MessageId)
	return res
}

// SendSMS texts a single message. Used for verification code delivery.
func (n *AWSNotifier) SendSMS(ctx context.Context, phone, message string) error {
	if !n.config.SMSEnabled || n.sns == nil {
		return ErrSMSDisabled
	}
	if _, err := n.sns.Publish(ctx, n.smsInput(phone, message)); err != nil {
		return fmt.Errorf("%w: sms: %v", ErrNotificationSendFailed, err)
	}
	return nil
}

func (n *AWSNotifier) smsInput(phone, message string) *sns.PublishInput {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {DataType: aws.String("String"), StringValue: aws.String("Transactional")},
		},
	}
	if n.config.SMSSenderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(n.config.SMSSenderID),
		}
	}
	return input
}

func (n *AWSNotifier) failed(res models.NotificationResult, err error) models.NotificationResult {
	n.logger.Error("notification send failed", map[string]interface{}{
		"channel":   res.Channel,
		"recipient": res.Recipient,
		"error":     err.Error(),
	})
	res.Status = models.NotificationFailed
	res.Error = err.Error()
	return res
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}

// buildApplicationEmail assembles a multipart/mixed message with the internal receipt
// and both ID scans attached.
func buildApplicationEmail(from, to string, payload NotificationPayload) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	rec := payload.Record
	text := fmt.Sprintf(
		"New loan application\r\n\r\n"+
			"Receipt:  %s\r\n"+
			"Name:     %s\r\n"+
			"Phone:    %s\r\n"+
			"Email:    %s\r\n"+
			"Amount:   %s\r\n"+
			"Term:     %s\r\n"+
			"Interest: %d%%\r\n"+
			"Total:    %s\r\n",
		rec.ReceiptNumber,
		rec.Applicant.Name,
		rec.Applicant.Phone,
		rec.Applicant.Email,
		receipt.FormatMoney(payload.Currency, rec.Quote.Amount),
		rec.Quote.Term.Label(),
		rec.Quote.InterestPercent(),
		receipt.FormatMoney(payload.Currency, rec.Quote.TotalRepayment),
	)

	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=UTF-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(text)); err != nil {
		return nil, err
	}

	attachments := []struct {
		name, contentType, data string
	}{
		{receipt.FileName(rec.ReceiptNumber), "application/pdf", payload.ReceiptPDFBase64},
		{"id-front.jpg", "image/jpeg", payload.FrontImageBase64},
		{"id-back.jpg", "image/jpeg", payload.BackImageBase64},
	}
	for _, a := range attachments {
		if a.data == "" {
			continue
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {fmt.Sprintf("%s; name=%q", a.contentType, a.name)},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", a.name)},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, err
		}
		if err := writeWrapped(part, a.data, 76); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: New loan application %s (%s)\r\n", rec.ReceiptNumber, rec.Applicant.Name)
	msg.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mw.Boundary())
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func writeWrapped(w io.Writer, s string, width int) error {
	for len(s) > 0 {
		n := width
		if len(s) < n {
			n = len(s)
		}
		if _, err := w.Write([]byte(s[:n] + "\r\n")); err != nil {
			return err
		}
		s = s[n:]
	}
	return nil
}
