// Package application validates, persists and announces loan applications.
package application

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/common/metrics"
	"gfn-loan-service/internal/common/validation"
	"gfn-loan-service/internal/loan/receipt"
	"gfn-loan-service/internal/models"

	"github.com/google/uuid"
)

var (
	ErrMissingField  = errors.New("APPLICATION_VALIDATION_FAILED")
	ErrMissingImage  = errors.New("IDENTITY_IMAGE_MISSING")
	ErrInvalidQuote  = errors.New("INVALID_QUOTE")
	ErrReceiptNumber = errors.New("RECEIPT_NUMBER_EXHAUSTED")
	ErrMissingNIN    = errors.New("NIN_REQUIRED")
)

// Origin says how an application reached the service.
type Origin string

const (
	OriginWizard  Origin = "wizard"
	OriginPhoneIn Origin = "phone-in"
)

const maxReceiptAttempts = 3

// PostCommitHook runs after the record is stored. Failures never undo the write.
type PostCommitHook interface {
	Name() string
	AfterCommit(ctx context.Context, submitted Submitted) error
}

// Submitted is handed to post-commit hooks.
type Submitted struct {
	Record          models.LoanApplicationRecord
	InternalReceipt []byte
	Origin          Origin
}

type SubmitRequest struct {
	Applicant models.Applicant
	Quote     models.LoanQuote
	Images    models.IdentityImages
}

// SubmitResult is returned once the record is stored. Degraded means a step after the
// write (rendering, notification) failed.
type SubmitResult struct {
	Record       models.LoanApplicationRecord `json:"record"`
	Degraded     bool                         `json:"degraded"`
	Notification models.NotificationReport    `json:"notification"`
}

type SubmitterOptions struct {
	Repository Repository
	Notifier   Notifier
	Renderer   *receipt.Renderer
	Numbers    *ReceiptNumbers
	Hooks      []PostCommitHook
	Currency   string
	Logger     logger.Logger
}

type Submitter struct {
	repo     Repository
	notifier Notifier
	renderer *receipt.Renderer
	numbers  *ReceiptNumbers
	hooks    []PostCommitHook
	currency string
	logger   logger.Logger
	now      func() time.Time
}

func NewSubmitter(opts SubmitterOptions) *Submitter {
	if opts.Numbers == nil {
		opts.Numbers = NewReceiptNumbers()
	}
	if opts.Renderer == nil {
		opts.Renderer = receipt.NewRenderer(receipt.DefaultBranding())
	}
	return &Submitter{
		repo:     opts.Repository,
		notifier: opts.Notifier,
		renderer: opts.Renderer,
		numbers:  opts.Numbers,
		hooks:    opts.Hooks,
		currency: opts.Currency,
		logger:   opts.Logger.WithFields(map[string]interface{}{"component": "application-submitter"}),
		now:      time.Now,
	}
}

// Validate checks the request without touching any collaborator.
func (s *Submitter) Validate(req SubmitRequest) error {
	if err := validateApplicant(req.Applicant); err != nil {
		return err
	}

	if !req.Images.Front.Present() {
		return fmt.Errorf("%w: front of ID card is missing", ErrMissingImage)
	}
	if !req.Images.Back.Present() {
		return fmt.Errorf("%w: back of ID card is missing", ErrMissingImage)
	}

	return validateQuote(req.Quote)
}

func validateQuote(q models.LoanQuote) error {
	if !q.Term.Valid() || !q.Amount.IsPositive() {
		return fmt.Errorf("%w: amount and term must be chosen first", ErrInvalidQuote)
	}
	return nil
}

func validateApplicant(a models.Applicant) error {
	var problems []string
	if strings.TrimSpace(a.Name) == "" {
		problems = append(problems, "name is required")
	}
	switch phone := strings.TrimSpace(a.Phone); {
	case phone == "":
		problems = append(problems, "phone is required")
	case !validation.ValidatePhone(phone):
		problems = append(problems, "phone number is not valid")
	}
	switch email := strings.TrimSpace(a.Email); {
	case email == "":
		problems = append(problems, "email is required")
	case !validation.ValidateEmail(email):
		problems = append(problems, "email address is not valid")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(problems, "; "))
	}
	return nil
}

// Submit stores the application, then renders the internal receipt and notifies the
// back office. Nothing is sent unless the write succeeded.
func (s *Submitter) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := s.Validate(req); err != nil {
		metrics.ApplicationSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}

	return s.store(ctx, req.Applicant, req.Quote, req.Images, OriginWizard)
}

// RecordPhoneIn stores an application taken by a loan officer over the phone. There
// are no ID images, so the national ID number is mandatory.
func (s *Submitter) RecordPhoneIn(ctx context.Context, applicant models.Applicant, quote models.LoanQuote) (*SubmitResult, error) {
	if err := validateApplicant(applicant); err != nil {
		metrics.ApplicationSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if strings.TrimSpace(applicant.NIN) == "" {
		metrics.ApplicationSubmissions.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: national ID number is required without an ID scan", ErrMissingNIN)
	}
	if err := validateQuote(quote); err != nil {
		metrics.ApplicationSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}
	return s.store(ctx, applicant, quote, models.IdentityImages{}, OriginPhoneIn)
}

func (s *Submitter) store(ctx context.Context, applicant models.Applicant, quote models.LoanQuote, images models.IdentityImages, origin Origin) (*SubmitResult, error) {
	record := models.LoanApplicationRecord{
		ID: uuid.New().String(),
		Applicant: models.Applicant{
			Name:  strings.TrimSpace(applicant.Name),
			Phone: strings.TrimSpace(applicant.Phone),
			Email: strings.TrimSpace(applicant.Email),
			NIN:   strings.TrimSpace(applicant.NIN),
		},
		Quote:     quote,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	if err := s.persist(ctx, &record); err != nil {
		metrics.ApplicationSubmissions.WithLabelValues("failed").Inc()
		return nil, err
	}

	result, doc := s.announce(ctx, record, images)
	s.runHooks(ctx, Submitted{Record: record, InternalReceipt: doc.Data, Origin: origin})

	outcome := "submitted"
	if result.Degraded {
		outcome = "degraded"
	}
	metrics.ApplicationSubmissions.WithLabelValues(outcome).Inc()

	s.logger.Info("application submitted", map[string]interface{}{
		"receiptNumber": record.ReceiptNumber,
		"applicationId": record.ID,
		"term":          string(record.Quote.Term),
		"origin":        string(origin),
		"degraded":      result.Degraded,
	})
	return result, nil
}

// Resend repeats the back-office notification for a stored application. Images are not
// retained after submission, so the resent email carries the receipt only.
func (s *Submitter) Resend(ctx context.Context, receiptNumber string) (*SubmitResult, error) {
	record, err := s.repo.GetByReceiptNumber(ctx, receiptNumber)
	if err != nil {
		return nil, err
	}
	result, _ := s.announce(ctx, record, models.IdentityImages{})
	if result.Degraded {
		return result, fmt.Errorf("%w: resend for %s", ErrNotificationSendFailed, receiptNumber)
	}
	return result, nil
}

// announce renders the internal receipt and notifies the back office. Both are best
// effort: failures only mark the result degraded.
func (s *Submitter) announce(ctx context.Context, record models.LoanApplicationRecord, images models.IdentityImages) (*SubmitResult, receipt.Document) {
	result := &SubmitResult{Record: record}

	internal := receipt.NewInternalReceipt(record, images, s.currency)
	doc, err := s.renderer.RenderInternal(internal)
	if err != nil {
		s.logger.Error("internal receipt render failed", map[string]interface{}{
			"receiptNumber": record.ReceiptNumber,
			"error":         err.Error(),
		})
		result.Degraded = true
	}

	if s.notifier == nil {
		return result, doc
	}
	payload := NotificationPayload{
		Record:           record,
		Currency:         s.currency,
		ReceiptPDFBase64: base64.StdEncoding.EncodeToString(doc.Data),
		FrontImageBase64: encodeImage(images.Front),
		BackImageBase64:  encodeImage(images.Back),
	}
	report, err := s.notifier.Notify(ctx, payload)
	result.Notification = report
	if err != nil {
		s.logger.Warn("notification failed; application is stored", map[string]interface{}{
			"receiptNumber": record.ReceiptNumber,
			"error":         err.Error(),
		})
		result.Degraded = true
	}
	return result, doc
}

func encodeImage(img *models.CapturedIdentityImage) string {
	if !img.Present() {
		return ""
	}
	return base64.StdEncoding.EncodeToString(img.Data)
}

// persist assigns a receipt number and inserts, drawing a new number on collision.
func (s *Submitter) persist(ctx context.Context, record *models.LoanApplicationRecord) error {
	for attempt := 1; attempt <= maxReceiptAttempts; attempt++ {
		record.ReceiptNumber = s.numbers.Next()

		res, err := validation.ValidateDocument(wireSchema, record.Wire())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseInsertFailed, err)
		}
		if !res.Valid {
			return fmt.Errorf("%w: %s", ErrMissingField, strings.Join(res.GetErrorMessages(), "; "))
		}

		err = s.repo.Insert(ctx, *record)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateReceipt) {
			s.logger.Error("application insert failed", map[string]interface{}{
				"receiptNumber": record.ReceiptNumber,
				"error":         err.Error(),
			})
			return err
		}
		s.logger.Warn("receipt number collision, retrying", map[string]interface{}{
			"receiptNumber": record.ReceiptNumber,
			"attempt":       attempt,
		})
	}
	return fmt.Errorf("%w: after %d attempts", ErrReceiptNumber, maxReceiptAttempts)
}

func (s *Submitter) runHooks(ctx context.Context, submitted Submitted) {
	for _, h := range s.hooks {
		if err := h.AfterCommit(ctx, submitted); err != nil {
			metrics.PostCommitHookFailures.WithLabelValues(h.Name()).Inc()
			s.logger.Warn("post-commit hook failed", map[string]interface{}{
				"hook":          h.Name(),
				"receiptNumber": submitted.Record.ReceiptNumber,
				"error":         err.Error(),
			})
		}
	}
}

// PublicReceipt renders the client-facing receipt for a stored record.
func (s *Submitter) PublicReceipt(record models.LoanApplicationRecord) (receipt.Document, error) {
	return s.renderer.RenderPublic(receipt.NewPublicReceipt(record, s.currency))
}

func (s *Submitter) Repository() Repository {
	return s.repo
}
