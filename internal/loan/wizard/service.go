package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/common/metrics"
	"gfn-loan-service/internal/loan/application"
	"gfn-loan-service/internal/loan/identity"
	"gfn-loan-service/internal/loan/quote"
	"gfn-loan-service/internal/loan/receipt"
	"gfn-loan-service/internal/loan/verification"
	"gfn-loan-service/internal/models"

	"github.com/google/uuid"
)

// Submitter is the part of application.Submitter the wizard needs.
type Submitter interface {
	Validate(req application.SubmitRequest) error
	Submit(ctx context.Context, req application.SubmitRequest) (*application.SubmitResult, error)
	PublicReceipt(record models.LoanApplicationRecord) (receipt.Document, error)
}

type RecordFinder interface {
	GetByReceiptNumber(ctx context.Context, receiptNumber string) (models.LoanApplicationRecord, error)
}

// StageRecorder times the slow wizard stages, e.g. observability.Observability.
type StageRecorder interface {
	RecordStage(ctx context.Context, stage string, duration time.Duration, ok bool)
}

// verifyConflictRetries bounds re-applying an accepted unlock after a lost save race.
const verifyConflictRetries = 3

type noStages struct{}

func (noStages) RecordStage(context.Context, string, time.Duration, bool) {}

type Options struct {
	Store     Store
	Policy    quote.Policy
	Capture   *identity.Orchestrator
	Submitter Submitter
	Records   RecordFinder
	Gate      verification.Gate
	Stages    StageRecorder
	Logger    logger.Logger
}

type Service struct {
	store     Store
	policy    quote.Policy
	capture   *identity.Orchestrator
	submitter Submitter
	records   RecordFinder
	gate      verification.Gate
	stages    StageRecorder
	logger    logger.Logger
	now       func() time.Time
	newID     func() string
}

func NewService(opts Options) *Service {
	if opts.Stages == nil {
		opts.Stages = noStages{}
	}
	return &Service{
		store:     opts.Store,
		policy:    opts.Policy,
		capture:   opts.Capture,
		submitter: opts.Submitter,
		records:   opts.Records,
		gate:      opts.Gate,
		stages:    opts.Stages,
		logger:    opts.Logger.WithFields(map[string]interface{}{"component": "wizard"}),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Start opens a session. An unrecognised term preselection is ignored.
func (s *Service) Start(ctx context.Context, rawTerm string) (Session, error) {
	var preferred models.TermCode
	if strings.TrimSpace(rawTerm) != "" {
		if t, err := quote.ParseTerm(rawTerm); err == nil {
			preferred = t
		} else {
			s.logger.Debug("ignoring term preselection", map[string]interface{}{"term": rawTerm})
		}
	}

	sess, err := s.store.Save(ctx, NewSession(s.newID(), preferred, s.now().UTC()))
	s.observe(StateQuoting, err)
	return sess, err
}

func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	return s.store.Get(ctx, id)
}

// Quote prices rawAmount for rawTerm, falling back to the preselected term.
func (s *Service) Quote(ctx context.Context, id, rawAmount, rawTerm string) (Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}

	term := sess.PreferredTerm
	if strings.TrimSpace(rawTerm) != "" {
		if term, err = quote.ParseTerm(rawTerm); err != nil {
			return sess, err
		}
	}

	q, err := s.policy.NewQuote(rawAmount, term)
	if err != nil {
		return sess, err
	}
	metrics.QuotesIssued.WithLabelValues(string(q.Term)).Inc()

	next, err := sess.WithQuote(q)
	if err != nil {
		s.observe(StateCapturingFront, err)
		return sess, err
	}
	return s.save(ctx, next)
}

// Capture validates and normalises one side of the ID card. A rejected image returns
// the unchanged session and an Outcome carrying the message to show.
func (s *Service) Capture(ctx context.Context, id string, side models.ImageSide, data []byte) (Session, identity.Outcome, error) {
	start := time.Now()
	sess, out, err := s.captureSide(ctx, id, side, data)
	s.stages.RecordStage(ctx, "capture", time.Since(start), err == nil && out.Accepted)
	return sess, out, err
}

func (s *Service) captureSide(ctx context.Context, id string, side models.ImageSide, data []byte) (Session, identity.Outcome, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return Session{}, identity.Outcome{}, err
	}
	if !sess.in(StateCapturingFront, StateCapturingBack) {
		err := sess.invalid(StateCapturingBack)
		s.observe(StateCapturingBack, err)
		return sess, identity.Outcome{Capture: sess.Capture}, err
	}

	out := s.capture.Capture(ctx, sess.Capture, side, data)
	if !out.Accepted {
		metrics.IdentityCaptures.WithLabelValues(string(side), "rejected").Inc()
		return sess, out, nil
	}
	metrics.IdentityCaptures.WithLabelValues(string(side), "accepted").Inc()

	var next Session
	switch side {
	case models.SideFront:
		next, err = sess.CaptureFront(*out.Capture.Images.Front)
	default:
		next, err = sess.CaptureBack(*out.Capture.Images.Back)
	}
	if err != nil {
		s.observe(sess.State, err)
		return sess, out, err
	}

	saved, err := s.save(ctx, next)
	return saved, out, err
}

func (s *Service) ClearCaptures(ctx context.Context, id string) (Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	next, err := sess.ClearCaptures()
	if err != nil {
		s.observe(StateCapturingFront, err)
		return sess, err
	}
	return s.save(ctx, next)
}

// Submit stores the application. Invalid applicant data is rejected before any state
// change. The session moves to Submitting first, so a concurrent second submit fails on
// the version check instead of writing twice.
func (s *Service) Submit(ctx context.Context, id string, applicant models.Applicant) (Session, *application.SubmitResult, error) {
	start := time.Now()
	sess, res, err := s.submit(ctx, id, applicant)
	s.stages.RecordStage(ctx, "submit", time.Since(start), err == nil)
	return sess, res, err
}

func (s *Service) submit(ctx context.Context, id string, applicant models.Applicant) (Session, *application.SubmitResult, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return Session{}, nil, err
	}

	submitting, err := sess.BeginSubmit(applicant)
	if err != nil {
		s.observe(StateSubmitting, err)
		return sess, nil, err
	}

	req := application.SubmitRequest{
		Applicant: applicant,
		Quote:     *sess.Quote,
		Images:    sess.Capture.Images,
	}
	if err := s.submitter.Validate(req); err != nil {
		return sess, nil, err
	}

	if submitting, err = s.save(ctx, submitting); err != nil {
		return sess, nil, err
	}

	res, err := s.submitter.Submit(ctx, req)
	if err != nil {
		failed, ferr := submitting.FailSubmit(userMessage(err))
		if ferr == nil {
			s.observe(StateSubmitFailed, nil)
			if saved, serr := s.save(ctx, failed); serr == nil {
				failed = saved
			}
		}
		return failed, nil, err
	}

	done, err := submitting.CompleteSubmit(res.Record.ReceiptNumber, res.Degraded)
	if err != nil {
		return submitting, res, err
	}
	saved, err := s.save(ctx, done)
	if err != nil {
		s.logger.Error("application stored but session update failed", map[string]interface{}{
			"sessionId":     id,
			"receiptNumber": res.Record.ReceiptNumber,
			"error":         err.Error(),
		})
		return done, res, err
	}
	return saved, res, nil
}

// Verify checks code against the gate. A wrong code is not an error.
func (s *Service) Verify(ctx context.Context, id, code string) (Session, bool, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return Session{}, false, err
	}
	if sess.State == StateUnlocked {
		return sess, true, nil
	}
	if sess.State != StateAwaitingVerification {
		err := sess.invalid(StateUnlocked)
		s.observe(StateUnlocked, err)
		return sess, false, err
	}

	ok, err := s.gate.Verify(ctx, sess.ReceiptNumber, code)
	if err != nil {
		metrics.VerificationAttempts.WithLabelValues(s.gate.Mode(), "error").Inc()
		return sess, false, err
	}

	var next Session
	if ok {
		metrics.VerificationAttempts.WithLabelValues(s.gate.Mode(), "accepted").Inc()
		next, err = sess.Unlock(code)
	} else {
		metrics.VerificationAttempts.WithLabelValues(s.gate.Mode(), "rejected").Inc()
		next, err = sess.RejectCode(code)
	}
	if err != nil {
		return sess, false, err
	}

	saved, err := s.save(ctx, next)
	if errors.Is(err, ErrConcurrentUpdate) {
		return s.resolveVerifyConflict(ctx, id, code, ok, err)
	}
	return saved, ok, err
}

// resolveVerifyConflict settles a lost save race after the gate answered.
// An accepted code may already be consumed, so the unlock is re-applied on
// the fresh copy instead of asking the client to retry.
func (s *Service) resolveVerifyConflict(ctx context.Context, id, code string, ok bool, cause error) (Session, bool, error) {
	for attempt := 0; attempt < verifyConflictRetries; attempt++ {
		current, err := s.store.Get(ctx, id)
		if err != nil {
			return Session{}, false, err
		}
		if current.State == StateUnlocked {
			return current, true, nil
		}
		if !ok || current.State != StateAwaitingVerification {
			return current, false, nil
		}
		next, err := current.Unlock(code)
		if err != nil {
			return current, false, err
		}
		saved, err := s.save(ctx, next)
		if err == nil {
			return saved, true, nil
		}
		if !errors.Is(err, ErrConcurrentUpdate) {
			return current, false, err
		}
		cause = err
	}
	return Session{}, false, cause
}

// Receipt renders the client-facing receipt once the session is unlocked.
func (s *Service) Receipt(ctx context.Context, id string) (receipt.Document, error) {
	start := time.Now()
	doc, err := s.renderReceipt(ctx, id)
	s.stages.RecordStage(ctx, "receipt", time.Since(start), err == nil)
	return doc, err
}

func (s *Service) renderReceipt(ctx context.Context, id string) (receipt.Document, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return receipt.Document{}, err
	}
	if !sess.CanDownload() {
		return receipt.Document{}, fmt.Errorf("%w: session %s is %s", ErrNotUnlocked, id, sess.State)
	}

	record, err := s.records.GetByReceiptNumber(ctx, sess.ReceiptNumber)
	if err != nil {
		return receipt.Document{}, err
	}
	return s.submitter.PublicReceipt(record)
}

func (s *Service) save(ctx context.Context, next Session) (Session, error) {
	next.UpdatedAt = s.now().UTC()
	saved, err := s.store.Save(ctx, next)
	s.observe(next.State, err)
	if err != nil {
		return next, err
	}
	return saved, nil
}

func (s *Service) observe(to State, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if errors.Is(err, ErrInvalidTransition) {
			result = "invalid"
		}
	}
	metrics.WizardTransitions.WithLabelValues(string(to), result).Inc()
}

// userMessage is what the session shows after a failed submission.
func userMessage(err error) string {
	switch {
	case errors.Is(err, application.ErrDatabaseInsertFailed), errors.Is(err, application.ErrReceiptNumber):
		return "We could not save your application. Please try again."
	default:
		return "Your application could not be submitted. Please try again."
	}
}
