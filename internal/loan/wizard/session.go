// Package wizard drives one applicant through quote, ID capture, submission and
// verification as an explicit state machine.
package wizard

import (
	"errors"
	"fmt"
	"time"

	"gfn-loan-service/internal/loan/identity"
	"gfn-loan-service/internal/models"
)

var (
	ErrInvalidTransition = errors.New("INVALID_WIZARD_TRANSITION")
	ErrNotUnlocked       = errors.New("RECEIPT_LOCKED")
)

type State string

const (
	StateQuoting              State = "quoting"
	StateCapturingFront       State = "capturing_front"
	StateCapturingBack        State = "capturing_back"
	StateReadyToSubmit        State = "ready_to_submit"
	StateSubmitting           State = "submitting"
	StateSubmitFailed         State = "submit_failed"
	StateAwaitingVerification State = "awaiting_verification"
	StateUnlocked             State = "unlocked"
)

// Verification is the code/verified pair shown by the receipt step.
type Verification struct {
	Code     string `json:"code,omitempty"`
	Verified bool   `json:"verified"`
	Attempts int    `json:"attempts"`
}

// Session is a value; every transition returns a new Session or an error and
// leaves the receiver untouched.
type Session struct {
	ID            string            `json:"id"`
	State         State             `json:"state"`
	PreferredTerm models.TermCode   `json:"preferredTerm,omitempty"`
	Quote         *models.LoanQuote `json:"quote,omitempty"`
	Capture       identity.Capture  `json:"capture"`
	Applicant     models.Applicant  `json:"applicant"`
	ReceiptNumber string            `json:"receiptNumber,omitempty"`
	Degraded      bool              `json:"degraded,omitempty"`
	LastError     string            `json:"lastError,omitempty"`
	Verification  Verification      `json:"verification"`
	Version       int64             `json:"version"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

func NewSession(id string, preferred models.TermCode, now time.Time) Session {
	if !preferred.Valid() {
		preferred = ""
	}
	return Session{
		ID:            id,
		State:         StateQuoting,
		PreferredTerm: preferred,
		Capture:       identity.NewCapture(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s Session) invalid(to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.State, to)
}

func (s Session) in(states ...State) bool {
	for _, st := range states {
		if s.State == st {
			return true
		}
	}
	return false
}

// captureState is where a session with a quote sits given its capture progress.
func (s Session) captureState() State {
	switch s.Capture.Step {
	case identity.StepBack:
		return StateCapturingBack
	case identity.StepCompleted:
		return StateReadyToSubmit
	default:
		return StateCapturingFront
	}
}

// WithQuote records q. Allowed until submission starts; captured images are kept.
func (s Session) WithQuote(q models.LoanQuote) (Session, error) {
	if !s.in(StateQuoting, StateCapturingFront, StateCapturingBack, StateReadyToSubmit, StateSubmitFailed) {
		return s, s.invalid(StateCapturingFront)
	}
	next := s
	next.Quote = &q
	next.State = next.captureState()
	next.LastError = ""
	return next, nil
}

func (s Session) CaptureFront(img models.CapturedIdentityImage) (Session, error) {
	return s.capture(StateCapturingFront, img)
}

func (s Session) CaptureBack(img models.CapturedIdentityImage) (Session, error) {
	return s.capture(StateCapturingBack, img)
}

func (s Session) capture(from State, img models.CapturedIdentityImage) (Session, error) {
	if s.State != from {
		return s, s.invalid(from)
	}
	c, err := s.Capture.Accept(img)
	if err != nil {
		return s, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	next := s
	next.Capture = c
	next.State = next.captureState()
	next.LastError = ""
	return next, nil
}

// ClearCaptures discards both images so they can be retaken. Not allowed once submission starts.
func (s Session) ClearCaptures() (Session, error) {
	if !s.in(StateCapturingFront, StateCapturingBack, StateReadyToSubmit, StateSubmitFailed) {
		return s, s.invalid(StateCapturingFront)
	}
	next := s
	next.Capture = s.Capture.Clear()
	next.State = StateCapturingFront
	return next, nil
}

func (s Session) BeginSubmit(applicant models.Applicant) (Session, error) {
	if !s.in(StateReadyToSubmit, StateSubmitFailed) {
		return s, s.invalid(StateSubmitting)
	}
	if s.Quote == nil || !s.Capture.Completed() {
		return s, s.invalid(StateSubmitting)
	}
	next := s
	next.Applicant = applicant
	next.State = StateSubmitting
	next.LastError = ""
	return next, nil
}

// CompleteSubmit stores the receipt number and drops the captured images; the back
// office already has them and the public receipt never shows them.
func (s Session) CompleteSubmit(receiptNumber string, degraded bool) (Session, error) {
	if s.State != StateSubmitting {
		return s, s.invalid(StateAwaitingVerification)
	}
	next := s
	next.ReceiptNumber = receiptNumber
	next.Degraded = degraded
	next.Capture = identity.Capture{Step: identity.StepCompleted}
	next.State = StateAwaitingVerification
	return next, nil
}

func (s Session) FailSubmit(reason string) (Session, error) {
	if s.State != StateSubmitting {
		return s, s.invalid(StateSubmitFailed)
	}
	next := s
	next.State = StateSubmitFailed
	next.LastError = reason
	return next, nil
}

// RejectCode records a failed code attempt. There is no lockout.
func (s Session) RejectCode(code string) (Session, error) {
	if s.State != StateAwaitingVerification {
		return s, s.invalid(StateAwaitingVerification)
	}
	next := s
	next.Verification = Verification{Code: code, Attempts: s.Verification.Attempts + 1}
	return next, nil
}

func (s Session) Unlock(code string) (Session, error) {
	if s.State != StateAwaitingVerification {
		return s, s.invalid(StateUnlocked)
	}
	next := s
	next.Verification = Verification{Code: code, Verified: true, Attempts: s.Verification.Attempts + 1}
	next.State = StateUnlocked
	next.LastError = ""
	return next, nil
}

// CanDownload is true only once the verification code was accepted.
func (s Session) CanDownload() bool {
	return s.State == StateUnlocked && s.Verification.Verified && s.ReceiptNumber != ""
}
