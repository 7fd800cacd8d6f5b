package wizard

import (
	"testing"
	"time"

	"gfn-loan-service/internal/loan/identity"
	"gfn-loan-service/internal/loan/quote"
	"gfn-loan-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func testImage(side models.ImageSide) models.CapturedIdentityImage {
	return models.CapturedIdentityImage{Side: side, Data: []byte{0xff, 0xd8, 0xff}, ContentType: "image/jpeg", SizeBytes: 3}
}

func testQuote(t *testing.T) models.LoanQuote {
	q, err := quote.DefaultPolicy().NewQuote("50000", models.TermShort)
	require.NoError(t, err)
	return q
}

func readySession(t *testing.T) Session {
	s := NewSession("s-1", "", time.Unix(0, 0))
	s, err := s.WithQuote(testQuote(t))
	require.NoError(t, err)
	s, err = s.CaptureFront(testImage(models.SideFront))
	require.NoError(t, err)
	s, err = s.CaptureBack(testImage(models.SideBack))
	require.NoError(t, err)
	return s
}

// ==========================
// Happy path
// ==========================

func TestSession_FullFlow(t *testing.T) {
	s := NewSession("s-1", models.TermMedium, time.Unix(0, 0))
	assert.Equal(t, StateQuoting, s.State)
	assert.Equal(t, models.TermMedium, s.PreferredTerm)

	s, err := s.WithQuote(testQuote(t))
	require.NoError(t, err)
	assert.Equal(t, StateCapturingFront, s.State)

	s, err = s.CaptureFront(testImage(models.SideFront))
	require.NoError(t, err)
	assert.Equal(t, StateCapturingBack, s.State)

	s, err = s.CaptureBack(testImage(models.SideBack))
	require.NoError(t, err)
	assert.Equal(t, StateReadyToSubmit, s.State)
	assert.True(t, s.Capture.Completed())

	s, err = s.BeginSubmit(models.Applicant{Name: "Amina"})
	require.NoError(t, err)
	assert.Equal(t, StateSubmitting, s.State)

	s, err = s.CompleteSubmit("GFN-1", false)
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingVerification, s.State)
	assert.Equal(t, "GFN-1", s.ReceiptNumber)
	assert.Nil(t, s.Capture.Images.Front)
	assert.False(t, s.CanDownload())

	s, err = s.RejectCode("424242")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingVerification, s.State)
	assert.False(t, s.Verification.Verified)
	assert.Equal(t, 1, s.Verification.Attempts)

	s, err = s.Unlock("123456")
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, s.State)
	assert.True(t, s.Verification.Verified)
	assert.Equal(t, 2, s.Verification.Attempts)
	assert.True(t, s.CanDownload())
}

func TestNewSession_IgnoresInvalidTerm(t *testing.T) {
	s := NewSession("s-1", models.TermCode("LONG"), time.Unix(0, 0))
	assert.Empty(t, s.PreferredTerm)
}

// ==========================
// Illegal transitions
// ==========================

func TestSession_BackBeforeFront(t *testing.T) {
	s, err := NewSession("s-1", "", time.Unix(0, 0)).WithQuote(testQuote(t))
	require.NoError(t, err)

	next, err := s.CaptureBack(testImage(models.SideBack))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, s, next)
}

func TestSession_CaptureBeforeQuote(t *testing.T) {
	s := NewSession("s-1", "", time.Unix(0, 0))
	_, err := s.CaptureFront(testImage(models.SideFront))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSession_WrongImageSide(t *testing.T) {
	s, err := NewSession("s-1", "", time.Unix(0, 0)).WithQuote(testQuote(t))
	require.NoError(t, err)

	_, err = s.CaptureFront(testImage(models.SideBack))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSession_SubmitRequiresBothImages(t *testing.T) {
	s, err := NewSession("s-1", "", time.Unix(0, 0)).WithQuote(testQuote(t))
	require.NoError(t, err)
	s, err = s.CaptureFront(testImage(models.SideFront))
	require.NoError(t, err)

	_, err = s.BeginSubmit(models.Applicant{Name: "Amina"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSession_UnlockBeforeSubmit(t *testing.T) {
	_, err := readySession(t).Unlock("123456")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSession_NoChangesOnceSubmitting(t *testing.T) {
	s, err := readySession(t).BeginSubmit(models.Applicant{Name: "Amina"})
	require.NoError(t, err)

	_, err = s.ClearCaptures()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.WithQuote(testQuote(t))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = s.BeginSubmit(models.Applicant{Name: "Amina"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

// ==========================
// Recovery
// ==========================

func TestSession_FailSubmitThenRetry(t *testing.T) {
	s, err := readySession(t).BeginSubmit(models.Applicant{Name: "Amina"})
	require.NoError(t, err)

	s, err = s.FailSubmit("We could not save your application. Please try again.")
	require.NoError(t, err)
	assert.Equal(t, StateSubmitFailed, s.State)
	assert.NotEmpty(t, s.LastError)

	s, err = s.BeginSubmit(models.Applicant{Name: "Amina"})
	require.NoError(t, err)
	assert.Equal(t, StateSubmitting, s.State)
	assert.Empty(t, s.LastError)
}

func TestSession_ClearCaptures(t *testing.T) {
	s, err := readySession(t).ClearCaptures()
	require.NoError(t, err)

	assert.Equal(t, StateCapturingFront, s.State)
	assert.Equal(t, identity.StepFront, s.Capture.Step)
	assert.Nil(t, s.Capture.Images.Front)
	assert.NotNil(t, s.Quote)
}

func TestSession_RequoteKeepsCaptures(t *testing.T) {
	s := readySession(t)
	q, err := quote.DefaultPolicy().NewQuote("100000", models.TermMedium)
	require.NoError(t, err)

	s, err = s.WithQuote(q)
	require.NoError(t, err)
	assert.Equal(t, StateReadyToSubmit, s.State)
	assert.Equal(t, models.TermMedium, s.Quote.Term)
}
