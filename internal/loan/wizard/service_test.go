package wizard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/loan/application"
	"gfn-loan-service/internal/loan/identity"
	"gfn-loan-service/internal/loan/quote"
	"gfn-loan-service/internal/loan/receipt"
	"gfn-loan-service/internal/loan/verification"
	"gfn-loan-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Validate(req application.SubmitRequest) error {
	return m.Called(req).Error(0)
}

func (m *MockSubmitter) Submit(ctx context.Context, req application.SubmitRequest) (*application.SubmitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.SubmitResult), args.Error(1)
}

func (m *MockSubmitter) PublicReceipt(record models.LoanApplicationRecord) (receipt.Document, error) {
	args := m.Called(record)
	return args.Get(0).(receipt.Document), args.Error(1)
}

type MockRecords struct {
	mock.Mock
}

func (m *MockRecords) GetByReceiptNumber(ctx context.Context, receiptNumber string) (models.LoanApplicationRecord, error) {
	args := m.Called(ctx, receiptNumber)
	return args.Get(0).(models.LoanApplicationRecord), args.Error(1)
}

// passThrough accepts any non-empty image unless the bytes read "bad".
type passThrough struct{}

func (passThrough) Validate(data []byte) identity.Validation {
	if string(data) == "bad" {
		return identity.Validation{Message: "Image is too small. Please retake the photo."}
	}
	return identity.Validation{Valid: true}
}

func (passThrough) Process(_ context.Context, side models.ImageSide, data []byte) (models.CapturedIdentityImage, error) {
	return models.CapturedIdentityImage{Side: side, Data: data, ContentType: "image/jpeg", SizeBytes: int64(len(data))}, nil
}

type testEnv struct {
	svc       *Service
	submitter *MockSubmitter
	records   *MockRecords
}

func newTestEnv(t *testing.T) testEnv {
	_, rdb := setupRedis(t)
	log := logger.NewTestLogger(t)

	env := testEnv{submitter: new(MockSubmitter), records: new(MockRecords)}
	env.svc = NewService(Options{
		Store:     NewRedisStore(rdb, time.Hour),
		Policy:    quote.DefaultPolicy(),
		Capture:   identity.NewOrchestrator(passThrough{}, log),
		Submitter: env.submitter,
		Records:   env.records,
		Gate:      verification.NewAllowlistGate(),
		Logger:    log,
	})
	n := 0
	env.svc.newID = func() string { n++; return fmt.Sprintf("session-%d", n) }
	return env
}

func (e testEnv) readyToSubmit(t *testing.T) Session {
	ctx := context.Background()
	s, err := e.svc.Start(ctx, "short")
	require.NoError(t, err)
	_, err = e.svc.Quote(ctx, s.ID, "50000", "")
	require.NoError(t, err)
	_, _, err = e.svc.Capture(ctx, s.ID, models.SideFront, []byte("front"))
	require.NoError(t, err)
	s, _, err = e.svc.Capture(ctx, s.ID, models.SideBack, []byte("back"))
	require.NoError(t, err)
	require.Equal(t, StateReadyToSubmit, s.State)
	return s
}

func applicant() models.Applicant {
	return models.Applicant{Name: "Amina Nakato", Phone: "+256700123456", Email: "amina@example.com"}
}

func submitted(receiptNumber string) *application.SubmitResult {
	return &application.SubmitResult{Record: models.LoanApplicationRecord{ReceiptNumber: receiptNumber}}
}

// ==========================
// Quote
// ==========================

func TestService_Quote_UsesPreselectedTerm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	s, err := env.svc.Start(ctx, "30")
	require.NoError(t, err)
	assert.Equal(t, models.TermMedium, s.PreferredTerm)

	s, err = env.svc.Quote(ctx, s.ID, "50,000", "")
	require.NoError(t, err)
	assert.Equal(t, StateCapturingFront, s.State)
	assert.True(t, s.Quote.TotalRepayment.Equal(decimal.NewFromInt(59000)))
}

func TestService_Quote_OutOfRange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	s, err := env.svc.Start(ctx, "")
	require.NoError(t, err)

	for _, amount := range []string{"9999", "500001", "abc"} {
		got, err := env.svc.Quote(ctx, s.ID, amount, "short")
		assert.Error(t, err, amount)
		assert.Equal(t, StateQuoting, got.State)
	}
	_, err = env.svc.Quote(ctx, s.ID, "10000", "short")
	assert.NoError(t, err)
}

func TestService_UnknownSession(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Quote(context.Background(), "missing", "50000", "short")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// ==========================
// Capture
// ==========================

func TestService_Capture_RejectedImageKeepsStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	s, err := env.svc.Start(ctx, "short")
	require.NoError(t, err)
	_, err = env.svc.Quote(ctx, s.ID, "50000", "")
	require.NoError(t, err)

	s, out, err := env.svc.Capture(ctx, s.ID, models.SideFront, []byte("bad"))
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Equal(t, "Image is too small. Please retake the photo.", out.Message)
	assert.Equal(t, StateCapturingFront, s.State)
}

func TestService_Capture_BackFirstIsRefused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	s, err := env.svc.Start(ctx, "short")
	require.NoError(t, err)
	_, err = env.svc.Quote(ctx, s.ID, "50000", "")
	require.NoError(t, err)

	s, out, err := env.svc.Capture(ctx, s.ID, models.SideBack, []byte("back"))
	require.NoError(t, err)
	assert.False(t, out.Accepted)
	assert.Contains(t, out.Message, "front")
	assert.Equal(t, StateCapturingFront, s.State)
}

func TestService_Capture_BeforeQuote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	s, err := env.svc.Start(ctx, "")
	require.NoError(t, err)
	_, _, err = env.svc.Capture(ctx, s.ID, models.SideFront, []byte("front"))
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestService_ClearCaptures(t *testing.T) {
	env := newTestEnv(t)
	s := env.readyToSubmit(t)

	s, err := env.svc.ClearCaptures(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCapturingFront, s.State)
	assert.Nil(t, s.Capture.Images.Back)
}

// ==========================
// Submit
// ==========================

func TestService_Submit_Success(t *testing.T) {
	env := newTestEnv(t)
	s := env.readyToSubmit(t)

	env.submitter.On("Validate", mock.Anything).Return(nil)
	env.submitter.On("Submit", mock.Anything, mock.MatchedBy(func(req application.SubmitRequest) bool {
		return string(req.Images.Front.Data) == "front" && string(req.Images.Back.Data) == "back" &&
			req.Quote.TotalRepayment.Equal(decimal.NewFromInt(55000))
	})).Return(submitted("GFN-1760692200123"), nil).Once()

	s, res, err := env.svc.Submit(context.Background(), s.ID, applicant())
	require.NoError(t, err)
	assert.Equal(t, "GFN-1760692200123", res.Record.ReceiptNumber)
	assert.Equal(t, StateAwaitingVerification, s.State)
	assert.Equal(t, "GFN-1760692200123", s.ReceiptNumber)

	// images are dropped from the stored session once submitted
	stored, err := env.svc.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Capture.Images.Front)
	env.submitter.AssertExpectations(t)
}

func TestService_Submit_ValidationFailureKeepsState(t *testing.T) {
	env := newTestEnv(t)
	s := env.readyToSubmit(t)

	env.submitter.On("Validate", mock.Anything).Return(application.ErrMissingField)

	s, _, err := env.svc.Submit(context.Background(), s.ID, models.Applicant{})
	assert.ErrorIs(t, err, application.ErrMissingField)
	assert.Equal(t, StateReadyToSubmit, s.State)
	env.submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestService_Submit_FailureAllowsRetry(t *testing.T) {
	env := newTestEnv(t)
	s := env.readyToSubmit(t)
	ctx := context.Background()

	env.submitter.On("Validate", mock.Anything).Return(nil)
	env.submitter.On("Submit", mock.Anything, mock.Anything).Return(nil, application.ErrDatabaseInsertFailed).Once()
	env.submitter.On("Submit", mock.Anything, mock.Anything).Return(submitted("GFN-2"), nil).Once()

	failed, _, err := env.svc.Submit(ctx, s.ID, applicant())
	assert.ErrorIs(t, err, application.ErrDatabaseInsertFailed)
	assert.Equal(t, StateSubmitFailed, failed.State)
	assert.Equal(t, "We could not save your application. Please try again.", failed.LastError)

	s, _, err = env.svc.Submit(ctx, s.ID, applicant())
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingVerification, s.State)
}

func TestService_Submit_Twice(t *testing.T) {
	env := newTestEnv(t)
	s := env.readyToSubmit(t)
	ctx := context.Background()

	env.submitter.On("Validate", mock.Anything).Return(nil)
	env.submitter.On("Submit", mock.Anything, mock.Anything).Return(submitted("GFN-3"), nil).Once()

	_, _, err := env.svc.Submit(ctx, s.ID, applicant())
	require.NoError(t, err)

	_, _, err = env.svc.Submit(ctx, s.ID, applicant())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	env.submitter.AssertNumberOfCalls(t, "Submit", 1)
}

// ==========================
// Verify and Receipt
// ==========================

func TestService_VerifyAndDownload(t *testing.T) {
	env := newTestEnv(t)
	s := env.readyToSubmit(t)
	ctx := context.Background()

	env.submitter.On("Validate", mock.Anything).Return(nil)
	env.submitter.On("Submit", mock.Anything, mock.Anything).Return(submitted("GFN-4"), nil)
	_, _, err := env.svc.Submit(ctx, s.ID, applicant())
	require.NoError(t, err)

	_, err = env.svc.Receipt(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotUnlocked)

	s, ok, err := env.svc.Verify(ctx, s.ID, "424242")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, StateAwaitingVerification, s.State)

	s, ok, err = env.svc.Verify(ctx, s.ID, "123456")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StateUnlocked, s.State)

	record := models.LoanApplicationRecord{ReceiptNumber: "GFN-4"}
	env.records.On("GetByReceiptNumber", mock.Anything, "GFN-4").Return(record, nil)
	env.submitter.On("PublicReceipt", record).Return(receipt.Document{FileName: "Loan-Receipt-GFN-4.pdf", Data: []byte("%PDF")}, nil)

	doc, err := env.svc.Receipt(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loan-Receipt-GFN-4.pdf", doc.FileName)

	// verifying again after unlock is a no-op
	_, ok, err = env.svc.Verify(ctx, s.ID, "000000")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_VerifyBeforeSubmit(t *testing.T) {
	env := newTestEnv(t)
	s := env.readyToSubmit(t)

	_, ok, err := env.svc.Verify(context.Background(), s.ID, "123456")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.False(t, ok)
}

type failingGate struct{}

func (failingGate) Mode() string { return "issued" }
func (failingGate) Verify(context.Context, string, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestService_VerifyGateError(t *testing.T) {
	env := newTestEnv(t)
	s := env.readyToSubmit(t)
	ctx := context.Background()

	env.submitter.On("Validate", mock.Anything).Return(nil)
	env.submitter.On("Submit", mock.Anything, mock.Anything).Return(submitted("GFN-5"), nil)
	_, _, err := env.svc.Submit(ctx, s.ID, applicant())
	require.NoError(t, err)

	env.svc.gate = failingGate{}
	s, ok, err := env.svc.Verify(ctx, s.ID, "123456")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, StateAwaitingVerification, s.State)
}

// secondTabGate runs during once, right after the wrapped gate answers and
// before the caller saves, the way a double click would.
type secondTabGate struct {
	verification.Gate
	during func()
	fired  bool
}

func (g *secondTabGate) Verify(ctx context.Context, receiptNumber, candidate string) (bool, error) {
	ok, err := g.Gate.Verify(ctx, receiptNumber, candidate)
	if !g.fired {
		g.fired = true
		g.during()
	}
	return ok, err
}

func TestService_VerifyRecoversFromConcurrentSave(t *testing.T) {
	env := newTestEnv(t)
	s := env.readyToSubmit(t)
	ctx := context.Background()

	env.submitter.On("Validate", mock.Anything).Return(nil)
	env.submitter.On("Submit", mock.Anything, mock.Anything).Return(submitted("GFN-6"), nil)
	_, _, err := env.svc.Submit(ctx, s.ID, applicant())
	require.NoError(t, err)

	_, rdb := setupRedis(t)
	issued := verification.NewIssuedCodeGate(rdb, 15*time.Minute, logger.NewNoOpLogger())
	code, err := issued.Issue(ctx, "GFN-6")
	require.NoError(t, err)

	var secondOK bool
	gate := &secondTabGate{Gate: issued}
	gate.during = func() {
		_, secondOK, _ = env.svc.Verify(ctx, s.ID, code.Code)
	}
	env.svc.gate = gate

	s, ok, err := env.svc.Verify(ctx, s.ID, code.Code)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, secondOK)
	assert.Equal(t, StateUnlocked, s.State)

	stored, err := env.svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, stored.CanDownload())

	state, err := issued.Status(ctx, "GFN-6")
	require.NoError(t, err)
	assert.Equal(t, "consumed", state.Name())

	// the same code again is a no-op on the unlocked session
	_, ok, err = env.svc.Verify(ctx, s.ID, code.Code)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_VerifyRejectedCodeLosesRace(t *testing.T) {
	env := newTestEnv(t)
	s := env.readyToSubmit(t)
	ctx := context.Background()

	env.submitter.On("Validate", mock.Anything).Return(nil)
	env.submitter.On("Submit", mock.Anything, mock.Anything).Return(submitted("GFN-7"), nil)
	_, _, err := env.svc.Submit(ctx, s.ID, applicant())
	require.NoError(t, err)

	gate := &secondTabGate{Gate: env.svc.gate}
	gate.during = func() {
		_, _, _ = env.svc.Verify(ctx, s.ID, "000000")
	}
	env.svc.gate = gate

	s, ok, err := env.svc.Verify(ctx, s.ID, "000000")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, StateAwaitingVerification, s.State)
	assert.Equal(t, 1, s.Verification.Attempts)
}

type recordedStage struct {
	stage string
	ok    bool
}

type recordingStages struct {
	got []recordedStage
}

func (r *recordingStages) RecordStage(_ context.Context, stage string, _ time.Duration, ok bool) {
	r.got = append(r.got, recordedStage{stage: stage, ok: ok})
}

func TestService_RecordsStages(t *testing.T) {
	env := newTestEnv(t)
	stages := &recordingStages{}
	env.svc.stages = stages

	s := env.readyToSubmit(t)
	_, err := env.svc.Receipt(context.Background(), s.ID)
	require.ErrorIs(t, err, ErrNotUnlocked)

	assert.Equal(t, []recordedStage{
		{stage: "capture", ok: true},
		{stage: "capture", ok: true},
		{stage: "receipt", ok: false},
	}, stages.got)
}
