package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/loan/application"
	"gfn-loan-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRecords struct {
	mock.Mock
}

func (m *MockRecords) GetByReceiptNumber(ctx context.Context, receiptNumber string) (models.LoanApplicationRecord, error) {
	args := m.Called(ctx, receiptNumber)
	return args.Get(0).(models.LoanApplicationRecord), args.Error(1)
}

type MockSMS struct {
	mock.Mock
}

func (m *MockSMS) SendSMS(ctx context.Context, phone, message string) error {
	return m.Called(ctx, phone, message).Error(0)
}

func TestDispatcher_IssueAndSend(t *testing.T) {
	_, rdb := setupRedis(t)
	gate := NewIssuedCodeGate(rdb, 15*time.Minute, logger.NewNoOpLogger())

	records := new(MockRecords)
	records.On("GetByReceiptNumber", mock.Anything, "GFN-1").
		Return(models.LoanApplicationRecord{ReceiptNumber: "GFN-1", Applicant: models.Applicant{Phone: "+256700123456"}}, nil)

	var sent string
	sms := new(MockSMS)
	sms.On("SendSMS", mock.Anything, "+256700123456", mock.Anything).
		Run(func(args mock.Arguments) { sent = args.String(2) }).
		Return(nil).Once()

	d := NewDispatcher(gate, records, sms, logger.NewTestLogger(t))
	out, err := d.IssueAndSend(context.Background(), "GFN-1")
	require.NoError(t, err)

	assert.True(t, out.Delivered)
	assert.Len(t, out.Issued.Code, 6)
	assert.Contains(t, sent, out.Issued.Code)

	ok, err := gate.Verify(context.Background(), "GFN-1", out.Issued.Code)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDispatcher_SMSFailureStillIssues(t *testing.T) {
	_, rdb := setupRedis(t)
	gate := NewIssuedCodeGate(rdb, 15*time.Minute, logger.NewNoOpLogger())

	records := new(MockRecords)
	records.On("GetByReceiptNumber", mock.Anything, "GFN-1").
		Return(models.LoanApplicationRecord{ReceiptNumber: "GFN-1", Applicant: models.Applicant{Phone: "+256700123456"}}, nil)
	sms := new(MockSMS)
	sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("opted out"))

	out, err := NewDispatcher(gate, records, sms, logger.NewNoOpLogger()).IssueAndSend(context.Background(), "GFN-1")
	require.NoError(t, err)
	assert.False(t, out.Delivered)
	assert.NotEmpty(t, out.Issued.Code)
}

func TestDispatcher_SMSDisabledIsNotDelivered(t *testing.T) {
	_, rdb := setupRedis(t)
	gate := NewIssuedCodeGate(rdb, 15*time.Minute, logger.NewNoOpLogger())

	records := new(MockRecords)
	records.On("GetByReceiptNumber", mock.Anything, "GFN-1").
		Return(models.LoanApplicationRecord{ReceiptNumber: "GFN-1", Applicant: models.Applicant{Phone: "+256700123456"}}, nil)
	notifier := application.NewAWSNotifier(application.NotifierConfig{SMSEnabled: false}, nil, nil, logger.NewNoOpLogger())

	out, err := NewDispatcher(gate, records, notifier, logger.NewNoOpLogger()).IssueAndSend(context.Background(), "GFN-1")
	require.NoError(t, err)
	assert.False(t, out.Delivered)
	assert.NotEmpty(t, out.Issued.Code)
}

func TestDispatcher_UnknownApplication(t *testing.T) {
	_, rdb := setupRedis(t)
	gate := NewIssuedCodeGate(rdb, 15*time.Minute, logger.NewNoOpLogger())

	notFound := errors.New("APPLICATION_NOT_FOUND")
	records := new(MockRecords)
	records.On("GetByReceiptNumber", mock.Anything, "GFN-404").Return(models.LoanApplicationRecord{}, notFound)

	_, err := NewDispatcher(gate, records, nil, logger.NewNoOpLogger()).IssueAndSend(context.Background(), "GFN-404")
	assert.ErrorIs(t, err, notFound)
}
