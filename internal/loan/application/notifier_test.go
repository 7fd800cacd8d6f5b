package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockSES struct {
	mock.Mock
}

func (m *MockSES) SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ses.SendRawEmailOutput), args.Error(1)
}

type MockSNS struct {
	mock.Mock
}

func (m *MockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sns.PublishOutput), args.Error(1)
}

func createTestNotifierConfig() NotifierConfig {
	return NotifierConfig{
		EmailEnabled:    true,
		SMSEnabled:      true,
		FromEmail:       "noreply@gfn.example",
		BackOfficeEmail: "loans@gfn.example",
		SMSSenderID:     "GFN",
	}
}

func createTestPayload() NotificationPayload {
	return NotificationPayload{
		Record:           createTestRecord(),
		Currency:         "UGX",
		ReceiptPDFBase64: "JVBERi0xLjMK",
		FrontImageBase64: "/9j/4AAQ",
		BackImageBase64:  "/9j/4BBQ",
	}
}

// ==========================
// Notify
// ==========================

func TestAWSNotifier_Notify_AllChannelsSent(t *testing.T) {
	sesMock := new(MockSES)
	snsMock := new(MockSNS)

	var raw string
	sesMock.On("SendRawEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendRawEmailInput) bool {
		raw = string(in.RawMessage.Data)
		return aws.ToString(in.Source) == "noreply@gfn.example" &&
			len(in.Destinations) == 1 && in.Destinations[0] == "loans@gfn.example"
	})).Return(&ses.SendRawEmailOutput{MessageId: aws.String("ses-1")}, nil)

	snsMock.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		_, hasSender := in.MessageAttributes["AWS.SNS.SMS.SenderID"]
		return aws.ToString(in.PhoneNumber) == "+256700123456" && hasSender
	})).Return(&sns.PublishOutput{MessageId: aws.String("sns-1")}, nil)

	n := NewAWSNotifier(createTestNotifierConfig(), sesMock, snsMock, logger.NewTestLogger(t))
	report, err := n.Notify(context.Background(), createTestPayload())
	require.NoError(t, err)

	require.Len(t, report.Results, 2)
	assert.Equal(t, models.NotificationSent, report.Results[0].Status)
	assert.Equal(t, "ses-1", report.Results[0].MessageID)
	assert.Equal(t, models.NotificationSent, report.Results[1].Status)

	assert.Contains(t, raw, "Subject: New loan application GFN-1760692200123 (Amina Nakato)")
	assert.Contains(t, raw, `filename="Loan-Receipt-GFN-1760692200123.pdf"`)
	assert.Contains(t, raw, `filename="id-front.jpg"`)
	assert.Contains(t, raw, `filename="id-back.jpg"`)
	assert.Contains(t, raw, "Total:    UGX 55,000")

	sesMock.AssertExpectations(t)
	snsMock.AssertExpectations(t)
}

func TestAWSNotifier_Notify_EmailFailureReported(t *testing.T) {
	sesMock := new(MockSES)
	snsMock := new(MockSNS)

	sesMock.On("SendRawEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))
	snsMock.On("Publish", mock.Anything, mock.Anything).Return(&sns.PublishOutput{MessageId: aws.String("sns-1")}, nil)

	n := NewAWSNotifier(createTestNotifierConfig(), sesMock, snsMock, logger.NewNoOpLogger())
	report, err := n.Notify(context.Background(), createTestPayload())

	assert.ErrorIs(t, err, ErrNotificationSendFailed)
	assert.True(t, report.Failed())
	assert.Equal(t, models.NotificationFailed, report.Results[0].Status)
	assert.Equal(t, "throttled", report.Results[0].Error)
	assert.Equal(t, models.NotificationSent, report.Results[1].Status)
}

func TestAWSNotifier_Notify_DisabledChannels(t *testing.T) {
	sesMock := new(MockSES)
	snsMock := new(MockSNS)

	cfg := createTestNotifierConfig()
	cfg.EmailEnabled = false
	cfg.SMSEnabled = false

	n := NewAWSNotifier(cfg, sesMock, snsMock, logger.NewNoOpLogger())
	report, err := n.Notify(context.Background(), createTestPayload())
	require.NoError(t, err)

	for _, r := range report.Results {
		assert.Equal(t, models.NotificationDisabled, r.Status)
	}
	sesMock.AssertNotCalled(t, "SendRawEmail", mock.Anything, mock.Anything)
	snsMock.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestAWSNotifier_Notify_SkipsEmptyAttachments(t *testing.T) {
	sesMock := new(MockSES)

	var raw string
	sesMock.On("SendRawEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendRawEmailInput) bool {
		raw = string(in.RawMessage.Data)
		return true
	})).Return(&ses.SendRawEmailOutput{MessageId: aws.String("ses-2")}, nil)

	cfg := createTestNotifierConfig()
	cfg.SMSEnabled = false

	payload := createTestPayload()
	payload.ReceiptPDFBase64 = ""

	n := NewAWSNotifier(cfg, sesMock, nil, logger.NewNoOpLogger())
	_, err := n.Notify(context.Background(), payload)
	require.NoError(t, err)

	assert.NotContains(t, raw, "application/pdf")
	assert.Contains(t, raw, "id-front.jpg")
}

// ==========================
// SendSMS
// ==========================

func TestAWSNotifier_SendSMS(t *testing.T) {
	snsMock := new(MockSNS)
	snsMock.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.Message) == "Your code is 123456" &&
			aws.ToString(in.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue) == "Transactional"
	})).Return(&sns.PublishOutput{}, nil).Once()
	snsMock.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("opted out")).Once()

	n := NewAWSNotifier(createTestNotifierConfig(), nil, snsMock, logger.NewNoOpLogger())

	assert.NoError(t, n.SendSMS(context.Background(), "+256700123456", "Your code is 123456"))
	assert.ErrorIs(t, n.SendSMS(context.Background(), "+256700123456", "again"), ErrNotificationSendFailed)
	snsMock.AssertExpectations(t)
}

func TestAWSNotifier_SendSMS_Disabled(t *testing.T) {
	snsMock := new(MockSNS)
	cfg := createTestNotifierConfig()
	cfg.SMSEnabled = false

	n := NewAWSNotifier(cfg, nil, snsMock, logger.NewNoOpLogger())
	assert.ErrorIs(t, n.SendSMS(context.Background(), "+256700123456", "Your code is 123456"), ErrSMSDisabled)

	n = NewAWSNotifier(createTestNotifierConfig(), nil, nil, logger.NewNoOpLogger())
	assert.ErrorIs(t, n.SendSMS(context.Background(), "+256700123456", "Your code is 123456"), ErrSMSDisabled)
	snsMock.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

// ==========================
// Helpers
// ==========================

func TestWriteWrapped(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, writeWrapped(&sb, "abcdefghij", 4))
	assert.Equal(t, "abcd\r\nefgh\r\nij\r\n", sb.String())
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Amina", firstName("  Amina Nakato "))
	assert.Equal(t, "", firstName(""))
}
