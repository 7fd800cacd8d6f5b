// internal/workers/loan/issue-verification-code/handler_test.go
package issueverificationcode

import (
	"context"
	"errors"
	"testing"
	"time"

	"gfn-loan-service/internal/common/config"
	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/loan/application"
	"gfn-loan-service/internal/loan/verification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) IssueAndSend(ctx context.Context, receiptNumber string) (verification.Dispatch, error) {
	args := m.Called(ctx, receiptNumber)
	return args.Get(0).(verification.Dispatch), args.Error(1)
}

func createTestHandler(t *testing.T, d Dispatcher) *Handler {
	return NewHandler(&Config{Enabled: true, Timeout: 5 * time.Second}, d, logger.NewTestLogger(t))
}

// ==========================
// Tests
// ==========================

func TestLoadConfig_OnlyEnabledInIssuedMode(t *testing.T) {
	cfg := &config.Config{Verification: config.VerificationConfig{Mode: config.VerificationModeAllowlist}}
	assert.False(t, LoadConfig(cfg).Enabled)

	cfg.Verification.Mode = config.VerificationModeIssued
	assert.True(t, LoadConfig(cfg).Enabled)
	assert.Equal(t, 30*time.Second, LoadConfig(cfg).Timeout)
}

func TestHandler_Execute_Success(t *testing.T) {
	expires := time.Date(2026, 10, 17, 9, 45, 0, 0, time.UTC)
	d := new(MockDispatcher)
	d.On("IssueAndSend", mock.Anything, "GFN-1760692200123").Return(verification.Dispatch{
		Issued:    verification.Issued{Code: "834201", ExpiresAt: expires, ReceiptNumber: "GFN-1760692200123"},
		Phone:     "+256700123456",
		Delivered: true,
	}, nil)

	out, err := createTestHandler(t, d).Execute(context.Background(), &Input{ReceiptNumber: "GFN-1760692200123"})
	require.NoError(t, err)

	assert.True(t, out.VerificationCodeIssued)
	assert.True(t, out.SMSDelivered)
	assert.Equal(t, "2026-10-17T09:45:00Z", out.ExpiresAt)
}

func TestHandler_Execute_SMSNotDelivered(t *testing.T) {
	d := new(MockDispatcher)
	d.On("IssueAndSend", mock.Anything, "GFN-1").Return(verification.Dispatch{
		Issued: verification.Issued{Code: "111111", ExpiresAt: time.Now()},
	}, nil)

	out, err := createTestHandler(t, d).Execute(context.Background(), &Input{ReceiptNumber: "GFN-1"})
	require.NoError(t, err)
	assert.False(t, out.SMSDelivered)
}

func TestHandler_Execute_Errors(t *testing.T) {
	d := new(MockDispatcher)
	d.On("IssueAndSend", mock.Anything, "GFN-404").Return(verification.Dispatch{}, application.ErrApplicationNotFound)

	h := createTestHandler(t, d)

	_, err := h.Execute(context.Background(), &Input{ReceiptNumber: "GFN-404"})
	assert.True(t, errors.Is(err, application.ErrApplicationNotFound))

	_, err = h.Execute(context.Background(), &Input{ReceiptNumber: ""})
	assert.ErrorIs(t, err, application.ErrMissingField)
	d.AssertNumberOfCalls(t, "IssueAndSend", 1)
}
