package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name    string
		err     *StandardError
		code    string
		retries int
	}{
		{"insert retried", NewDatabaseInsertFailedError(stderrors.New("reset")), "DATABASE_INSERT_FAILED", 3},
		{"notification retried", NewNotificationSendFailedError("sms", stderrors.New("throttled")), "NOTIFICATION_SEND_FAILED", 3},
		{"duplicate receipt", NewDuplicateReceiptNumberError("GFN-1"), "DUPLICATE_RECEIPT_NUMBER", 2},
		{"validation not retried", NewApplicationValidationFailedError("name"), "APPLICATION_VALIDATION_FAILED", 0},
		{"not found", NewApplicationNotFoundError("GFN-404"), "APPLICATION_NOT_FOUND", 0},
		{"unmapped code passes through", NewTimeoutError("search", stderrors.New("deadline")), "TIMEOUT_ERROR", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.code, bpmn.Code)
			assert.Equal(t, tt.retries, bpmn.Retries)
			assert.Equal(t, string(tt.err.Code), bpmn.ErrorVariables["originalErrorCode"])
		})
	}
}

func TestBPMNError_ToErrorVariables(t *testing.T) {
	bpmn := ConvertToBPMNError(NewVerificationCodeExpiredError("GFN-7"))
	vars := bpmn.ToErrorVariables()

	assert.Equal(t, "VERIFICATION_CODE_EXPIRED", vars["errorCode"])
	assert.Equal(t, "receiptNumber: GFN-7", vars["errorDetails"])
	assert.Equal(t, false, vars["retryable"])
	assert.Contains(t, vars, "timestamp")
}

func TestNormalize(t *testing.T) {
	std := NewSessionNotFoundError("s-1")
	assert.Same(t, std, Normalize(fmt.Errorf("load: %w", std)))

	cause := stderrors.New("boom")
	unknown := Normalize(cause)
	assert.Equal(t, ErrCodeInternal, unknown.Code)
	assert.False(t, unknown.Retryable)
	assert.True(t, stderrors.Is(unknown, cause))
}

func TestAsStandardError(t *testing.T) {
	_, ok := AsStandardError(stderrors.New("plain"))
	assert.False(t, ok)

	std, ok := AsStandardError(fmt.Errorf("wrapped: %w", NewSearchTimeoutError("elasticsearch")))
	require.True(t, ok)
	assert.Equal(t, ErrCodeSearchTimeout, std.Code)
}

func TestWithMetadata(t *testing.T) {
	std := NewStorageUploadFailedError("receipts/GFN-1.pdf", stderrors.New("403")).
		WithMetadata("bucket", "gfn-receipts")
	assert.Equal(t, "gfn-receipts", std.Metadata["bucket"])
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "VERIFICATION", GetErrorCategory(ErrCodeVerificationCodeInvalid))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDuplicateReceiptNumber))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeSearchTimeout))
	assert.Equal(t, "DOCUMENT", GetErrorCategory(ErrCodeReceiptRenderFailed))
}
