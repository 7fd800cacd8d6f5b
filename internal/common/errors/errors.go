// Package errors provides the structured error model shared by the HTTP API and the BPMN job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode is a stable, machine readable error identifier.
type ErrorCode string

// Quote / application input
const (
	ErrCodeAmountOutOfRange            ErrorCode = "AMOUNT_OUT_OF_RANGE"
	ErrCodeApplicationValidationFailed ErrorCode = "APPLICATION_VALIDATION_FAILED"
	ErrCodeImageValidationFailed       ErrorCode = "IMAGE_VALIDATION_FAILED"
)

// Persistence / rendering / delivery
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeDuplicateReceiptNumber   ErrorCode = "DUPLICATE_RECEIPT_NUMBER"
	ErrCodeReceiptRenderFailed      ErrorCode = "RECEIPT_RENDER_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeStorageUploadFailed      ErrorCode = "STORAGE_UPLOAD_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout            ErrorCode = "SEARCH_TIMEOUT"
)

// Verification / workflow
const (
	ErrCodeVerificationCodeInvalid ErrorCode = "VERIFICATION_CODE_INVALID"
	ErrCodeVerificationCodeExpired ErrorCode = "VERIFICATION_CODE_EXPIRED"
	ErrCodeApplicationNotFound     ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeSessionNotFound         ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeInvalidWizardTransition ErrorCode = "INVALID_WIZARD_TRANSITION"
	ErrCodeInternal                ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError extracts a *StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewAmountOutOfRangeError(details string) *StandardError {
	return newError(ErrCodeAmountOutOfRange, "Loan amount is outside the allowed range", details, false, nil)
}

func NewApplicationValidationFailedError(details string) *StandardError {
	return newError(ErrCodeApplicationValidationFailed, "Application data validation failed", details, false, nil)
}

func NewImageValidationFailedError(details string) *StandardError {
	return newError(ErrCodeImageValidationFailed, "Identity image was rejected", details, false, nil)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true, err)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", err.Error(), true, err)
}

func NewDuplicateReceiptNumberError(receiptNumber string) *StandardError {
	return newError(ErrCodeDuplicateReceiptNumber, "Receipt number already in use",
		fmt.Sprintf("receiptNumber: %s", receiptNumber), true, nil)
}

func NewReceiptRenderFailedError(err error) *StandardError {
	return newError(ErrCodeReceiptRenderFailed, "Receipt document could not be rendered", err.Error(), false, err)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true, err)
}

func NewStorageUploadFailedError(object string, err error) *StandardError {
	return newError(ErrCodeStorageUploadFailed, "Receipt archive upload failed",
		fmt.Sprintf("object: %s, error: %s", object, err.Error()), true, err)
}

func NewSearchQueryFailedError(backend string, err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Client search failed",
		fmt.Sprintf("backend: %s, error: %s", backend, err.Error()), true, err)
}

func NewSearchTimeoutError(backend string) *StandardError {
	return newError(ErrCodeSearchTimeout, "Client search timeout", fmt.Sprintf("backend: %s", backend), true, nil)
}

func NewVerificationCodeInvalidError() *StandardError {
	return newError(ErrCodeVerificationCodeInvalid, "Invalid Code", "", false, nil)
}

func NewVerificationCodeExpiredError(receiptNumber string) *StandardError {
	return newError(ErrCodeVerificationCodeExpired, "Verification code expired",
		fmt.Sprintf("receiptNumber: %s", receiptNumber), false, nil)
}

func NewApplicationNotFoundError(receiptNumber string) *StandardError {
	return newError(ErrCodeApplicationNotFound, "Loan application not found",
		fmt.Sprintf("receiptNumber: %s", receiptNumber), false, nil)
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Application session not found or expired",
		fmt.Sprintf("sessionId: %s", sessionID), false, nil)
}

func NewInvalidWizardTransitionError(from, to string) *StandardError {
	return newError(ErrCodeInvalidWizardTransition, "This step is not available right now",
		fmt.Sprintf("from: %s, to: %s", from, to), false, nil)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true, err)
}

// ==========================
// 4. BPMN mapping and retries
// ==========================

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeAmountOutOfRange:            "AMOUNT_OUT_OF_RANGE",
	ErrCodeApplicationValidationFailed: "APPLICATION_VALIDATION_FAILED",
	ErrCodeImageValidationFailed:       "IMAGE_VALIDATION_FAILED",
	ErrCodeDatabaseConnectionFailed:    "DATABASE_CONNECTION_FAILED",
	ErrCodeDatabaseInsertFailed:        "DATABASE_INSERT_FAILED",
	ErrCodeDuplicateReceiptNumber:      "DUPLICATE_RECEIPT_NUMBER",
	ErrCodeReceiptRenderFailed:         "RECEIPT_RENDER_FAILED",
	ErrCodeNotificationSendFailed:      "NOTIFICATION_SEND_FAILED",
	ErrCodeStorageUploadFailed:         "STORAGE_UPLOAD_FAILED",
	ErrCodeSearchQueryFailed:           "SEARCH_QUERY_FAILED",
	ErrCodeSearchTimeout:               "SEARCH_TIMEOUT",
	ErrCodeVerificationCodeInvalid:     "VERIFICATION_CODE_INVALID",
	ErrCodeVerificationCodeExpired:     "VERIFICATION_CODE_EXPIRED",
	ErrCodeApplicationNotFound:         "APPLICATION_NOT_FOUND",
	ErrCodeSessionNotFound:             "SESSION_NOT_FOUND",
	ErrCodeInvalidWizardTransition:     "INVALID_WIZARD_TRANSITION",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeStorageUploadFailed,
		ErrCodeSearchQueryFailed:
		return 3

	case ErrCodeDuplicateReceiptNumber,
		ErrCodeSearchTimeout:
		return 2

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VERIFICATION"):
		return "VERIFICATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "RECEIPT_NUMBER"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "STORAGE") || strings.Contains(codeStr, "RENDER"):
		return "DOCUMENT"
	case strings.Contains(codeStr, "IMAGE"):
		return "IDENTITY"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "RANGE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
