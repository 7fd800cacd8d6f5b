package api

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "gfn-loan-service/internal/common/errors"
	"gfn-loan-service/internal/loan/errmap"
	"gfn-loan-service/internal/loan/wizard"

	"github.com/gin-gonic/gin"
)

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
	NextStep  string `json:"nextStep"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

func statusFor(err error, code apperrors.ErrorCode) int {
	if errors.Is(err, wizard.ErrNotUnlocked) {
		return http.StatusForbidden
	}
	switch code {
	case apperrors.ErrCodeAmountOutOfRange,
		apperrors.ErrCodeApplicationValidationFailed,
		apperrors.ErrCodeImageValidationFailed,
		apperrors.ErrCodeVerificationCodeInvalid,
		apperrors.ErrCodeVerificationCodeExpired:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeApplicationNotFound, apperrors.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeInvalidWizardTransition:
		return http.StatusConflict
	case apperrors.ErrCodeDatabaseConnectionFailed,
		apperrors.ErrCodeDatabaseInsertFailed,
		apperrors.ErrCodeDuplicateReceiptNumber:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeSearchQueryFailed, apperrors.ErrCodeNotificationSendFailed:
		return http.StatusBadGateway
	case "TIMEOUT_ERROR", apperrors.ErrCodeSearchTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a coded error. Every response tells the user what to do next.
func (h *handlers) fail(c *gin.Context, err error) {
	std := errmap.ToStandard(err)
	status := statusFor(err, std.Code)

	detail := errorDetail{
		Code:      string(std.Code),
		Message:   std.Message,
		Retryable: std.Retryable,
		NextStep:  h.nextStep(status, std),
	}
	if status < http.StatusInternalServerError {
		detail.Details = std.Details
	} else {
		h.log.Error("request error", map[string]interface{}{
			"route":   c.FullPath(),
			"code":    string(std.Code),
			"details": std.Details,
		})
	}
	c.AbortWithStatusJSON(status, errorBody{Error: detail})
}

func (h *handlers) badRequest(c *gin.Context, code, message string, err error) {
	detail := errorDetail{
		Code:     code,
		Message:  message,
		NextStep: "Please check your details and try again.",
	}
	if err != nil {
		detail.Details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: detail})
}

func (h *handlers) nextStep(status int, std *apperrors.StandardError) string {
	switch {
	case status == http.StatusForbidden:
		return "Enter the verification code from your loan officer to unlock your receipt."
	case status == http.StatusNotFound && std.Code == apperrors.ErrCodeSessionNotFound:
		return "Your session has expired. Please start your application again."
	case status < http.StatusInternalServerError:
		return "Please check your details and try again."
	case h.cfg.WhatsAppContact != "":
		return fmt.Sprintf("Please try again in a moment. If the problem continues, contact us on WhatsApp at %s.", h.cfg.WhatsAppContact)
	default:
		return "Please try again in a moment."
	}
}
