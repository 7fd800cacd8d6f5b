// Package errmap turns domain sentinel errors into coded StandardErrors for the HTTP
// API and the job workers.
package errmap

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	apperrors "gfn-loan-service/internal/common/errors"
	"gfn-loan-service/internal/clients"
	"gfn-loan-service/internal/loan/application"
	"gfn-loan-service/internal/loan/identity"
	"gfn-loan-service/internal/loan/quote"
	"gfn-loan-service/internal/loan/receipt"
	"gfn-loan-service/internal/loan/verification"
	"gfn-loan-service/internal/loan/wizard"
	"gfn-loan-service/internal/storage"
)

// ToStandard classifies err. Already coded errors pass through unchanged.
func ToStandard(err error) *apperrors.StandardError {
	if err == nil {
		return nil
	}
	if std, ok := apperrors.AsStandardError(err); ok {
		return std
	}

	switch {
	case errors.Is(err, quote.ErrAmountOutOfRange),
		errors.Is(err, quote.ErrAmountNotNumeric):
		return apperrors.NewAmountOutOfRangeError(err.Error())
	case errors.Is(err, quote.ErrUnknownTerm),
		errors.Is(err, application.ErrMissingField),
		errors.Is(err, application.ErrMissingImage),
		errors.Is(err, application.ErrMissingNIN),
		errors.Is(err, application.ErrInvalidQuote):
		return apperrors.NewApplicationValidationFailedError(err.Error())
	case errors.Is(err, identity.ErrImageRejected):
		return apperrors.NewImageValidationFailedError(err.Error())

	case errors.Is(err, application.ErrDuplicateReceipt),
		errors.Is(err, application.ErrReceiptNumber):
		return apperrors.NewDuplicateReceiptNumberError(err.Error())
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return apperrors.NewDatabaseConnectionFailedError(err)
	case errors.Is(err, application.ErrDatabaseInsertFailed):
		return apperrors.NewDatabaseInsertFailedError(err)
	case errors.Is(err, application.ErrNotificationSendFailed):
		return apperrors.NewNotificationSendFailedError("aws", err)
	case errors.Is(err, receipt.ErrRenderFailed):
		return apperrors.NewReceiptRenderFailedError(err)
	case errors.Is(err, storage.ErrStorageUploadFailed):
		return apperrors.NewStorageUploadFailedError("", err)

	case errors.Is(err, application.ErrSearchFailed):
		return apperrors.NewSearchQueryFailedError("postgres", err)
	case errors.Is(err, clients.ErrSearchQueryFailed):
		return apperrors.NewSearchQueryFailedError("elasticsearch", err)
	case errors.Is(err, clients.ErrSearchTimeout):
		return apperrors.NewSearchTimeoutError("elasticsearch")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("search", err)

	case errors.Is(err, verification.ErrCodeInvalid):
		return apperrors.NewVerificationCodeInvalidError()
	case errors.Is(err, verification.ErrCodeExpired):
		return apperrors.NewVerificationCodeExpiredError("")
	case errors.Is(err, application.ErrApplicationNotFound):
		return apperrors.NewApplicationNotFoundError(err.Error())
	case errors.Is(err, wizard.ErrSessionNotFound):
		return apperrors.NewSessionNotFoundError(err.Error())
	case errors.Is(err, wizard.ErrInvalidTransition),
		errors.Is(err, wizard.ErrConcurrentUpdate),
		errors.Is(err, wizard.ErrNotUnlocked):
		std := apperrors.NewInvalidWizardTransitionError("", "")
		std.Details = err.Error()
		return std
	}
	return apperrors.Normalize(err)
}
