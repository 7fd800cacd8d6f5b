// internal/workers/loan/issue-verification-code/handler.go
package issueverificationcode

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "gfn-loan-service/internal/common/errors"
	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/common/metrics"
	"gfn-loan-service/internal/loan/application"
	"gfn-loan-service/internal/loan/errmap"
	"gfn-loan-service/internal/loan/verification"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "issue-verification-code"
)

// Dispatcher is implemented by verification.Dispatcher.
type Dispatcher interface {
	IssueAndSend(ctx context.Context, receiptNumber string) (verification.Dispatch, error)
}

type Handler struct {
	config       *Config
	dispatcher   Dispatcher
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, dispatcher Dispatcher, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		dispatcher:   dispatcher,
		logger:       l,
		errorHandler: apperrors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := metrics.TrackJob(TaskType)

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		done(string(apperrors.ErrCodeApplicationValidationFailed))
		h.errorHandler.HandleJobError(context.Background(), client, job,
			apperrors.NewApplicationValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		std := errmap.ToStandard(err)
		done(string(std.Code))
		h.errorHandler.HandleJobError(ctx, client, job, std)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err == nil {
		_, err = cmd.Send(ctx)
	}
	if err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		done("COMPLETE_FAILED")
		return
	}
	done("")
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if !application.ReceiptNumberPattern.MatchString(input.ReceiptNumber) {
		return nil, fmt.Errorf("%w: receiptNumber %q", application.ErrMissingField, input.ReceiptNumber)
	}

	d, err := h.dispatcher.IssueAndSend(ctx, input.ReceiptNumber)
	if err != nil {
		return nil, err
	}

	if !d.Delivered {
		h.logger.Warn("verification code issued but SMS not delivered", map[string]interface{}{
			"receiptNumber": input.ReceiptNumber,
		})
	}
	return &Output{
		VerificationCodeIssued: true,
		ExpiresAt:              d.Issued.ExpiresAt.UTC().Format(time.RFC3339),
		SMSDelivered:           d.Delivered,
	}, nil
}
