// internal/workers/loan/send-loan-notification/handler.go
package sendloannotification

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

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-loan-notification"
)

// Resender is implemented by application.Submitter.
type Resender interface {
	Resend(ctx context.Context, receiptNumber string) (*application.SubmitResult, error)
}

type Handler struct {
	config       *Config
	resender     Resender
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	now          func() time.Time
}

func NewHandler(config *Config, resender Resender, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		resender:     resender,
		logger:       l,
		errorHandler: apperrors.NewErrorHandler(l),
		now:          time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := metrics.TrackJob(TaskType)

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job)
	if err != nil {
		done(string(apperrors.ErrCodeApplicationValidationFailed))
		h.errorHandler.HandleJobError(context.Background(), client, job, apperrors.NewApplicationValidationFailedError(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, input)
	if err != nil {
		std := errmap.ToStandard(err)
		done(string(std.Code))
		h.errorHandler.HandleJobError(ctx, client, job, std)
		return
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		done("COMPLETE_FAILED")
		return
	}
	done("")
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	if !application.ReceiptNumberPattern.MatchString(input.ReceiptNumber) {
		return nil, fmt.Errorf("receiptNumber %q is not a receipt number", input.ReceiptNumber)
	}
	return &input, nil
}

// Execute resends the back-office email and applicant SMS. A failed channel fails the
// job so the engine retries it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.resender.Resend(ctx, input.ReceiptNumber)
	if err != nil {
		return nil, err
	}

	h.logger.Info("notification resent", map[string]interface{}{
		"receiptNumber": input.ReceiptNumber,
		"channels":      len(res.Notification.Results),
	})
	return &Output{
		NotificationSent: true,
		Results:          res.Notification.Results,
		SentAt:           h.now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return err
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return err
	}
	return nil
}
