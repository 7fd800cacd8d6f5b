// internal/workers/loan/create-loan-record/handler.go
package createloanrecord

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
	"gfn-loan-service/internal/loan/quote"
	"gfn-loan-service/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "create-loan-record"
)

// Recorder is implemented by application.Submitter.
type Recorder interface {
	RecordPhoneIn(ctx context.Context, applicant models.Applicant, quote models.LoanQuote) (*application.SubmitResult, error)
}

type Handler struct {
	config       *Config
	policy       quote.Policy
	recorder     Recorder
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, policy quote.Policy, recorder Recorder, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		policy:       policy,
		recorder:     recorder,
		logger:       l,
		errorHandler: apperrors.NewErrorHandler(l),
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
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	term, err := quote.ParseTerm(input.Term)
	if err != nil {
		return nil, err
	}
	q, err := h.policy.NewQuote(amountString(input.Amount), term)
	if err != nil {
		return nil, err
	}

	res, err := h.recorder.RecordPhoneIn(ctx, models.Applicant{
		Name:  input.Name,
		Phone: input.Phone,
		Email: input.Email,
		NIN:   input.NIN,
	}, q)
	if err != nil {
		return nil, err
	}

	rec := res.Record
	h.logger.Info("phone-in application recorded", map[string]interface{}{
		"receiptNumber": rec.ReceiptNumber,
		"applicationId": rec.ID,
		"term":          string(rec.Quote.Term),
		"degraded":      res.Degraded,
	})

	return &Output{
		ApplicationID:  rec.ID,
		ReceiptNumber:  rec.ReceiptNumber,
		Term:           string(rec.Quote.Term),
		Interest:       rec.Quote.InterestPercent(),
		TotalAmount:    rec.Quote.TotalRepayment.String(),
		CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
		NotifyDegraded: res.Degraded,
	}, nil
}

// amountString accepts the JSON number or string a process variable may hold.
func amountString(v interface{}) string {
	switch a := v.(type) {
	case nil:
		return ""
	case string:
		return a
	case float64:
		return fmt.Sprintf("%.2f", a)
	default:
		return fmt.Sprint(a)
	}
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
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":        job.Key,
		"receiptNumber": output.ReceiptNumber,
	})
	return nil
}
