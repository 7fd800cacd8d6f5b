// internal/workers/loan/validate-loan-application/handler.go
package validateloanapplication

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "gfn-loan-service/internal/common/errors"
	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/common/metrics"
	"gfn-loan-service/internal/common/validation"
	"gfn-loan-service/internal/loan/errmap"
	"gfn-loan-service/internal/loan/quote"
	"gfn-loan-service/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/shopspring/decimal"
)

const (
	TaskType = "validate-loan-application"
)

// Handler re-checks an application before back-office review. Invalid applications
// complete with valid=false so the process can route them; only broken input fails
// the job.
type Handler struct {
	config       *Config
	policy       quote.Policy
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, policy quote.Policy, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		policy:       policy,
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
	res, err := validation.ValidateDocument(inputSchema, input)
	if err != nil {
		return nil, err
	}

	out := &Output{}
	out.ValidationErrs = append(out.ValidationErrs, res.GetErrorMessages()...)

	if input.Email != "" && !validation.ValidateEmail(input.Email) {
		out.ValidationErrs = append(out.ValidationErrs, "email: address is not valid")
	}
	if input.Phone != "" && !validation.ValidatePhone(input.Phone) {
		out.ValidationErrs = append(out.ValidationErrs, "phone: number is not valid")
	}

	out.QuoteConsistent = h.checkQuote(input, out)
	out.Valid = len(out.ValidationErrs) == 0 && out.QuoteConsistent

	h.logger.Info("application validated", map[string]interface{}{
		"receiptNumber":   input.ReceiptNumber,
		"valid":           out.Valid,
		"quoteConsistent": out.QuoteConsistent,
		"errors":          len(out.ValidationErrs),
	})
	return out, nil
}

// checkQuote recomputes the quote under the current policy and compares it with the
// stored figures.
func (h *Handler) checkQuote(input *Input, out *Output) bool {
	q, err := h.policy.NewQuote(input.Amount, models.TermCode(strings.ToUpper(input.Term)))
	if err != nil {
		out.ValidationErrs = append(out.ValidationErrs, "quote: "+err.Error())
		return false
	}
	out.ExpectedTotal = q.TotalRepayment.String()

	consistent := true
	if q.InterestPercent() != input.Interest {
		out.ValidationErrs = append(out.ValidationErrs,
			fmt.Sprintf("interest: expected %d%%, got %d%%", q.InterestPercent(), input.Interest))
		consistent = false
	}
	total, err := decimal.NewFromString(input.TotalAmount)
	if err != nil || !total.Equal(q.TotalRepayment) {
		out.ValidationErrs = append(out.ValidationErrs,
			fmt.Sprintf("totalAmount: expected %s, got %q", q.TotalRepayment.String(), input.TotalAmount))
		consistent = false
	}
	return consistent
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
		"jobKey": job.Key,
	})
	return nil
}
