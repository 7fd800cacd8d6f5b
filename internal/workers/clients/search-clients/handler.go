// internal/workers/clients/search-clients/handler.go
package searchclients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gfn-loan-service/internal/clients"
	apperrors "gfn-loan-service/internal/common/errors"
	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/common/metrics"
	"gfn-loan-service/internal/loan/errmap"
	"gfn-loan-service/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "search-clients"
)

var ErrInvalidQuery = errors.New("INVALID_SEARCH_QUERY")

type Handler struct {
	config       *Config
	searcher     clients.Searcher
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, searcher clients.Searcher, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		searcher:     searcher,
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

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		done("COMPLETE_FAILED")
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
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
	input.Name = strings.TrimSpace(input.Name)
	if len([]rune(input.Name)) < 2 {
		return nil, fmt.Errorf("%w: name must have at least 2 characters", ErrInvalidQuery)
	}
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}
	if limit > h.config.MaxLimit {
		limit = h.config.MaxLimit
	}

	results, err := h.searcher.SearchByName(ctx, input.Name, limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []models.ClientSummary{}
	}

	h.logger.Info("client search completed", map[string]interface{}{
		"query":   input.Name,
		"results": len(results),
	})
	return &Output{
		Results:        results,
		TotalFound:     len(results),
		ExistingClient: len(results) > 0,
	}, nil
}
