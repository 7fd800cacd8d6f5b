package application

import (
	"context"
	"fmt"
	"path"

	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/loan/receipt"
	"gfn-loan-service/internal/models"
)

// ObjectStore writes immutable objects.
type ObjectStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
}

// ClientIndexer makes a stored application searchable by client name.
type ClientIndexer interface {
	Index(ctx context.Context, summary models.ClientSummary) error
}

// ProcessStarter starts a workflow instance, e.g. camunda.Client.
type ProcessStarter interface {
	StartProcess(ctx context.Context, processID string, variables map[string]interface{}) (int64, error)
}

// ArchiveHook keeps a copy of the internal receipt in object storage.
type ArchiveHook struct {
	store  ObjectStore
	prefix string
}

func NewArchiveHook(store ObjectStore, prefix string) *ArchiveHook {
	return &ArchiveHook{store: store, prefix: prefix}
}

func (h *ArchiveHook) Name() string { return "archive" }

func (h *ArchiveHook) AfterCommit(ctx context.Context, s Submitted) error {
	if len(s.InternalReceipt) == 0 {
		return fmt.Errorf("no internal receipt to archive for %s", s.Record.ReceiptNumber)
	}
	name := path.Join(h.prefix, s.Record.CreatedAt.Format("2006/01/02"), receipt.FileName(s.Record.ReceiptNumber))
	return h.store.Put(ctx, name, "application/pdf", s.InternalReceipt)
}

// IndexHook feeds the client search index.
type IndexHook struct {
	indexer ClientIndexer
}

func NewIndexHook(indexer ClientIndexer) *IndexHook {
	return &IndexHook{indexer: indexer}
}

func (h *IndexHook) Name() string { return "search-index" }

func (h *IndexHook) AfterCommit(ctx context.Context, s Submitted) error {
	return h.indexer.Index(ctx, s.Record.Summary())
}

// ProcessID is the BPMN process started for every stored application.
const ProcessID = "loan-application-process"

// WorkflowHook hands the stored application to the process engine for back-office review.
// Phone-in applications are created from inside the process and are skipped.
type WorkflowHook struct {
	starter ProcessStarter
	logger  logger.Logger
}

func NewWorkflowHook(starter ProcessStarter, log logger.Logger) *WorkflowHook {
	return &WorkflowHook{starter: starter, logger: log}
}

func (h *WorkflowHook) Name() string { return "workflow" }

func (h *WorkflowHook) AfterCommit(ctx context.Context, s Submitted) error {
	if s.Origin == OriginPhoneIn {
		return nil
	}
	wire := s.Record.Wire()
	key, err := h.starter.StartProcess(ctx, ProcessID, map[string]interface{}{
		"applicationId": s.Record.ID,
		"receiptNumber": wire.ReceiptNumber,
		"name":          wire.Name,
		"phone":         wire.Phone,
		"email":         wire.Email,
		"amount":        wire.Amount,
		"term":          wire.Term,
		"interest":      wire.Interest,
		"totalAmount":   wire.TotalAmount,
	})
	if err != nil {
		return err
	}
	h.logger.Info("review process started", map[string]interface{}{
		"receiptNumber":      wire.ReceiptNumber,
		"processInstanceKey": key,
	})
	return nil
}
