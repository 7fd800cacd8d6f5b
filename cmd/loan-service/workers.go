// cmd/loan-service/workers.go
package main

import (
	"time"

	"gfn-loan-service/internal/clients"
	"gfn-loan-service/internal/common/camunda"
	"gfn-loan-service/internal/common/config"
	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/loan/application"
	"gfn-loan-service/internal/loan/quote"
	"gfn-loan-service/internal/loan/verification"

	sc "gfn-loan-service/internal/workers/clients/search-clients"
	clr "gfn-loan-service/internal/workers/loan/create-loan-record"
	ivc "gfn-loan-service/internal/workers/loan/issue-verification-code"
	sln "gfn-loan-service/internal/workers/loan/send-loan-notification"
	vla "gfn-loan-service/internal/workers/loan/validate-loan-application"
)

type workerDeps struct {
	policy     quote.Policy
	submitter  *application.Submitter
	searcher   clients.Searcher
	dispatcher *verification.Dispatcher
}

// startWorkers opens a job worker for every enabled task type.
func startWorkers(cfg *config.Config, zeebe *camunda.Client, deps workerDeps, log logger.Logger) []*camunda.Worker {
	var workers []*camunda.Worker
	start := func(taskType string, maxJobs int, timeout time.Duration, handler camunda.JobHandler) {
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), taskType, maxJobs, timeout, handler, log))
	}

	// --- Loan application workers ---
	if c := vla.LoadConfig(cfg); c.Enabled {
		start(vla.TaskType, c.MaxJobsActive, c.Timeout, vla.NewHandler(c, deps.policy, log))
	}

	if c := clr.LoadConfig(cfg); c.Enabled {
		start(clr.TaskType, c.MaxJobsActive, c.Timeout, clr.NewHandler(c, deps.policy, deps.submitter, log))
	}

	if c := sln.LoadConfig(cfg); c.Enabled {
		start(sln.TaskType, c.MaxJobsActive, c.Timeout, sln.NewHandler(c, deps.submitter, log))
	}

	// Issued mode only; the dispatcher is nil under the allowlist.
	if c := ivc.LoadConfig(cfg); c.Enabled && deps.dispatcher != nil {
		start(ivc.TaskType, c.MaxJobsActive, c.Timeout, ivc.NewHandler(c, deps.dispatcher, log))
	}

	// --- Client workers ---
	if c := sc.LoadConfig(cfg); c.Enabled {
		start(sc.TaskType, c.MaxJobsActive, c.Timeout, sc.NewHandler(c, deps.searcher, log))
	}

	return workers
}
