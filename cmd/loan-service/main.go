// cmd/loan-service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gfn-loan-service/internal/api"
	"gfn-loan-service/internal/clients"
	"gfn-loan-service/internal/common/aws"
	"gfn-loan-service/internal/common/camunda"
	"gfn-loan-service/internal/common/config"
	"gfn-loan-service/internal/common/database"
	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/common/observability"
	"gfn-loan-service/internal/loan/application"
	"gfn-loan-service/internal/loan/identity"
	"gfn-loan-service/internal/loan/quote"
	"gfn-loan-service/internal/loan/receipt"
	"gfn-loan-service/internal/loan/verification"
	"gfn-loan-service/internal/loan/wizard"
	"gfn-loan-service/internal/storage"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting loan service...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name, log)
	ctx := context.Background()

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Migrate(ctx, application.Schema...); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	checks := []api.HealthCheck{
		{Name: "postgres", Check: pg.Ping},
		{Name: "redis", Check: rdb.Ping},
	}

	repo := application.NewPostgresRepository(pg.DB, log)
	var searcher clients.Searcher = repo
	var hooks []application.PostCommitHook

	// --- Elasticsearch (optional search backend) ---
	if cfg.Search.Backend == config.SearchBackendElasticsearch {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		if err := es.EnsureIndex(ctx, cfg.Search.Index, clients.IndexMapping); err != nil {
			zapLog.Fatal("elasticsearch index setup failed", zap.Error(err))
		}
		index := clients.NewElasticsearchIndex(es.Client, cfg.Search.Index, log)
		searcher = index
		hooks = append(hooks, application.NewIndexHook(index))
		checks = append(checks, api.HealthCheck{Name: "elasticsearch", Check: es.Ping})
		zapLog.Info("Elasticsearch connected successfully", zap.String("index", cfg.Search.Index))
	}

	// --- Notifications (SES + SNS) ---
	var sesSvc application.SESService
	var snsSvc application.SNSService
	if cfg.Notifications.Email.Enabled {
		c, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		sesSvc = c
	}
	if cfg.Notifications.SMS.Enabled {
		c, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		snsSvc = c
	}
	notifier := application.NewAWSNotifier(application.NotifierConfig{
		EmailEnabled:    cfg.Notifications.Email.Enabled,
		SMSEnabled:      cfg.Notifications.SMS.Enabled,
		FromEmail:       cfg.Notifications.Email.FromEmail,
		BackOfficeEmail: cfg.Notifications.Email.BackOffice,
		SMSSenderID:     cfg.Notifications.SMS.SenderID,
	}, sesSvc, snsSvc, log)

	// --- Receipt archive (GCS) ---
	if cfg.Storage.GCS.Enabled {
		store, err := storage.NewGCSStore(ctx, cfg.Storage.GCS.Bucket, log)
		if err != nil {
			zapLog.Fatal("gcs store failed", zap.Error(err))
		}
		defer store.Close()
		hooks = append(hooks, application.NewArchiveHook(store, cfg.Storage.GCS.Prefix))
	}

	// --- Zeebe ---
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      10 * time.Second,
				RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		hooks = append(hooks, application.NewWorkflowHook(zeebe, log))
		checks = append(checks, api.HealthCheck{Name: "zeebe", Check: zeebe.HealthCheck})
		zapLog.Info("Zeebe client connected successfully")
	}

	policy, err := quote.NewPolicy(cfg.Loan.MinAmount, cfg.Loan.MaxAmount, cfg.Loan.ShortRate, cfg.Loan.MediumRate)
	if err != nil {
		zapLog.Fatal("invalid loan policy", zap.Error(err))
	}

	submitter := application.NewSubmitter(application.SubmitterOptions{
		Repository: repo,
		Notifier:   notifier,
		Renderer:   receipt.NewRenderer(receipt.DefaultBranding()),
		Numbers:    application.NewReceiptNumbers(),
		Hooks:      hooks,
		Currency:   cfg.Loan.Currency,
		Logger:     log,
	})

	// --- Verification gate ---
	var gate verification.Gate
	var dispatcher *verification.Dispatcher
	var codes api.CodeDispatcher
	switch cfg.Verification.Mode {
	case config.VerificationModeIssued:
		issued := verification.NewIssuedCodeGate(rdb.Client, cfg.Verification.TTL(), log)
		dispatcher = verification.NewDispatcher(issued, repo, notifier, log)
		gate = issued
		codes = dispatcher
	default:
		gate = verification.NewAllowlistGate()
	}
	zapLog.Info("verification gate ready", zap.String("mode", gate.Mode()))

	capture := identity.NewOrchestrator(identity.NewProcessor(identity.ProcessorConfig{
		MaxBytes:    cfg.Identity.MaxBytes,
		MinWidth:    cfg.Identity.MinWidth,
		MinHeight:   cfg.Identity.MinHeight,
		MaxEdge:     cfg.Identity.MaxEdge,
		JPEGQuality: cfg.Identity.JPEGQuality,
	}), log)

	wizardSvc := wizard.NewService(wizard.Options{
		Store:     wizard.NewRedisStore(rdb.Client, cfg.Wizard.TTL()),
		Policy:    policy,
		Capture:   capture,
		Submitter: submitter,
		Records:   repo,
		Gate:      gate,
		Stages:    obs,
		Logger:    log,
	})

	// --- Workers ---
	var workers []*camunda.Worker
	if zeebe != nil {
		workers = startWorkers(cfg, zeebe, workerDeps{
			policy:     policy,
			submitter:  submitter,
			searcher:   searcher,
			dispatcher: dispatcher,
		}, log)
	}

	// --- HTTP ---
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Config{
		ServiceName:     cfg.App.Name,
		Currency:        cfg.Loan.Currency,
		WhatsAppContact: cfg.Notifications.WhatsAppContact,
		MaxUploadBytes:  cfg.HTTP.MaxUploadBytes,
		SearchLimit:     cfg.Search.Limit,
	}, api.Dependencies{
		Wizard:  wizardSvc,
		Policy:  policy,
		Clients: searcher,
		Codes:   codes,
		Checks:  checks,
		Logger:  log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	zapLog.Info("Loan service started", zap.Int("workers", len(workers)))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	zapLog.Info("Shutting down loan service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.HTTP.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("observability shutdown failed", zap.Error(err))
	}

	zapLog.Info("Loan service stopped")
}
