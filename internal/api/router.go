// Package api exposes the loan application wizard, client search and back-office
// endpoints over HTTP.
package api

import (
	"context"
	"net/http"

	"gfn-loan-service/internal/clients"
	"gfn-loan-service/internal/common/logger"
	"gfn-loan-service/internal/loan/application"
	"gfn-loan-service/internal/loan/identity"
	"gfn-loan-service/internal/loan/quote"
	"gfn-loan-service/internal/loan/receipt"
	"gfn-loan-service/internal/loan/verification"
	"gfn-loan-service/internal/loan/wizard"
	"gfn-loan-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// WizardService is implemented by wizard.Service.
type WizardService interface {
	Start(ctx context.Context, rawTerm string) (wizard.Session, error)
	Get(ctx context.Context, id string) (wizard.Session, error)
	Quote(ctx context.Context, id, rawAmount, rawTerm string) (wizard.Session, error)
	Capture(ctx context.Context, id string, side models.ImageSide, data []byte) (wizard.Session, identity.Outcome, error)
	ClearCaptures(ctx context.Context, id string) (wizard.Session, error)
	Submit(ctx context.Context, id string, applicant models.Applicant) (wizard.Session, *application.SubmitResult, error)
	Verify(ctx context.Context, id, code string) (wizard.Session, bool, error)
	Receipt(ctx context.Context, id string) (receipt.Document, error)
}

// CodeDispatcher is implemented by verification.Dispatcher. Nil in allowlist mode.
type CodeDispatcher interface {
	IssueAndSend(ctx context.Context, receiptNumber string) (verification.Dispatch, error)
}

// HealthCheck is one dependency probed by /ready.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Config struct {
	ServiceName     string
	Currency        string
	WhatsAppContact string
	MaxUploadBytes  int64
	SearchLimit     int
}

type Dependencies struct {
	Wizard  WizardService
	Policy  quote.Policy
	Clients clients.Searcher
	Codes   CodeDispatcher
	Checks  []HealthCheck
	Logger  logger.Logger
}

type handlers struct {
	cfg  Config
	deps Dependencies
	log  logger.Logger
}

func NewRouter(cfg Config, deps Dependencies) *gin.Engine {
	registerValidators()

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 12 << 20
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = clients.DefaultLimit
	}

	h := &handlers{
		cfg:  cfg,
		deps: deps,
		log:  deps.Logger.WithFields(map[string]interface{}{"component": "http"}),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(requestMetrics())
	r.Use(requestLogger(h.log))

	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.POST("/quotes", h.createQuote)

	wz := v1.Group("/wizard")
	wz.POST("", h.startWizard)
	wz.GET("/:id", h.getWizard)
	wz.POST("/:id/quote", h.quoteWizard)
	wz.POST("/:id/identity/:side", limitBody(cfg.MaxUploadBytes), h.captureIdentity)
	wz.DELETE("/:id/identity", h.clearIdentity)
	wz.POST("/:id/submit", h.submitWizard)
	wz.POST("/:id/verify", h.verifyWizard)
	wz.GET("/:id/receipt", h.downloadReceipt)

	v1.GET("/clients", h.searchClients)
	v1.POST("/admin/applications/:receipt/verification-code", h.issueVerificationCode)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Route not found"}})
	})
	return r
}
