package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gfn-loan-service/internal/loan/application"
	"gfn-loan-service/internal/loan/quote"
	"gfn-loan-service/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *handlers) createQuote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "INVALID_REQUEST", "Enter a loan amount and choose a term", err)
		return
	}
	term, err := quote.ParseTerm(req.Term)
	if err != nil {
		h.fail(c, err)
		return
	}
	q, err := h.deps.Policy.NewQuote(string(req.Amount), term)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuoteView(q, h.cfg.Currency))
}

func (h *handlers) startWizard(c *gin.Context) {
	s, err := h.deps.Wizard.Start(c.Request.Context(), c.Query("term"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionView(s, h.cfg.Currency))
}

func (h *handlers) getWizard(c *gin.Context) {
	s, err := h.deps.Wizard.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(s, h.cfg.Currency))
}

func (h *handlers) quoteWizard(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "INVALID_REQUEST", "Enter a loan amount and choose a term", err)
		return
	}
	s, err := h.deps.Wizard.Quote(c.Request.Context(), c.Param("id"), string(req.Amount), req.Term)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(s, h.cfg.Currency))
}

func (h *handlers) captureIdentity(c *gin.Context) {
	side := models.ImageSide(strings.ToUpper(c.Param("side")))
	if !side.Valid() {
		h.badRequest(c, "INVALID_REQUEST", "Side must be front or back", nil)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		h.badRequest(c, "INVALID_REQUEST", "Attach the ID card photo as the 'file' field", err)
		return
	}
	if fh.Size > h.cfg.MaxUploadBytes {
		h.badRequest(c, "INVALID_REQUEST", "The photo is too large", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.badRequest(c, "INVALID_REQUEST", "The photo could not be read", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		h.badRequest(c, "INVALID_REQUEST", "The photo could not be read", err)
		return
	}

	s, out, err := h.deps.Wizard.Capture(c.Request.Context(), c.Param("id"), side, data)
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusOK
	if !out.Accepted {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{
		"accepted": out.Accepted,
		"message":  out.Message,
		"session":  newSessionView(s, h.cfg.Currency),
	})
}

func (h *handlers) clearIdentity(c *gin.Context) {
	s, err := h.deps.Wizard.ClearCaptures(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionView(s, h.cfg.Currency))
}

func (h *handlers) submitWizard(c *gin.Context) {
	var req applicantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "APPLICATION_VALIDATION_FAILED", "Name, phone and a valid email are required", err)
		return
	}

	s, res, err := h.deps.Wizard.Submit(c.Request.Context(), c.Param("id"), models.Applicant{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	body := gin.H{
		"receiptNumber": res.Record.ReceiptNumber,
		"degraded":      res.Degraded,
		"session":       newSessionView(s, h.cfg.Currency),
	}
	if res.Degraded {
		body["notice"] = h.degradedNotice()
	}
	c.JSON(http.StatusCreated, body)
}

func (h *handlers) degradedNotice() string {
	msg := "Your application was received, but we could not alert our team automatically."
	if h.cfg.WhatsAppContact != "" {
		return fmt.Sprintf("%s If you do not hear from us soon, contact us on WhatsApp at %s.", msg, h.cfg.WhatsAppContact)
	}
	return msg
}

func (h *handlers) verifyWizard(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "INVALID_REQUEST", "Enter the verification code", err)
		return
	}

	s, ok, err := h.deps.Wizard.Verify(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		h.fail(c, err)
		return
	}
	body := gin.H{
		"verified": ok,
		"session":  newSessionView(s, h.cfg.Currency),
	}
	if !ok {
		body["message"] = "Invalid Code"
	}
	c.JSON(http.StatusOK, body)
}

func (h *handlers) downloadReceipt(c *gin.Context) {
	doc, err := h.deps.Wizard.Receipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", doc.Data)
}

func (h *handlers) searchClients(c *gin.Context) {
	var q clientSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, "INVALID_REQUEST", "Enter at least two letters of the client's name", err)
		return
	}
	limit := q.Limit
	if limit == 0 {
		limit = h.cfg.SearchLimit
	}

	results, err := h.deps.Clients.SearchByName(c.Request.Context(), q.Name, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

func (h *handlers) issueVerificationCode(c *gin.Context) {
	receiptNumber := c.Param("receipt")
	if !application.ReceiptNumberPattern.MatchString(receiptNumber) {
		h.badRequest(c, "INVALID_REQUEST", "Receipt numbers look like GFN-1700000000000", nil)
		return
	}
	if h.deps.Codes == nil {
		c.JSON(http.StatusConflict, errorBody{Error: errorDetail{
			Code:     "VERIFICATION_MODE_ALLOWLIST",
			Message:  "Codes are not issued per application in the current verification mode",
			NextStep: "Give the applicant one of the standard verification codes.",
		}})
		return
	}

	out, err := h.deps.Codes.IssueAndSend(c.Request.Context(), receiptNumber)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"receiptNumber": receiptNumber,
		"code":          out.Issued.Code,
		"expiresAt":     out.Issued.ExpiresAt,
		"smsDelivered":  out.Delivered,
	})
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.cfg.ServiceName})
}

func (h *handlers) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.deps.Checks))
	for _, chk := range h.deps.Checks {
		if err := chk.Check(ctx); err != nil {
			checks[chk.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[chk.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
