package handler

import (
	"errors"
	"net/http"

	"message-triage/internal/analysis"
	"message-triage/internal/dictation"
	"message-triage/internal/ledger"
	"message-triage/internal/models"
	"message-triage/internal/service"
	"message-triage/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles HTTP requests
type Handler struct {
	session  *session.Session
	reporter *service.Reporter
	logger   *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(sess *session.Session, reporter *service.Reporter, logger *zap.Logger) *Handler {
	return &Handler{
		session:  sess,
		reporter: reporter,
		logger:   logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		// Session state
		api.GET("/session", h.GetSession)
		api.PUT("/session/input", h.SetInput)
		api.DELETE("/session/input", h.ClearInput)

		// Analysis
		api.POST("/analyze", h.Analyze)

		// Dictation
		api.POST("/dictation/start", h.StartDictation)
		api.POST("/dictation/stop", h.StopDictation)
		api.POST("/dictation/finish", h.FinishDictation)

		// Feedback ledger
		api.POST("/feedback", h.RecordFeedback)
		api.GET("/feedback", h.GetFeedback)
		api.GET("/feedback/stats", h.GetStats)
		api.GET("/feedback/export.csv", h.ExportCSV)

		api.GET("/providers", h.GetProviders)
	}

	// Health check
	r.GET("/health", h.HealthCheck)
}

// GetSession returns the current session state
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// SetInput replaces the message being edited
func (h *Handler) SetInput(c *gin.Context) {
	var req models.InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.session.SetInput(req.Text)
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// ClearInput discards the input and the current verdict
func (h *Handler) ClearInput(c *gin.Context) {
	h.session.ClearInput()
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// Analyze submits the given text, or the current input when none is given
func (h *Handler) Analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	text := req.Text
	if text == "" {
		text = h.session.Snapshot().CurrentInput
	}

	result, err := h.session.Submit(c.Request.Context(), text)
	if err != nil {
		status, kind := analysisStatus(err)
		msg := err.Error()
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to analyze", zap.Stringer("kind", analysis.KindOf(err)), zap.Error(err))
			msg = session.UserMessage(err)
		}
		c.JSON(status, gin.H{"error": msg, "kind": kind})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":   result,
		"riskBand": result.RiskBand(),
	})
}

func analysisStatus(err error) (int, string) {
	switch {
	case errors.Is(err, analysis.ErrInputRejected):
		return http.StatusBadRequest, string(analysis.KindInputRejected)
	case errors.Is(err, session.ErrAnalysisInProgress):
		return http.StatusConflict, "in_progress"
	case errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict, "superseded"
	case errors.Is(err, analysis.ErrSchemaViolation):
		return http.StatusBadGateway, string(analysis.KindSchemaViolation)
	default:
		return http.StatusBadGateway, string(analysis.KindTransport)
	}
}

// StartDictation begins recording from the microphone
func (h *Handler) StartDictation(c *gin.Context) {
	err := h.session.StartDictation(c.Request.Context())
	switch {
	case errors.Is(err, dictation.ErrCapabilityUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "kind": "capability_unavailable"})
		return
	case errors.Is(err, dictation.ErrAlreadyRecording):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("Failed to start dictation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start dictation"})
		return
	}

	c.JSON(http.StatusOK, h.session.Snapshot())
}

// StopDictation cancels the recording without applying a transcript
func (h *Handler) StopDictation(c *gin.Context) {
	h.session.StopDictation()
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// FinishDictation ends the recording; the transcript is applied when ready
func (h *Handler) FinishDictation(c *gin.Context) {
	if err := h.session.FinishDictation(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "kind": "capability_unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "transcribing",
		"message": "Transcript will be appended to the input. Check /api/v1/session for the result",
	})
}

// RecordFeedback appends the user's corrective label to the ledger
func (h *Handler) RecordFeedback(c *gin.Context) {
	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.session.RecordFeedback(c.Request.Context(), req.Label)
	switch {
	case errors.Is(err, session.ErrInvalidLabel):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, session.ErrNoResult):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("Failed to record feedback", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record feedback"})
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// GetFeedback returns the ledger, most recent first
func (h *Handler) GetFeedback(c *gin.Context) {
	entries, err := h.session.Ledger(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get feedback", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get feedback"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   len(entries),
	})
}

// GetStats returns feedback statistics
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.reporter.GetStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportCSV downloads the ledger as CSV
func (h *Handler) ExportCSV(c *gin.Context) {
	artifact, err := h.session.ExportLedger(c.Request.Context())
	if errors.Is(err, ledger.ErrEmpty) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		h.logger.Error("Failed to export CSV", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+artifact.FileName)
	c.Data(http.StatusOK, ledger.ContentType, artifact.Data)
}

// GetProviders lists the configured classifier providers
func (h *Handler) GetProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active":    h.reporter.ActiveModel(),
		"providers": h.reporter.Providers(),
	})
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "message-triage",
		"version": "1.0.0",
	})
}
