package analysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"message-triage/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single classifier call
const DefaultTimeout = 30 * time.Second

// ErrMissingCredentials is reported when no classifier could be configured
var ErrMissingCredentials = errors.New("classifier credentials not configured")

// Classifier is the external collaborator that turns a message into raw JSON text
type Classifier interface {
	Classify(ctx context.Context, message string) (string, error)
}

// Recorder observes analysis outcomes
type Recorder interface {
	ObserveAnalysis(kind Kind, label models.Label, elapsed time.Duration)
}

// Config for the analysis client
type Config struct {
	Timeout time.Duration
}

// Client validates input, calls the classifier once, and decodes the verdict
type Client struct {
	classifier Classifier
	timeout    time.Duration
	recorder   Recorder
	logger     *zap.Logger
}

// NewClient creates an analysis client. A nil classifier is allowed and
// makes every call fail with a transport error about missing credentials.
func NewClient(classifier Classifier, cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		classifier: classifier,
		timeout:    cfg.Timeout,
		logger:     logger,
	}
}

// WithRecorder attaches an outcome recorder
func (c *Client) WithRecorder(r Recorder) *Client {
	c.recorder = r
	return c
}

// Analyze classifies one message. Every failure is an *Error.
func (c *Client) Analyze(ctx context.Context, message string) (*models.AnalysisResult, error) {
	if strings.TrimSpace(message) == "" {
		c.observe(KindInputRejected, "", 0)
		return nil, newError(KindInputRejected, nil)
	}

	requestID := uuid.NewString()
	logger := c.logger.With(zap.String("request_id", requestID))
	started := time.Now()

	result, err := c.analyze(ctx, message)
	elapsed := time.Since(started)

	if err != nil {
		kind := KindOf(err)
		logger.Warn("Analysis failed",
			zap.Stringer("kind", kind),
			zap.Int("message_length", len(message)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		c.observe(kind, "", elapsed)
		return nil, err
	}

	logger.Info("Message analyzed",
		zap.String("label", string(result.Label)),
		zap.Int("score", result.Score),
		zap.String("language", result.Language),
		zap.Int("message_length", len(message)),
		zap.Duration("elapsed", elapsed))
	c.observe("", result.Label, elapsed)

	return result, nil
}

func (c *Client) analyze(ctx context.Context, message string) (*models.AnalysisResult, error) {
	if c.classifier == nil {
		return nil, newError(KindTransport, ErrMissingCredentials)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.classifier.Classify(callCtx, message)
	if err != nil {
		return nil, newError(KindTransport, err)
	}

	result, err := Decode(raw)
	if err != nil {
		c.logger.Debug("Rejected classifier response", zap.String("raw", raw))
		return nil, newError(KindSchemaViolation, err)
	}

	return result, nil
}

func (c *Client) observe(kind Kind, label models.Label, elapsed time.Duration) {
	if c.recorder != nil {
		c.recorder.ObserveAnalysis(kind, label, elapsed)
	}
}
