// Package session holds the single-user triage state: the message being
// edited, the latest verdict, in-flight flags, the last error and the
// feedback ledger.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"message-triage/internal/analysis"
	"message-triage/internal/dictation"
	"message-triage/internal/ledger"
	"message-triage/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TimestampLayout is the capture-time format of ledger entries
const TimestampLayout = "2006-01-02 15:04:05"

var (
	ErrAnalysisInProgress = errors.New("an analysis is already in progress")
	ErrNoResult           = errors.New("no analysis result to give feedback on")
	ErrInvalidLabel       = errors.New("label must be one of Safe, Suspicious, Phishing")

	// ErrSuperseded is returned by Submit when a newer action made its
	// outcome stale; session state was not touched.
	ErrSuperseded  = errors.New("analysis superseded by a newer action")
	ErrNoDictation = errors.New("dictation is not configured")
)

// Analyzer produces one validated verdict per call
type Analyzer interface {
	Analyze(ctx context.Context, message string) (*models.AnalysisResult, error)
}

// Store is the append-only feedback ledger
type Store interface {
	Append(ctx context.Context, e models.FeedbackEntry) error
	List(ctx context.Context) ([]models.FeedbackEntry, error)
}

// Dictation is the subset of the dictation adapter the session drives
type Dictation interface {
	SetSink(sink dictation.Sink)
	StartDictation(ctx context.Context) error
	StopDictation()
	Finish()
	Generation() uint64
}

// FeedbackRecorder observes recorded corrections
type FeedbackRecorder interface {
	ObserveFeedback(predicted, user models.Label)
}

// Snapshot is a copy of the session state safe to hand out
type Snapshot struct {
	CurrentInput  string                 `json:"currentInput"`
	CurrentResult *models.AnalysisResult `json:"currentResult"`
	RiskBand      models.RiskBand        `json:"riskBand,omitempty"`
	AnalyzedText  string                 `json:"analyzedText,omitempty"`
	IsAnalyzing   bool                   `json:"isAnalyzing"`
	IsRecording   bool                   `json:"isRecording"`
	LastError     string                 `json:"lastError,omitempty"`
	LastErrorKind string                 `json:"lastErrorKind,omitempty"`
	LedgerSize    int                    `json:"ledgerSize"`
}

// Option configures a Session
type Option func(*Session)

// WithClock overrides the clock used for ledger timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithDictation attaches a dictation adapter; the session becomes its sink
func WithDictation(d Dictation) Option {
	return func(s *Session) { s.dictation = d }
}

// WithAnalysisRecorder observes submissions rejected before analysis
func WithAnalysisRecorder(r analysis.Recorder) Option {
	return func(s *Session) { s.analysisRecorder = r }
}

// WithFeedbackRecorder attaches a feedback observer
func WithFeedbackRecorder(r FeedbackRecorder) Option {
	return func(s *Session) { s.recorder = r }
}

// Session is safe for concurrent use. Analyses run outside the lock and are
// applied only if their sequence number is still the latest issued.
type Session struct {
	mu sync.Mutex

	analyzer         Analyzer
	store            Store
	dictation        Dictation
	recorder         FeedbackRecorder
	analysisRecorder analysis.Recorder
	logger           *zap.Logger
	now              func() time.Time

	input        string
	result       *models.AnalysisResult
	analyzedText string
	isAnalyzing  bool
	isRecording  bool
	dictGen      uint64
	lastErr      error
	ledgerSize   int

	seq uint64
}

// New creates an empty session
func New(analyzer Analyzer, store Store, logger *zap.Logger, opts ...Option) *Session {
	s := &Session{
		analyzer: analyzer,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dictation != nil {
		s.dictation.SetSink(s)
	}
	return s
}

// SetInput replaces the message being edited
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// ApplyTranscript appends dictated text to the current input
func (s *Session) ApplyTranscript(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyTranscript(text)
}

func (s *Session) applyTranscript(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if strings.TrimSpace(s.input) == "" {
		s.input = text
		return
	}
	s.input = strings.TrimRight(s.input, " ") + " " + text
}

// ClearInput discards the input and the verdict. Any analysis still in
// flight becomes stale.
func (s *Session) ClearInput() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.input = ""
	s.result = nil
	s.analyzedText = ""
	s.lastErr = nil
	s.isAnalyzing = false
	s.seq++
}

// Submit analyses text and applies the outcome. Exactly one of the result
// or the last error is set when the outcome is current.
func (s *Session) Submit(ctx context.Context, text string) (*models.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		if s.analysisRecorder != nil {
			s.analysisRecorder.ObserveAnalysis(analysis.KindInputRejected, "", 0)
		}
		return nil, analysis.ErrInputRejected
	}

	s.mu.Lock()
	if s.isAnalyzing {
		s.mu.Unlock()
		return nil, ErrAnalysisInProgress
	}
	s.isAnalyzing = true
	s.lastErr = nil
	s.input = text
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.logger.Debug("Submitting message", zap.Uint64("seq", seq), zap.Int("message_length", len(text)))

	result, err := s.analyzer.Analyze(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		s.logger.Info("Discarding stale analysis",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", s.seq))
		return nil, ErrSuperseded
	}

	s.isAnalyzing = false
	if err != nil {
		s.lastErr = err
		return nil, err
	}

	s.result = result.Clone()
	s.analyzedText = text
	return result.Clone(), nil
}

// RecordFeedback prepends a correction built from a copy of the current
// verdict and the text it was produced for.
func (s *Session) RecordFeedback(ctx context.Context, userLabel models.Label) (models.FeedbackEntry, error) {
	if !userLabel.Valid() {
		return models.FeedbackEntry{}, ErrInvalidLabel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result == nil {
		return models.FeedbackEntry{}, ErrNoResult
	}

	entry := models.FeedbackEntry{
		ID:             uuid.New().String(),
		Timestamp:      s.now().Format(TimestampLayout),
		Message:        s.analyzedText,
		PredictedLabel: s.result.Label,
		UserLabel:      userLabel,
		Language:       s.result.Language,
		Score:          s.result.Score,
	}

	if err := s.store.Append(ctx, entry); err != nil {
		return models.FeedbackEntry{}, fmt.Errorf("failed to record feedback: %w", err)
	}
	s.ledgerSize++

	if s.recorder != nil {
		s.recorder.ObserveFeedback(entry.PredictedLabel, entry.UserLabel)
	}

	s.logger.Info("Feedback recorded",
		zap.String("id", entry.ID),
		zap.String("predicted", string(entry.PredictedLabel)),
		zap.String("user", string(entry.UserLabel)))

	return entry, nil
}

// Ledger returns entries most-recent-first
func (s *Session) Ledger(ctx context.Context) ([]models.FeedbackEntry, error) {
	return s.store.List(ctx)
}

// ExportLedger serializes the ledger as a CSV artifact
func (s *Session) ExportLedger(ctx context.Context) (ledger.Artifact, error) {
	entries, err := s.store.List(ctx)
	if err != nil {
		return ledger.Artifact{}, err
	}
	return ledger.Export(entries, s.now())
}

// StartDictation begins a recording
func (s *Session) StartDictation(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dictation == nil {
		s.lastErr = dictation.ErrCapabilityUnavailable
		return fmt.Errorf("%w: %w", dictation.ErrCapabilityUnavailable, ErrNoDictation)
	}

	if err := s.dictation.StartDictation(ctx); err != nil {
		if errors.Is(err, dictation.ErrCapabilityUnavailable) {
			s.lastErr = err
		}
		return err
	}
	s.isRecording = true
	s.dictGen = s.dictation.Generation()
	s.lastErr = nil
	return nil
}

// StopDictation cancels the recording. A transcript still in flight for it
// is dropped when it arrives.
func (s *Session) StopDictation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dictation == nil {
		return
	}
	s.dictation.StopDictation()
	s.isRecording = false
	s.dictGen = 0
}

// FinishDictation ends the recording and transcribes it. The transcript
// arrives later through OnTranscript.
func (s *Session) FinishDictation() error {
	if s.dictation == nil {
		return ErrNoDictation
	}
	s.dictation.Finish()
	return nil
}

// OnTranscript implements dictation.Sink
func (s *Session) OnTranscript(generation uint64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentRecording(generation) {
		return
	}
	s.isRecording = false
	s.dictGen = 0
	s.applyTranscript(text)
}

// OnFailure implements dictation.Sink
func (s *Session) OnFailure(generation uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentRecording(generation) {
		return
	}
	s.isRecording = false
	s.dictGen = 0
	s.lastErr = err
	s.logger.Warn("Dictation failed", zap.Error(err))
}

func (s *Session) currentRecording(generation uint64) bool {
	if s.isRecording && generation == s.dictGen {
		return true
	}
	s.logger.Debug("Dropping event of a stopped dictation", zap.Uint64("generation", generation))
	return false
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		CurrentInput: s.input,
		AnalyzedText: s.analyzedText,
		IsAnalyzing:  s.isAnalyzing,
		IsRecording:  s.isRecording,
		LedgerSize:   s.ledgerSize,
	}
	if s.result != nil {
		snap.CurrentResult = s.result.Clone()
		snap.RiskBand = s.result.RiskBand()
	}
	if s.lastErr != nil {
		snap.LastError = UserMessage(s.lastErr)
		snap.LastErrorKind = errorKind(s.lastErr)
	}
	return snap
}

// UserMessage is the text shown for err. Transport causes are shown as is,
// schema violation details stay in logs.
func UserMessage(err error) string {
	var ae *analysis.Error
	if errors.As(err, &ae) {
		if ae.Kind == analysis.KindSchemaViolation {
			return (&analysis.Error{Kind: ae.Kind}).Error()
		}
		return ae.Error()
	}
	return err.Error()
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, dictation.ErrCapabilityUnavailable):
		return "capability_unavailable"
	case errors.Is(err, dictation.ErrDictationFailed):
		return "dictation_failed"
	}
	if kind := analysis.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}
