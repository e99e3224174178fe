package dictation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL    = "https://api.groq.com/openai/v1"
	DefaultModel      = "whisper-large-v3-turbo"
	DefaultSampleRate = 16000
)

var (
	ErrMissingAPIKey = errors.New("transcription API key is required")
	errNotRecording  = errors.New("no capture in progress")
)

// WhisperConfig for the OpenAI-compatible transcription recognizer
type WhisperConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	SampleRate int
	// Language is an optional ISO-639-1 hint
	Language string
	Timeout  time.Duration
}

// WhisperRecognizer records from the default microphone and transcribes
// the whole recording in one request when stopped.
type WhisperRecognizer struct {
	cfg        WhisperConfig
	httpClient *http.Client
	logger     *zap.Logger
	newCapture func(sampleRate uint32) (Capture, error)

	mu      sync.Mutex
	capture Capture
}

var _ Recognizer = (*WhisperRecognizer)(nil)

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewWhisperRecognizer creates a recognizer. A missing API key is reported
// by Available rather than here so the server still starts without one.
func NewWhisperRecognizer(cfg WhisperConfig, logger *zap.Logger) *WhisperRecognizer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &WhisperRecognizer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		newCapture: newMalgoCapture,
	}
}

// Available reports whether transcription can run
func (w *WhisperRecognizer) Available() error {
	if w.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}
	if w.newCapture == nil {
		return errors.New("no audio capture backend")
	}
	return nil
}

// Start opens the microphone and begins buffering audio
func (w *WhisperRecognizer) Start(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.capture != nil {
		return ErrAlreadyRecording
	}

	capture, err := w.newCapture(uint32(w.cfg.SampleRate))
	if err != nil {
		return err
	}
	if err := capture.Start(); err != nil {
		return err
	}
	w.capture = capture

	w.logger.Debug("Audio capture started", zap.Int("sample_rate", w.cfg.SampleRate))
	return nil
}

// StopAndTranscribe ends capture and returns the final transcript
func (w *WhisperRecognizer) StopAndTranscribe(ctx context.Context) (string, error) {
	pcm, err := w.stopCapture()
	if err != nil {
		return "", err
	}

	if len(pcm) == 0 {
		return "", ErrEmptyTranscript
	}

	audio, err := EncodeWAV(pcm, w.cfg.SampleRate)
	if err != nil {
		return "", err
	}

	return w.Transcribe(ctx, audio)
}

// Cancel drops the current capture without transcribing
func (w *WhisperRecognizer) Cancel(_ context.Context) error {
	_, err := w.stopCapture()
	if errors.Is(err, errNotRecording) {
		return nil
	}
	return err
}

func (w *WhisperRecognizer) stopCapture() ([]byte, error) {
	w.mu.Lock()
	capture := w.capture
	w.capture = nil
	w.mu.Unlock()

	if capture == nil {
		return nil, errNotRecording
	}

	pcm, err := capture.Stop()
	if err != nil {
		return nil, fmt.Errorf("failed to stop capture: %w", err)
	}
	return pcm, nil
}

// Transcribe uploads a WAV file and returns the recognized text
func (w *WhisperRecognizer) Transcribe(ctx context.Context, wavData []byte) (string, error) {
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)

	part, err := form.CreateFormFile("file", "dictation.wav")
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return "", fmt.Errorf("failed to write audio: %w", err)
	}
	fields := map[string]string{
		"model":           w.cfg.Model,
		"response_format": "json",
		"temperature":     "0",
	}
	if w.cfg.Language != "" {
		fields["language"] = w.cfg.Language
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("failed to close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.BaseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)

	start := time.Now()
	resp, err := w.httpClient.Do(req)
	if err != nil {
		w.logger.Error("Transcription API error", zap.Error(err))
		return "", fmt.Errorf("transcription API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		w.logger.Error("Transcription API error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)))
		return "", fmt.Errorf("transcription API returned status %d", resp.StatusCode)
	}

	var tr transcriptionResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if tr.Error != nil {
		return "", fmt.Errorf("transcription API error: %s", tr.Error.Message)
	}

	w.logger.Debug("Transcription received",
		zap.Int("audio_bytes", len(wavData)),
		zap.Int("text_length", len(tr.Text)),
		zap.Duration("elapsed", time.Since(start)))

	return tr.Text, nil
}
