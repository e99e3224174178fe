package dictation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State of the adapter
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// Config for the adapter
type Config struct {
	// MaxDuration ends a recording naturally; zero disables the limit
	MaxDuration time.Duration
	// TranscribeTimeout bounds StopAndTranscribe
	TranscribeTimeout time.Duration
}

// Adapter drives one recognizer through Idle -> Recording -> Idle. Each
// recording gets a generation number; a terminal event is delivered only
// if its generation is still current when it arrives.
type Adapter struct {
	mu         sync.Mutex
	recognizer Recognizer
	sink       Sink
	recorder   Recorder
	logger     *zap.Logger
	cfg        Config

	state      State
	generation uint64
	finishing  bool
	timer      *time.Timer

	wg sync.WaitGroup
}

// NewAdapter creates an adapter. recognizer may be nil, in which case every
// start fails with ErrCapabilityUnavailable.
func NewAdapter(recognizer Recognizer, cfg Config, logger *zap.Logger) *Adapter {
	if cfg.TranscribeTimeout <= 0 {
		cfg.TranscribeTimeout = 30 * time.Second
	}
	return &Adapter{
		recognizer: recognizer,
		logger:     logger,
		cfg:        cfg,
		state:      StateIdle,
	}
}

// SetSink sets the receiver of terminal events
func (a *Adapter) SetSink(sink Sink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sink = sink
}

// SetRecorder attaches an outcome recorder
func (a *Adapter) SetRecorder(r Recorder) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recorder = r
}

// Generation identifies the latest recording. StopDictation moves it on,
// so events of a cancelled recording never carry the current value.
func (a *Adapter) Generation() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generation
}

// State returns the current state
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// StartDictation begins capture. It fails without entering Recording when
// the capability is absent.
func (a *Adapter) StartDictation(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == StateRecording {
		return ErrAlreadyRecording
	}

	if a.recognizer == nil {
		a.observe(OutcomeUnavailable)
		return ErrCapabilityUnavailable
	}

	if err := a.recognizer.Available(); err != nil {
		a.observe(OutcomeUnavailable)
		return fmt.Errorf("%w: %w", ErrCapabilityUnavailable, err)
	}

	if err := a.recognizer.Start(ctx); err != nil {
		a.observe(OutcomeUnavailable)
		return fmt.Errorf("%w: %w", ErrCapabilityUnavailable, err)
	}

	a.generation++
	a.state = StateRecording
	a.finishing = false

	if a.cfg.MaxDuration > 0 {
		gen := a.generation
		a.timer = time.AfterFunc(a.cfg.MaxDuration, func() {
			a.finish(gen)
		})
	}

	a.logger.Debug("Dictation started", zap.Uint64("generation", a.generation))
	return nil
}

// Finish ends capture and transcribes asynchronously. The transcript or
// failure is delivered to the sink after the lock is released, so a sink
// must drop events whose generation it has since cancelled. It is a no-op
// unless recording.
func (a *Adapter) Finish() {
	a.mu.Lock()
	gen := a.generation
	a.mu.Unlock()
	a.finish(gen)
}

func (a *Adapter) finish(gen uint64) {
	a.mu.Lock()
	if a.state != StateRecording || a.generation != gen || a.finishing {
		a.mu.Unlock()
		return
	}
	a.finishing = true
	a.stopTimer()
	recognizer := a.recognizer
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.TranscribeTimeout)
		defer cancel()

		text, err := recognizer.StopAndTranscribe(ctx)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyTranscript
		}

		a.mu.Lock()
		if a.generation != gen || a.state != StateRecording {
			a.mu.Unlock()
			a.logger.Debug("Discarding transcript of cancelled dictation", zap.Uint64("generation", gen))
			return
		}
		a.state = StateIdle
		a.finishing = false
		sink := a.sink
		if err != nil {
			a.observe(OutcomeFailed)
		} else {
			a.observe(OutcomeCompleted)
		}
		a.mu.Unlock()

		if sink == nil {
			return
		}
		if err != nil {
			a.logger.Warn("Dictation failed", zap.Error(err))
			sink.OnFailure(gen, fmt.Errorf("%w: %w", ErrDictationFailed, err))
			return
		}
		sink.OnTranscript(gen, strings.TrimSpace(text))
	}()
}

// StopDictation cancels the current recording. Nothing is delivered to the
// sink for it. It is a no-op while idle.
func (a *Adapter) StopDictation() {
	a.mu.Lock()
	if a.state == StateIdle {
		a.mu.Unlock()
		return
	}
	a.generation++
	a.state = StateIdle
	a.finishing = false
	a.stopTimer()
	a.observe(OutcomeCancelled)
	recognizer := a.recognizer
	a.mu.Unlock()

	if err := recognizer.Cancel(context.Background()); err != nil {
		a.logger.Warn("Failed to cancel recognizer", zap.Error(err))
	}
	a.logger.Debug("Dictation cancelled")
}

// Wait blocks until in-flight transcriptions have returned
func (a *Adapter) Wait() {
	a.wg.Wait()
}

// Close cancels any recording and waits for background work
func (a *Adapter) Close() {
	a.StopDictation()
	a.Wait()
}

func (a *Adapter) stopTimer() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Adapter) observe(outcome string) {
	if a.recorder != nil {
		a.recorder.ObserveDictation(outcome)
	}
}
