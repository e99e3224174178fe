// Package dictation wraps an external speech-to-text capability behind a
// start/stop contract that yields exactly one final transcript or failure.
package dictation

import (
	"context"
	"errors"
)

var (
	// ErrCapabilityUnavailable means recording never started
	ErrCapabilityUnavailable = errors.New("speech recognition is not available")
	// ErrDictationFailed wraps failures reported after recording started
	ErrDictationFailed = errors.New("dictation failed")
	// ErrEmptyTranscript is reported when no speech was recognized
	ErrEmptyTranscript = errors.New("no speech recognized")
	// ErrAlreadyRecording guards re-entrant starts
	ErrAlreadyRecording = errors.New("dictation already in progress")
)

// Recognizer is the external dictation collaborator. Only final
// transcripts are consumed; partial results are never requested.
type Recognizer interface {
	// Available reports why recognition cannot run here, or nil
	Available() error
	Start(ctx context.Context) error
	StopAndTranscribe(ctx context.Context) (string, error)
	// Cancel discards any capture in progress
	Cancel(ctx context.Context) error
}

// Sink receives the single terminal event of a recording, tagged with the
// generation StartDictation assigned to it
type Sink interface {
	OnTranscript(generation uint64, text string)
	OnFailure(generation uint64, err error)
}

// Recorder observes dictation outcomes
type Recorder interface {
	ObserveDictation(outcome string)
}

// Outcomes passed to Recorder
const (
	OutcomeCompleted   = "completed"
	OutcomeFailed      = "failed"
	OutcomeCancelled   = "cancelled"
	OutcomeUnavailable = "unavailable"
)
