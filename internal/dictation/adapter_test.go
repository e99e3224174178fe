package dictation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRecognizer struct {
	mu           sync.Mutex
	availableErr error
	startErr     error
	text         string
	transcribErr error
	release      chan struct{}
	starts       int
	stops        int
	cancels      int
}

func (f *fakeRecognizer) Available() error { return f.availableErr }

func (f *fakeRecognizer) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.startErr
}

func (f *fakeRecognizer) StopAndTranscribe(context.Context) (string, error) {
	f.mu.Lock()
	f.stops++
	release := f.release
	f.mu.Unlock()
	if release != nil {
		<-release
	}
	return f.text, f.transcribErr
}

func (f *fakeRecognizer) Cancel(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return nil
}

func (f *fakeRecognizer) counts() (starts, stops, cancels int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops, f.cancels
}

type fakeSink struct {
	mu          sync.Mutex
	transcripts []string
	failures    []error
	generations []uint64
	done        chan struct{}
}

func newFakeSink() *fakeSink {
	return &fakeSink{done: make(chan struct{}, 8)}
}

func (s *fakeSink) OnTranscript(generation uint64, text string) {
	s.mu.Lock()
	s.generations = append(s.generations, generation)
	s.transcripts = append(s.transcripts, text)
	s.mu.Unlock()
	s.done <- struct{}{}
}

func (s *fakeSink) OnFailure(generation uint64, err error) {
	s.mu.Lock()
	s.generations = append(s.generations, generation)
	s.failures = append(s.failures, err)
	s.mu.Unlock()
	s.done <- struct{}{}
}

func (s *fakeSink) events() ([]string, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.transcripts...), append([]error(nil), s.failures...)
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) ObserveDictation(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func newTestAdapter(rec Recognizer, cfg Config) (*Adapter, *fakeSink) {
	a := NewAdapter(rec, cfg, zap.NewNop())
	sink := newFakeSink()
	a.SetSink(sink)
	return a, sink
}

func TestStartDictation_NoRecognizer(t *testing.T) {
	a, _ := newTestAdapter(nil, Config{})

	err := a.StartDictation(context.Background())
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)
	assert.Equal(t, StateIdle, a.State())
}

func TestStartDictation_Unavailable(t *testing.T) {
	rec := &fakeRecognizer{availableErr: ErrMissingAPIKey}
	a, _ := newTestAdapter(rec, Config{})
	recorder := &outcomeRecorder{}
	a.SetRecorder(recorder)

	err := a.StartDictation(context.Background())
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, StateIdle, a.State())

	starts, _, _ := rec.counts()
	assert.Zero(t, starts)
	assert.Equal(t, []string{OutcomeUnavailable}, recorder.outcomes)
}

func TestStartDictation_StartFails(t *testing.T) {
	rec := &fakeRecognizer{startErr: errors.New("no input device")}
	a, _ := newTestAdapter(rec, Config{})

	err := a.StartDictation(context.Background())
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)
	assert.Equal(t, StateIdle, a.State())
}

func TestStartDictation_AlreadyRecording(t *testing.T) {
	rec := &fakeRecognizer{}
	a, _ := newTestAdapter(rec, Config{})
	defer a.Close()

	require.NoError(t, a.StartDictation(context.Background()))
	assert.ErrorIs(t, a.StartDictation(context.Background()), ErrAlreadyRecording)
	assert.Equal(t, StateRecording, a.State())
}

func TestStopDictation_CancelsWithoutTranscript(t *testing.T) {
	rec := &fakeRecognizer{text: "should never arrive"}
	a, sink := newTestAdapter(rec, Config{})

	require.NoError(t, a.StartDictation(context.Background()))
	assert.Equal(t, StateRecording, a.State())

	a.StopDictation()
	a.Wait()

	assert.Equal(t, StateIdle, a.State())
	transcripts, failures := sink.events()
	assert.Empty(t, transcripts)
	assert.Empty(t, failures)

	_, stops, cancels := rec.counts()
	assert.Zero(t, stops)
	assert.Equal(t, 1, cancels)
}

func TestStopDictation_IdleIsNoop(t *testing.T) {
	rec := &fakeRecognizer{}
	a, sink := newTestAdapter(rec, Config{})

	a.StopDictation()

	assert.Equal(t, StateIdle, a.State())
	_, _, cancels := rec.counts()
	assert.Zero(t, cancels)
	transcripts, failures := sink.events()
	assert.Empty(t, transcripts)
	assert.Empty(t, failures)
}

func TestFinish_DeliversTranscriptOnce(t *testing.T) {
	rec := &fakeRecognizer{text: "  your KYC is expiring  "}
	a, sink := newTestAdapter(rec, Config{})

	require.NoError(t, a.StartDictation(context.Background()))
	a.Finish()
	a.Finish()
	a.Wait()

	transcripts, failures := sink.events()
	assert.Equal(t, []string{"your KYC is expiring"}, transcripts)
	assert.Empty(t, failures)
	assert.Equal(t, StateIdle, a.State())
}

func TestFinish_Failures(t *testing.T) {
	tests := []struct {
		name    string
		rec     *fakeRecognizer
		wantErr error
	}{
		{
			name:    "recognizer error",
			rec:     &fakeRecognizer{transcribErr: errors.New("status 500")},
			wantErr: ErrDictationFailed,
		},
		{
			name:    "empty transcript",
			rec:     &fakeRecognizer{text: "   "},
			wantErr: ErrEmptyTranscript,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, sink := newTestAdapter(tt.rec, Config{})

			require.NoError(t, a.StartDictation(context.Background()))
			a.Finish()
			a.Wait()

			transcripts, failures := sink.events()
			assert.Empty(t, transcripts)
			require.Len(t, failures, 1)
			assert.ErrorIs(t, failures[0], ErrDictationFailed)
			assert.ErrorIs(t, failures[0], tt.wantErr)
			assert.Equal(t, StateIdle, a.State())
		})
	}
}

func TestFinish_IdleIsNoop(t *testing.T) {
	rec := &fakeRecognizer{text: "hello"}
	a, sink := newTestAdapter(rec, Config{})

	a.Finish()
	a.Wait()

	_, stops, _ := rec.counts()
	assert.Zero(t, stops)
	transcripts, _ := sink.events()
	assert.Empty(t, transcripts)
}

func TestStopDuringTranscription_DropsResult(t *testing.T) {
	rec := &fakeRecognizer{text: "late transcript", release: make(chan struct{})}
	a, sink := newTestAdapter(rec, Config{})

	require.NoError(t, a.StartDictation(context.Background()))
	a.Finish()
	a.StopDictation()
	close(rec.release)
	a.Wait()

	transcripts, failures := sink.events()
	assert.Empty(t, transcripts)
	assert.Empty(t, failures)
	assert.Equal(t, StateIdle, a.State())
}

func TestMaxDuration_EndsRecording(t *testing.T) {
	rec := &fakeRecognizer{text: "auto stopped"}
	a, sink := newTestAdapter(rec, Config{MaxDuration: 10 * time.Millisecond})
	recorder := &outcomeRecorder{}
	a.SetRecorder(recorder)

	require.NoError(t, a.StartDictation(context.Background()))

	select {
	case <-sink.done:
	case <-time.After(2 * time.Second):
		t.Fatal("recording did not end after max duration")
	}
	a.Wait()

	transcripts, _ := sink.events()
	assert.Equal(t, []string{"auto stopped"}, transcripts)
	assert.Equal(t, StateIdle, a.State())
	assert.Equal(t, []string{OutcomeCompleted}, recorder.outcomes)
}

func TestRestartAfterCancel(t *testing.T) {
	rec := &fakeRecognizer{text: "second take"}
	a, sink := newTestAdapter(rec, Config{})

	require.NoError(t, a.StartDictation(context.Background()))
	a.StopDictation()
	require.NoError(t, a.StartDictation(context.Background()))
	a.Finish()
	a.Wait()

	transcripts, _ := sink.events()
	assert.Equal(t, []string{"second take"}, transcripts)
}

func TestFinish_TagsEventsWithGeneration(t *testing.T) {
	rec := &fakeRecognizer{text: "first"}
	a, sink := newTestAdapter(rec, Config{})
	defer a.Close()

	require.NoError(t, a.StartDictation(context.Background()))
	first := a.Generation()
	a.StopDictation()
	assert.NotEqual(t, first, a.Generation())

	require.NoError(t, a.StartDictation(context.Background()))
	second := a.Generation()
	a.Finish()
	a.Wait()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []uint64{second}, sink.generations)
	assert.Equal(t, []string{"first"}, sink.transcripts)
}
