package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/capture"
	"github.com/kozaktomas/face-attend/internal/identity"
	"github.com/kozaktomas/face-attend/internal/state"
	"github.com/kozaktomas/face-attend/internal/trainer"
)

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

// fakeCapture emits frames, then returns err.
type fakeCapture struct {
	frames [][]byte
	err    error

	mu  sync.Mutex
	ids []identity.Identity
}

func (f *fakeCapture) Run(ctx context.Context, id identity.Identity, emit capture.EmitFunc) error {
	f.mu.Lock()
	f.ids = append(f.ids, id)
	f.mu.Unlock()
	for _, frame := range f.frames {
		if err := emit(frame); err != nil {
			return err
		}
	}
	return f.err
}

// fakeAttendance emits frames, then returns err.
type fakeAttendance struct {
	frames [][]byte
	err    error
}

func (f *fakeAttendance) Run(ctx context.Context, emit attendance.EmitFunc) error {
	for _, frame := range f.frames {
		if err := emit(frame); err != nil {
			return err
		}
	}
	return f.err
}

// fakeTrainer holds each run until release is closed, then finishes it with err.
type fakeTrainer struct {
	release chan struct{}
	err     error
	done    chan struct{}
}

func newFakeTrainer() *fakeTrainer {
	return &fakeTrainer{release: make(chan struct{}), done: make(chan struct{})}
}

func (f *fakeTrainer) Start(shared *state.Shared, progress trainer.ProgressFunc, finished ...trainer.FinishedFunc) (state.TrainingJob, error) {
	job, err := shared.BeginTraining()
	if err != nil {
		return job, err
	}
	go func() {
		defer close(f.done)
		<-f.release
		progress(1, 1)
		var summary *trainer.Summary
		if f.err != nil {
			shared.FinishTraining(job.ID, 0, 0, f.err)
		} else {
			summary = &trainer.Summary{Identities: 1, Samples: 5}
			shared.FinishTraining(job.ID, 1, 5, nil)
		}
		final, _ := shared.Job(job.ID)
		for _, fn := range finished {
			fn(final, summary, f.err)
		}
	}()
	return job, nil
}

// completedShared returns shared state whose capture session already holds all samples.
func completedShared(t *testing.T) *state.Shared {
	t.Helper()
	shared := state.New(2, false)
	lease := shared.BeginCapture()
	for range 2 {
		if _, err := shared.AdvanceCapture(lease); err != nil {
			t.Fatalf("AdvanceCapture failed: %v", err)
		}
	}
	shared.EndCapture(lease)
	return shared
}
