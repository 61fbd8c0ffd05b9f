package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attend/internal/capture"
	"github.com/kozaktomas/face-attend/internal/identity"
	"github.com/kozaktomas/face-attend/internal/state"
)

// CaptureRunner runs one registration session.
type CaptureRunner interface {
	Run(ctx context.Context, id identity.Identity, emit capture.EmitFunc) error
}

// RegistrationHandler serves the registration feed and capture progress.
type RegistrationHandler struct {
	shared  *state.Shared
	capture CaptureRunner
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(shared *state.Shared, capture CaptureRunner) *RegistrationHandler {
	return &RegistrationHandler{shared: shared, capture: capture}
}

// Feed streams the registration session for the identity named in the query.
func (h *RegistrationHandler) Feed(w http.ResponseWriter, r *http.Request) {
	id, msg := identityFromQuery(r)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	stream, ok := newMJPEGWriter(w)
	if !ok {
		return
	}

	err := h.capture.Run(r.Context(), id, stream.WriteFrame)
	switch {
	case err == nil, errors.Is(err, state.ErrLeaseLost), errors.Is(err, context.Canceled):
		return
	case !stream.Started():
		slog.Error("registration feed failed", "identity", sanitizeForLog(id.Key()), "error", err)
		respondError(w, http.StatusServiceUnavailable, "camera unavailable")
	default:
		slog.Warn("registration feed ended", "identity", sanitizeForLog(id.Key()), "error", err)
	}
}

// Status returns the capture progress and the latest training job.
func (h *RegistrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.shared.Snapshot())
}

// Reset clears capture progress.
func (h *RegistrationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.shared.ResetCapture()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Registration reset"})
}

// identityFromQuery builds the identity of a registration request. It returns
// a non-empty message when the request is invalid.
func identityFromQuery(r *http.Request) (identity.Identity, string) {
	q := r.URL.Query()
	names := map[string]string{
		"batch_name":      strings.TrimSpace(q.Get("batch_name")),
		"department_name": strings.TrimSpace(q.Get("department_name")),
		"student_name":    strings.TrimSpace(q.Get("student_name")),
	}
	for _, key := range []string{"batch_name", "department_name", "student_name"} {
		if names[key] == "" {
			return identity.Identity{}, key + " is required"
		}
	}

	batchID, ok1 := queryID(r, "batch_id")
	deptID, ok2 := queryID(r, "department_id")
	studentID, ok3 := queryID(r, "student_id")
	if !ok1 || !ok2 || !ok3 {
		return identity.Identity{}, "ids must be positive integers"
	}

	id := identity.New(
		identity.Part{Name: names["batch_name"], ID: batchID},
		identity.Part{Name: names["department_name"], ID: deptID},
		identity.Part{Name: names["student_name"], ID: studentID},
	)
	if err := id.Validate(); err != nil {
		return identity.Identity{}, err.Error()
	}
	return id, ""
}
