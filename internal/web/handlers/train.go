package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/state"
	"github.com/kozaktomas/face-attend/internal/trainer"
)

// TrainingStarter launches a background training run.
type TrainingStarter interface {
	Start(shared *state.Shared, progress trainer.ProgressFunc, finished ...trainer.FinishedFunc) (state.TrainingJob, error)
}

// TrainHandler handles training endpoints
type TrainHandler struct {
	shared     *state.Shared
	trainer    TrainingStarter
	jobManager *JobManager
}

// NewTrainHandler creates a new train handler
func NewTrainHandler(shared *state.Shared, t TrainingStarter, jm *JobManager) *TrainHandler {
	return &TrainHandler{shared: shared, trainer: t, jobManager: jm}
}

// Start starts a training run.
func (h *TrainHandler) Start(w http.ResponseWriter, r *http.Request) {
	events := &TrainingEvents{shared: h.shared}

	progress := func(done, total int) {
		events.SendEvent(JobEvent{
			Type: "progress",
			Data: map[string]int{"done": done, "total": total},
		})
	}
	finished := func(job state.TrainingJob, summary *trainer.Summary, err error) {
		if err != nil {
			events.SendEvent(JobEvent{Type: "job_error", Message: err.Error(), Data: job})
		} else {
			events.SendEvent(JobEvent{Type: "completed", Message: "Training complete", Data: job})
		}
		recordTrainingRun(job)
	}

	job, err := h.trainer.Start(h.shared, progress, finished)
	switch {
	case errors.Is(err, state.ErrTrainingInProgress):
		respondError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, state.ErrNotEnoughSamples):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	events.id = job.ID
	h.jobManager.add(events)
	recordTrainingRun(job)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"message": "Training started",
		"job_id":  job.ID,
	})
}

// Status returns a training job.
func (h *TrainHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job, ok := h.shared.Job(jobID)
	if !ok {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// Events streams training events via SSE
func (h *TrainHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamSSEEvents(w, r,
		func(id string) SSEJob {
			events := h.jobManager.GetJob(id)
			if events == nil {
				return nil
			}
			return events
		},
		func(job SSEJob) any {
			events := job.(*TrainingEvents)
			current, _ := h.shared.Job(events.id)
			return current
		},
	)
}

// History lists past training runs from PostgreSQL.
func (h *TrainHandler) History(w http.ResponseWriter, r *http.Request) {
	runs, err := database.GetTrainingRunWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "training history not available")
		return
	}

	list, err := runs.ListTrainingRuns(r.Context(), 50)
	if err != nil {
		slog.Error("failed to list training runs", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list training runs")
		return
	}
	if list == nil {
		list = []database.StoredTrainingRun{}
	}
	respondJSON(w, http.StatusOK, list)
}

// recordTrainingRun stores the job in the training history when PostgreSQL is configured.
func recordTrainingRun(job state.TrainingJob) {
	if !database.IsInitialized() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runs, err := database.GetTrainingRunWriter(ctx)
	if err != nil {
		return
	}
	err = runs.SaveTrainingRun(ctx, database.StoredTrainingRun{
		JobID:       job.ID,
		Status:      string(job.Status),
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
		Identities:  job.Identities,
		Samples:     job.Samples,
		Error:       job.Error,
	})
	if err != nil {
		slog.Warn("failed to record training run", "job", job.ID, "error", err)
	}
}
