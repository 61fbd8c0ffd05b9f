package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/database/mock"
	"github.com/kozaktomas/face-attend/internal/state"
)

func startTraining(t *testing.T, handler *TrainHandler) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	handler.Start(recorder, httptest.NewRequest("POST", "/api/v1/train", nil))
	assertStatusCode(t, recorder, http.StatusAccepted)

	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if result["message"] != "Training started" {
		t.Errorf("expected message 'Training started', got '%s'", result["message"])
	}
	if result["job_id"] == "" {
		t.Fatal("expected non-empty job_id")
	}
	return result["job_id"]
}

func TestTrainHandler_Start_NotEnoughSamples(t *testing.T) {
	handler := NewTrainHandler(state.New(5, false), newFakeTrainer(), NewJobManager())

	recorder := httptest.NewRecorder()
	handler.Start(recorder, httptest.NewRequest("POST", "/api/v1/train", nil))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, state.ErrNotEnoughSamples.Error())
}

func TestTrainHandler_Start_Conflict(t *testing.T) {
	trainer := newFakeTrainer()
	handler := NewTrainHandler(completedShared(t), trainer, NewJobManager())

	startTraining(t, handler)

	recorder := httptest.NewRecorder()
	handler.Start(recorder, httptest.NewRequest("POST", "/api/v1/train", nil))
	assertStatusCode(t, recorder, http.StatusConflict)
	assertJSONError(t, recorder, state.ErrTrainingInProgress.Error())

	close(trainer.release)
	<-trainer.done
}

func TestTrainHandler_Status(t *testing.T) {
	trainer := newFakeTrainer()
	shared := completedShared(t)
	handler := NewTrainHandler(shared, trainer, NewJobManager())

	jobID := startTraining(t, handler)

	t.Run("Running", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/train/"+jobID, nil), map[string]string{"jobId": jobID})
		handler.Status(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var job state.TrainingJob
		parseJSONResponse(t, recorder, &job)
		if job.Status != state.JobStatusRunning {
			t.Errorf("expected running, got %s", job.Status)
		}
	})

	close(trainer.release)
	<-trainer.done

	t.Run("Completed", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/train/"+jobID, nil), map[string]string{"jobId": jobID})
		handler.Status(recorder, req)

		var job state.TrainingJob
		parseJSONResponse(t, recorder, &job)
		if job.Status != state.JobStatusCompleted || job.Identities != 1 || job.Samples != 5 {
			t.Errorf("unexpected job: %+v", job)
		}
		if !shared.TrainingComplete() {
			t.Error("expected training complete flag")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/train/nope", nil), map[string]string{"jobId": "nope"})
		handler.Status(recorder, req)

		assertStatusCode(t, recorder, http.StatusNotFound)
		assertJSONError(t, recorder, "job not found")
	})
}

func TestTrainHandler_Events(t *testing.T) {
	trainer := newFakeTrainer()
	handler := NewTrainHandler(completedShared(t), trainer, NewJobManager())
	jobID := startTraining(t, handler)

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/train/"+jobID+"/events", nil), map[string]string{"jobId": jobID})

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		handler.Events(recorder, req)
	}()

	close(trainer.release)
	<-trainer.done

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("event stream did not end after the job completed")
	}

	assertContentType(t, recorder, "text/event-stream")
	body := recorder.Body.String()
	if !strings.HasPrefix(body, "event: status\n") {
		t.Errorf("expected initial status event, got %q", body)
	}
	if !strings.Contains(body, `"status":"completed"`) {
		t.Errorf("expected completed job in stream, got %q", body)
	}
}

func TestTrainHandler_Events_UnknownJob(t *testing.T) {
	handler := NewTrainHandler(state.New(5, false), newFakeTrainer(), NewJobManager())

	recorder := httptest.NewRecorder()
	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/train/x/events", nil), map[string]string{"jobId": "x"})
	handler.Events(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestTrainHandler_RecordsHistory(t *testing.T) {
	runs := mock.NewMockTrainingRunWriter()
	database.RegisterPostgresBackend(
		func() database.AttendanceWriter { return mock.NewMockAttendanceWriter() },
		func() database.TrainingRunWriter { return runs },
	)
	defer database.ResetBackends()

	trainer := newFakeTrainer()
	trainer.err = errors.New("no face images found for training")
	handler := NewTrainHandler(completedShared(t), trainer, NewJobManager())

	jobID := startTraining(t, handler)
	close(trainer.release)
	<-trainer.done

	list, err := runs.ListTrainingRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListTrainingRuns failed: %v", err)
	}
	if len(list) != 1 || list[0].JobID != jobID {
		t.Fatalf("expected one run for %s, got %+v", jobID, list)
	}
	if list[0].Status != string(state.JobStatusFailed) || list[0].Error == "" {
		t.Errorf("expected failed run with error, got %+v", list[0])
	}

	recorder := httptest.NewRecorder()
	handler.History(recorder, httptest.NewRequest("GET", "/api/v1/train/runs", nil))
	assertStatusCode(t, recorder, http.StatusOK)

	var history []map[string]any
	parseJSONResponse(t, recorder, &history)
	if len(history) != 1 {
		t.Errorf("expected 1 run in history, got %d", len(history))
	}
}

func TestTrainHandler_History_Unavailable(t *testing.T) {
	database.ResetBackends()
	handler := NewTrainHandler(state.New(5, false), newFakeTrainer(), NewJobManager())

	recorder := httptest.NewRecorder()
	handler.History(recorder, httptest.NewRequest("GET", "/api/v1/train/runs", nil))

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
}
