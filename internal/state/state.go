// Package state holds the process-wide registration and training state shared
// by capture sessions, the trainer and status polling.
package state

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrLeaseLost is returned to a capture session superseded by a newer one.
	ErrLeaseLost = errors.New("capture lease lost to a newer session")
	// ErrCaptureFull is returned when the session already holds all samples.
	ErrCaptureFull = errors.New("capture session already complete")
	// ErrTrainingInProgress is returned when a training run is already in flight.
	ErrTrainingInProgress = errors.New("training already in progress")
	// ErrNotEnoughSamples is returned when training is requested before a capture completed.
	ErrNotEnoughSamples = errors.New("not enough face captures to train the model")
)

// JobStatus represents the lifecycle of a training run.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// TrainingJob is the outcome record of the latest training run.
type TrainingJob struct {
	ID          string     `json:"id"`
	Status      JobStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Identities  int        `json:"identities,omitempty"`
	Samples     int        `json:"samples,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Lease identifies the capture session allowed to advance progress.
type Lease struct {
	token string
}

// Token returns the lease identifier.
func (l Lease) Token() string {
	return l.token
}

// Status is a consistent snapshot for status polling.
type Status struct {
	RegistrationCount    int          `json:"registration_count"`
	RegistrationComplete bool         `json:"registration_complete"`
	Capturing            bool         `json:"capturing"`
	Training             *TrainingJob `json:"training,omitempty"`
}

// Shared is guarded by a single mutex. Fields are only reachable through methods.
type Shared struct {
	mu               sync.Mutex
	required         int
	progress         int
	lease            string
	trainingComplete bool
	job              *TrainingJob
	now              func() time.Time
}

// New creates the shared state. required is the number of samples a capture
// session collects; trained seeds the training-complete flag.
func New(required int, trained bool) *Shared {
	return &Shared{required: required, trainingComplete: trained, now: time.Now}
}

// Required returns the number of samples per capture session.
func (s *Shared) Required() int {
	return s.required
}

// BeginCapture starts a new capture session. Progress is reset to zero and any
// earlier session loses its lease.
func (s *Shared) BeginCapture() Lease {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress = 0
	s.lease = uuid.NewString()
	return Lease{token: s.lease}
}

// CaptureProgress returns the progress of the session holding l.
func (s *Shared) CaptureProgress(l Lease) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.token == "" || l.token != s.lease {
		return 0, ErrLeaseLost
	}
	return s.progress, nil
}

// AdvanceCapture records one accepted sample and returns the new progress.
func (s *Shared) AdvanceCapture(l Lease) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.token == "" || l.token != s.lease {
		return s.progress, ErrLeaseLost
	}
	if s.progress >= s.required {
		return s.progress, ErrCaptureFull
	}
	s.progress++
	return s.progress, nil
}

// EndCapture releases l if it is still current. Progress is kept so polling
// callers keep seeing the final count.
func (s *Shared) EndCapture(l Lease) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.token != "" && l.token == s.lease {
		s.lease = ""
	}
}

// ResetCapture zeroes progress and revokes the active lease.
func (s *Shared) ResetCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.progress = 0
	s.lease = ""
}

// Progress returns the current capture progress.
func (s *Shared) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// TrainingComplete reports whether a usable model exists.
func (s *Shared) TrainingComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trainingComplete
}

// SetTrainingComplete overrides the training flag, e.g. after an offline run.
func (s *Shared) SetTrainingComplete(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trainingComplete = v
}

// BeginTraining validates that a capture completed and that no run is in
// flight, then records a new running job. Both checks and the state change
// happen under the lock so concurrent triggers launch at most one run.
func (s *Shared) BeginTraining() (TrainingJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job != nil && s.job.Status == JobStatusRunning {
		return *s.job, ErrTrainingInProgress
	}
	if s.progress < s.required {
		return TrainingJob{}, ErrNotEnoughSamples
	}

	s.job = &TrainingJob{
		ID:        uuid.NewString(),
		Status:    JobStatusRunning,
		StartedAt: s.now(),
	}
	return *s.job, nil
}

// FinishTraining records the outcome of job id. A successful run flips the
// training-complete flag; a failed run leaves it unchanged.
func (s *Shared) FinishTraining(id string, identities, samples int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job == nil || s.job.ID != id {
		return
	}
	now := s.now()
	s.job.CompletedAt = &now
	if err != nil {
		s.job.Status = JobStatusFailed
		s.job.Error = err.Error()
		return
	}
	s.job.Status = JobStatusCompleted
	s.job.Identities = identities
	s.job.Samples = samples
	s.trainingComplete = true
}

// Job returns the latest training job when its id matches.
func (s *Shared) Job(id string) (TrainingJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.job == nil || s.job.ID != id {
		return TrainingJob{}, false
	}
	return copyJob(s.job), true
}

// Snapshot returns the status seen by polling clients.
func (s *Shared) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		RegistrationCount:    s.progress,
		RegistrationComplete: s.trainingComplete,
		Capturing:            s.lease != "",
	}
	if s.job != nil {
		job := copyJob(s.job)
		st.Training = &job
	}
	return st
}

func copyJob(j *TrainingJob) TrainingJob {
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
