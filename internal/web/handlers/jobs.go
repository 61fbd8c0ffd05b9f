package handlers

import (
	"sync"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/state"
)

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() state.JobStatus
}

// TrainingEvents broadcasts the events of one training run. Its status is
// read from the shared state, which owns the job record.
type TrainingEvents struct {
	EventBroadcaster

	id     string
	shared *state.Shared
}

// GetStatus returns the current job status (implements SSEJob).
func (e *TrainingEvents) GetStatus() state.JobStatus {
	job, ok := e.shared.Job(e.id)
	if !ok {
		return state.JobStatusFailed
	}
	return job.Status
}

// JobManager tracks the event streams of training runs.
type JobManager struct {
	jobs map[string]*TrainingEvents
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*TrainingEvents),
	}
}

func (m *JobManager) add(events *TrainingEvents) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[events.id] = events
}

// GetJob retrieves the event stream of a job by ID.
func (m *JobManager) GetJob(id string) *TrainingEvents {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}
