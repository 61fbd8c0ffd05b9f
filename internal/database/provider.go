package database

import (
	"context"
	"fmt"
	"sync"
)

var (
	mu                        sync.RWMutex
	rosterReader              func() RosterReader
	postgresAttendanceWriter  func() AttendanceWriter
	postgresTrainingRunWriter func() TrainingRunWriter
	postgresInitialized       bool
)

// RegisterRosterBackend registers the roster repository constructor.
// This is called by the mariadb package to avoid import cycles.
func RegisterRosterBackend(reader func() RosterReader) {
	mu.Lock()
	defer mu.Unlock()
	rosterReader = reader
}

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(
	attendance func() AttendanceWriter,
	runs func() TrainingRunWriter,
) {
	mu.Lock()
	defer mu.Unlock()
	postgresAttendanceWriter = attendance
	postgresTrainingRunWriter = runs
	postgresInitialized = true
}

// ResetBackends forgets every registered backend.
func ResetBackends() {
	mu.Lock()
	defer mu.Unlock()
	rosterReader = nil
	postgresAttendanceWriter = nil
	postgresTrainingRunWriter = nil
	postgresInitialized = false
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	mu.RLock()
	defer mu.RUnlock()
	return postgresInitialized
}

// HasRoster returns whether a roster backend is registered.
func HasRoster() bool {
	mu.RLock()
	defer mu.RUnlock()
	return rosterReader != nil
}

// GetRosterReader returns the registered RosterReader
func GetRosterReader(ctx context.Context) (RosterReader, error) {
	mu.RLock()
	defer mu.RUnlock()
	if rosterReader == nil {
		return nil, fmt.Errorf("roster backend not initialized: ROSTER_DATABASE_URL is required")
	}
	return rosterReader(), nil
}

// GetAttendanceWriter returns an AttendanceWriter from the PostgreSQL backend
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	mu.RLock()
	defer mu.RUnlock()
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresAttendanceWriter == nil {
		return nil, fmt.Errorf("PostgreSQL attendance writer not registered")
	}
	return postgresAttendanceWriter(), nil
}

// GetTrainingRunWriter returns a TrainingRunWriter from the PostgreSQL backend
func GetTrainingRunWriter(ctx context.Context) (TrainingRunWriter, error) {
	mu.RLock()
	defer mu.RUnlock()
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresTrainingRunWriter == nil {
		return nil, fmt.Errorf("PostgreSQL training run writer not registered")
	}
	return postgresTrainingRunWriter(), nil
}
