package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kozaktomas/face-attend/internal/database"
)

const errRosterUnavailable = "roster database not configured"

// RosterHandler lists batches, departments and students.
type RosterHandler struct{}

// NewRosterHandler creates a new roster handler
func NewRosterHandler() *RosterHandler {
	return &RosterHandler{}
}

// Batches lists all batches.
func (h *RosterHandler) Batches(w http.ResponseWriter, r *http.Request) {
	roster, err := database.GetRosterReader(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, errRosterUnavailable)
		return
	}
	batches, err := roster.ListBatches(r.Context())
	if err != nil {
		slog.Error("failed to list batches", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list batches")
		return
	}
	if batches == nil {
		batches = []database.Batch{}
	}
	respondJSON(w, http.StatusOK, batches)
}

// Departments lists all departments.
func (h *RosterHandler) Departments(w http.ResponseWriter, r *http.Request) {
	roster, err := database.GetRosterReader(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, errRosterUnavailable)
		return
	}
	departments, err := roster.ListDepartments(r.Context())
	if err != nil {
		slog.Error("failed to list departments", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list departments")
		return
	}
	if departments == nil {
		departments = []database.Department{}
	}
	respondJSON(w, http.StatusOK, departments)
}

// Students lists the students of a batch and department.
func (h *RosterHandler) Students(w http.ResponseWriter, r *http.Request) {
	batchID, deptID, ok := requireBatchAndDepartment(w, r)
	if !ok {
		return
	}
	roster, err := database.GetRosterReader(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, errRosterUnavailable)
		return
	}
	students, err := roster.ListStudents(r.Context(), batchID, deptID)
	if err != nil {
		slog.Error("failed to list students", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}
	if students == nil {
		students = []database.Student{}
	}
	respondJSON(w, http.StatusOK, students)
}

func requireBatchAndDepartment(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	batchID, ok1 := queryID(r, "batch_id")
	deptID, ok2 := queryID(r, "department_id")
	if !ok1 || !ok2 || batchID == 0 || deptID == 0 {
		respondError(w, http.StatusBadRequest, "batch_id and department_id are required")
		return 0, 0, false
	}
	return batchID, deptID, true
}
