package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/identity"
	"github.com/kozaktomas/face-attend/internal/report"
)

// ReportsHandler builds attendance reports from the roster and the ledger.
type ReportsHandler struct {
	ledger *attendance.Ledger
}

// NewReportsHandler creates a new reports handler
func NewReportsHandler(ledger *attendance.Ledger) *ReportsHandler {
	return &ReportsHandler{ledger: ledger}
}

// Get returns the report as JSON.
func (h *ReportsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.build(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// CSV returns the report as a CSV attachment.
func (h *ReportsHandler) CSV(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.build(w, r)
	if !ok {
		return
	}
	filename := fmt.Sprintf("attendance_report_%s_%s.csv",
		identity.Sanitize(rep.Batch), identity.Sanitize(rep.Department))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := report.WriteCSV(w, rep); err != nil {
		slog.Error("failed to write report", "error", err)
	}
}

func (h *ReportsHandler) build(w http.ResponseWriter, r *http.Request) (*report.Report, bool) {
	batchID, deptID, ok := requireBatchAndDepartment(w, r)
	if !ok {
		return nil, false
	}
	roster, err := database.GetRosterReader(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, errRosterUnavailable)
		return nil, false
	}
	records, err := h.ledger.ReadAll()
	if err != nil {
		slog.Error("failed to read ledger", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read attendance")
		return nil, false
	}
	rep, err := report.ForRoster(r.Context(), roster, records, batchID, deptID)
	if err != nil {
		slog.Error("failed to build report", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to build report")
		return nil, false
	}
	return rep, true
}
