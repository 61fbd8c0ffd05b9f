package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/constants"
)

// AttendanceRunner runs the recognition stream.
type AttendanceRunner interface {
	Run(ctx context.Context, emit attendance.EmitFunc) error
}

// AttendanceView is the JSON form of a ledger record.
type AttendanceView struct {
	Batch       string `json:"batch"`
	Department  string `json:"department"`
	Student     string `json:"student"`
	DisplayName string `json:"display_name"`
	Time        string `json:"time"`
}

func newAttendanceView(rec attendance.Record) AttendanceView {
	return AttendanceView{
		Batch:       rec.Identity.Batch,
		Department:  rec.Identity.Department,
		Student:     rec.Identity.Student,
		DisplayName: attendance.DisplayName(rec.Identity.StudentName()),
		Time:        rec.Time.Format(constants.LedgerTimeLayout),
	}
}

// AttendanceHandler serves the attendance feed and ledger views.
type AttendanceHandler struct {
	session AttendanceRunner
	ledger  *attendance.Ledger
	now     func() time.Time
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(session AttendanceRunner, ledger *attendance.Ledger) *AttendanceHandler {
	return &AttendanceHandler{session: session, ledger: ledger, now: time.Now}
}

// Feed streams recognition results.
func (h *AttendanceHandler) Feed(w http.ResponseWriter, r *http.Request) {
	stream, ok := newMJPEGWriter(w)
	if !ok {
		return
	}

	err := h.session.Run(r.Context(), stream.WriteFrame)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return
	case !stream.Started():
		slog.Error("attendance feed failed", "error", err)
		respondError(w, http.StatusServiceUnavailable, "camera unavailable")
	default:
		slog.Warn("attendance feed ended", "error", err)
	}
}

// Today lists the records of the current day.
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.ReadAll()
	if err != nil {
		slog.Error("failed to read ledger", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to read attendance")
		return
	}

	y, m, d := h.now().Date()
	views := []AttendanceView{}
	for _, rec := range records {
		ry, rm, rd := rec.Time.Date()
		if ry == y && rm == m && rd == d {
			views = append(views, newAttendanceView(rec))
		}
	}
	respondJSON(w, http.StatusOK, views)
}

// Download sends the raw ledger.
func (h *AttendanceHandler) Download(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(h.ledger.Path()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			respondError(w, http.StatusNotFound, "no attendance recorded yet")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to read attendance")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="attendance.csv"`)
	http.ServeFile(w, r, h.ledger.Path())
}
