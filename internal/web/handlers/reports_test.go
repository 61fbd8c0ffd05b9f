package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/identity"
	"github.com/kozaktomas/face-attend/internal/report"
)

func reportLedger(t *testing.T) *attendance.Ledger {
	t.Helper()
	day := time.Date(2024, 3, 4, 9, 0, 0, 0, time.Local)
	return testLedger(t,
		attendance.Record{Identity: identity.FromTokens("2024-1", "CS-3", "Carol-10"), Time: day},
		attendance.Record{Identity: identity.FromTokens("2024-1", "CS-3", "Dave-11"), Time: day},
		attendance.Record{Identity: identity.FromTokens("2024-1", "CS-3", "Carol-10"), Time: day.AddDate(0, 0, 1)},
	)
}

func TestReportsHandler_Get(t *testing.T) {
	setupRoster(t)
	handler := NewReportsHandler(reportLedger(t))

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/reports?batch_id=1&department_id=3", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var rep report.Report
	parseJSONResponse(t, recorder, &rep)

	if rep.Batch != "2024" || rep.Department != "CS" || rep.TotalWorkingDays != 2 {
		t.Errorf("unexpected report header: %+v", rep)
	}
	if len(rep.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rep.Rows))
	}
	if rep.Rows[0].Name != "Carol" || rep.Rows[0].AttendancePercentage != 100 {
		t.Errorf("unexpected Carol row: %+v", rep.Rows[0])
	}
	if rep.Rows[1].Name != "Dave" || rep.Rows[1].AbsentCount != 1 || rep.Rows[1].AbsentPercentage != 50 {
		t.Errorf("unexpected Dave row: %+v", rep.Rows[1])
	}
}

func TestReportsHandler_CSV(t *testing.T) {
	setupRoster(t)
	handler := NewReportsHandler(reportLedger(t))

	recorder := httptest.NewRecorder()
	handler.CSV(recorder, httptest.NewRequest("GET", "/api/v1/reports/csv?batch_id=1&department_id=3", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "text/csv; charset=utf-8")
	if got := recorder.Header().Get("Content-Disposition"); got != `attachment; filename="attendance_report_2024_CS.csv"` {
		t.Errorf("unexpected Content-Disposition %q", got)
	}

	lines := strings.Split(strings.TrimSpace(recorder.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", recorder.Body.String())
	}
	if lines[1] != "10,Carol,2,100.00,0,0.00" {
		t.Errorf("unexpected Carol row %q", lines[1])
	}
}

func TestReportsHandler_Errors(t *testing.T) {
	handler := NewReportsHandler(reportLedger(t))

	t.Run("MissingParams", func(t *testing.T) {
		setupRoster(t)
		recorder := httptest.NewRecorder()
		handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/reports?department_id=3", nil))
		assertStatusCode(t, recorder, http.StatusBadRequest)
	})

	t.Run("NoRoster", func(t *testing.T) {
		database.ResetBackends()
		recorder := httptest.NewRecorder()
		handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/reports?batch_id=1&department_id=3", nil))
		assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	})
}
