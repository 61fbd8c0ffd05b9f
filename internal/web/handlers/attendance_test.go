package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/identity"
)

func testLedger(t *testing.T, records ...attendance.Record) *attendance.Ledger {
	t.Helper()
	ledger := attendance.NewLedger(filepath.Join(t.TempDir(), "attendance.csv"))
	for _, rec := range records {
		if err := ledger.Append(rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	return ledger
}

func TestAttendanceHandler_Feed(t *testing.T) {
	handler := NewAttendanceHandler(&fakeAttendance{frames: [][]byte{[]byte("a"), []byte("b"), []byte("c")}}, testLedger(t))

	recorder := httptest.NewRecorder()
	handler.Feed(recorder, httptest.NewRequest("GET", "/video_feed/attendance", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "multipart/x-mixed-replace; boundary=frame")
	if n := strings.Count(recorder.Body.String(), "--frame\r\n"); n != 3 {
		t.Errorf("expected 3 parts, got %d", n)
	}
}

func TestAttendanceHandler_Feed_CameraError(t *testing.T) {
	handler := NewAttendanceHandler(&fakeAttendance{err: errors.New("open failed")}, testLedger(t))

	recorder := httptest.NewRecorder()
	handler.Feed(recorder, httptest.NewRequest("GET", "/video_feed/attendance", nil))

	assertStatusCode(t, recorder, http.StatusServiceUnavailable)
	assertJSONError(t, recorder, "camera unavailable")
}

func TestAttendanceHandler_Today(t *testing.T) {
	today := time.Date(2024, 3, 5, 9, 7, 1, 0, time.Local)
	ledger := testLedger(t,
		attendance.Record{Identity: identity.FromTokens("B", "A", "Dave"), Time: today.AddDate(0, 0, -1)},
		attendance.Record{Identity: identity.FromTokens("B", "A", "Carol_Ann-17"), Time: today},
	)
	handler := NewAttendanceHandler(&fakeAttendance{}, ledger)
	handler.now = func() time.Time { return today.Add(3 * time.Hour) }

	recorder := httptest.NewRecorder()
	handler.Today(recorder, httptest.NewRequest("GET", "/api/v1/attendance/today", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var views []AttendanceView
	parseJSONResponse(t, recorder, &views)
	if len(views) != 1 {
		t.Fatalf("expected 1 record today, got %d", len(views))
	}
	want := AttendanceView{
		Batch:       "B",
		Department:  "A",
		Student:     "Carol_Ann-17",
		DisplayName: "Carol Ann",
		Time:        "2024-03-05 09:07:01",
	}
	if views[0] != want {
		t.Errorf("expected %+v, got %+v", want, views[0])
	}
}

func TestAttendanceHandler_Today_Empty(t *testing.T) {
	handler := NewAttendanceHandler(&fakeAttendance{}, testLedger(t))

	recorder := httptest.NewRecorder()
	handler.Today(recorder, httptest.NewRequest("GET", "/api/v1/attendance/today", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	if strings.TrimSpace(recorder.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %q", recorder.Body.String())
	}
}

func TestAttendanceHandler_Download(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		handler := NewAttendanceHandler(&fakeAttendance{}, testLedger(t))

		recorder := httptest.NewRecorder()
		handler.Download(recorder, httptest.NewRequest("GET", "/api/v1/attendance/download", nil))

		assertStatusCode(t, recorder, http.StatusNotFound)
	})

	t.Run("Present", func(t *testing.T) {
		at := time.Date(2024, 3, 5, 9, 7, 1, 0, time.Local)
		ledger := testLedger(t, attendance.Record{Identity: identity.FromTokens("B", "A", "Carol"), Time: at})
		handler := NewAttendanceHandler(&fakeAttendance{}, ledger)

		recorder := httptest.NewRecorder()
		handler.Download(recorder, httptest.NewRequest("GET", "/api/v1/attendance/download", nil))

		assertStatusCode(t, recorder, http.StatusOK)
		assertContentType(t, recorder, "text/csv; charset=utf-8")
		if !strings.Contains(recorder.Header().Get("Content-Disposition"), "attendance.csv") {
			t.Errorf("unexpected Content-Disposition %q", recorder.Header().Get("Content-Disposition"))
		}
		raw, _ := os.ReadFile(ledger.Path())
		if recorder.Body.String() != string(raw) {
			t.Errorf("expected ledger contents %q, got %q", raw, recorder.Body.String())
		}
	})
}

func TestLiveHub(t *testing.T) {
	hub := NewLiveHub(nil)
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	at := time.Date(2024, 3, 5, 9, 7, 1, 0, time.Local)
	hub.Broadcast(attendance.Record{Identity: identity.FromTokens("B", "A", "Carol"), Time: at})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg LiveMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if msg.Event != "ATTENDANCE_MARKED" {
		t.Errorf("expected ATTENDANCE_MARKED, got %s", msg.Event)
	}
	if msg.Data.DisplayName != "Carol" || msg.Data.Time != "2024-03-05 09:07:01" {
		t.Errorf("unexpected data: %+v", msg.Data)
	}

	conn.Close()
	deadline = time.Now().Add(5 * time.Second)
	for hub.Clients() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLiveHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewLiveHub(nil)
	hub.Broadcast(attendance.Record{Identity: identity.FromTokens("B", "A", "Carol"), Time: time.Now()})
	if hub.Clients() != 0 {
		t.Errorf("expected no clients, got %d", hub.Clients())
	}
}
