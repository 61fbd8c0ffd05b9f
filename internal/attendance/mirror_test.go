package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/database/mock"
	"github.com/kozaktomas/face-attend/internal/identity"
)

func TestMirror(t *testing.T) {
	w := mock.NewMockAttendanceWriter()
	mirror := Mirror(w)

	at := time.Date(2024, 3, 5, 9, 7, 1, 0, time.Local)
	mirror(Record{Identity: identity.FromTokens("B", "A", "Carol"), Time: at})
	mirror(Record{Identity: identity.FromTokens("B", "A", "Carol"), Time: at.Add(time.Hour)})

	got, err := w.ListAttendance(context.Background(), at.Add(-time.Hour), at.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ListAttendance failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 mirrored record, got %d", len(got))
	}
	if got[0].Batch != "B" || got[0].Department != "A" || got[0].Student != "Carol" {
		t.Errorf("unexpected record: %+v", got[0])
	}
	if !got[0].MarkedAt.Equal(at) {
		t.Errorf("expected %v, got %v", at, got[0].MarkedAt)
	}
}

func TestMirrorFailureIsSwallowed(t *testing.T) {
	w := mock.NewMockAttendanceWriter()
	w.SaveError = errors.New("connection refused")

	// Must not panic.
	Mirror(w)(Record{Identity: identity.FromTokens("B", "A", "Carol"), Time: time.Now()})

	n, _ := w.CountAttendance(context.Background())
	if n != 0 {
		t.Errorf("expected no records, got %d", n)
	}
}
