package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
)

const mirrorTimeout = 5 * time.Second

// Mirror returns a MarkedFunc that copies committed records into w. The
// ledger stays authoritative; mirror failures are logged only.
func Mirror(w database.AttendanceWriter) MarkedFunc {
	return func(rec Record) {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()

		err := w.SaveAttendance(ctx, database.StoredAttendance{
			Batch:      rec.Identity.Batch,
			Department: rec.Identity.Department,
			Student:    rec.Identity.Student,
			MarkedAt:   rec.Time,
		})
		if err != nil {
			slog.Warn("attendance: mirror failed", "component", "attendance", "identity", rec.Identity.Key(), "error", err)
		}
	}
}
