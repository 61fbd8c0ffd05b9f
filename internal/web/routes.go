package web

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-attend/internal/web/handlers"
	"github.com/kozaktomas/face-attend/internal/web/static"
)

func (s *Server) setupRoutes() {
	registrationHandler := handlers.NewRegistrationHandler(s.services.Shared, s.services.Capture)
	trainHandler := handlers.NewTrainHandler(s.services.Shared, s.services.Trainer, s.jobManager)
	attendanceHandler := handlers.NewAttendanceHandler(s.services.Attendance, s.services.Ledger)
	rosterHandler := handlers.NewRosterHandler()
	reportsHandler := handlers.NewReportsHandler(s.services.Ledger)

	// MJPEG feeds
	s.router.Get("/video_feed/register", registrationHandler.Feed)
	s.router.Get("/video_feed/attendance", attendanceHandler.Feed)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		// Registration
		r.Get("/registration/status", registrationHandler.Status)
		r.Post("/registration/reset", registrationHandler.Reset)

		// Training (long-running)
		r.Post("/train", trainHandler.Start)
		r.Get("/train/runs", trainHandler.History)
		r.Get("/train/{jobId}", trainHandler.Status)
		r.Get("/train/{jobId}/events", trainHandler.Events)

		// Attendance
		r.Get("/attendance/today", attendanceHandler.Today)
		r.Get("/attendance/live", s.hub.ServeWS)
		r.With(chiMiddleware.NoCache).Get("/attendance/download", attendanceHandler.Download)

		// Roster
		r.Get("/roster/batches", rosterHandler.Batches)
		r.Get("/roster/departments", rosterHandler.Departments)
		r.Get("/roster/students", rosterHandler.Students)

		// Reports
		r.Get("/reports", reportsHandler.Get)
		r.Get("/reports/csv", reportsHandler.CSV)
	})

	// Operator page
	s.router.Handle("/*", static.Handler())
}
