package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/capture"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/database/mariadb"
	"github.com/kozaktomas/face-attend/internal/database/postgres"
	"github.com/kozaktomas/face-attend/internal/notify"
	"github.com/kozaktomas/face-attend/internal/vision/opencv"
	"github.com/kozaktomas/face-attend/internal/web"
	"github.com/kozaktomas/face-attend/internal/web/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Face Attend web server.
The server streams the registration and attendance camera feeds, triggers
model training and exposes attendance records, roster lookups and reports.`,
	RunE: runServe,
}

// shutdownTimeout bounds the graceful shutdown of the web server.
const shutdownTimeout = 30 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

// initDatabases connects the optional roster and PostgreSQL backends. It returns
// a function closing every opened pool.
func initDatabases(cfg *config.Config) (func(), error) {
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Roster.DatabaseURL != "" {
		fmt.Printf("Connecting to roster database...\n")
		pool, err := mariadb.Initialize(cfg.Roster.DatabaseURL)
		if err != nil {
			return closeAll, fmt.Errorf("failed to initialize roster database: %w", err)
		}
		closers = append(closers, func() { pool.Close() })
		fmt.Printf("Roster lookups enabled (MariaDB)\n")
	} else {
		fmt.Printf("ROSTER_DATABASE_URL not set, roster and reports are disabled\n")
	}

	if cfg.Database.URL != "" {
		fmt.Printf("Connecting to PostgreSQL database...\n")
		pool, err := postgres.Initialize(&cfg.Database)
		if err != nil {
			return closeAll, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		closers = append(closers, func() { pool.Close() })
		fmt.Printf("Attendance mirror and training history enabled (PostgreSQL)\n")
	}
	return closeAll, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	p := newPipeline(cfg)

	closeDatabases, err := initDatabases(cfg)
	defer closeDatabases()
	if err != nil {
		return err
	}

	locator, err := opencv.NewCascadeLocator(cfg.Camera.CascadePath)
	if err != nil {
		return fmt.Errorf("loading face detector: %w", err)
	}
	defer locator.Close()

	var notifier attendance.Notifier = notify.Nop{}
	var speaker *notify.Speaker
	if cfg.Speech.Enabled && cfg.Speech.Command != "" {
		speaker = notify.NewSpeaker(cfg.Speech.Command)
		notifier = speaker
	}

	shared := p.newShared()
	open := sourceOpener(cfg.Camera.Device)

	captureSession := capture.NewSession(open, locator, p.samples, shared, capture.Config{
		Throttle:    cfg.Pipeline.CaptureThrottle,
		JPEGQuality: cfg.Pipeline.JPEGQuality,
	})

	loadRecognizer := func() (attendance.Recognizer, error) {
		r, err := p.models.Recognizer()
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	attendanceSession := attendance.NewSession(open, locator, loadRecognizer, p.ledger, notifier, attendance.Config{
		Threshold:   cfg.Pipeline.RecognitionThreshold,
		FaceSize:    cfg.Pipeline.FaceSize,
		JPEGQuality: cfg.Pipeline.JPEGQuality,
	})
	if writer, err := database.GetAttendanceWriter(context.Background()); err == nil {
		attendanceSession.OnMarked(attendance.Mirror(writer))
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(web.Services{
		Shared:     shared,
		Capture:    captureSession,
		Trainer:    p.trainer,
		Attendance: attendanceSession,
		Ledger:     p.ledger,
	}, web.Options{
		Host:           host,
		Port:           port,
		AllowedOrigins: middleware.ParseOrigins(os.Getenv("WEB_ALLOWED_ORIGINS")),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	fmt.Printf("Model trained: %v\n", shared.TrainingComplete())
	fmt.Printf("Starting Face Attend on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := serveUntilSignal(server, sigChan, shutdownTimeout); err != nil {
		return err
	}
	if speaker != nil {
		speaker.Wait()
	}
	return nil
}

// lifecycle is the part of the web server runServe drives.
type lifecycle interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// serveUntilSignal runs srv until a signal arrives. It returns only once
// Shutdown has finished, so deferred cleanups such as closing the face
// detector never run under an in-flight feed.
func serveUntilSignal(srv lifecycle, sig <-chan os.Signal, timeout time.Duration) error {
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-sig
		fmt.Println("\nShutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	<-shutdownDone
	return nil
}
