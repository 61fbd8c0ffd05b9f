// Package capture runs registration sessions: frames are read from a camera,
// the first detected face of each frame is stored as a training sample, and
// the session ends once the required number of samples has been collected.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/identity"
	"github.com/kozaktomas/face-attend/internal/state"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// SampleSaver persists one face crop.
type SampleSaver interface {
	Save(id identity.Identity, seq int, face image.Image) (string, error)
}

// EmitFunc receives every annotated, JPEG-encoded frame in acquisition order.
// An error ends the session.
type EmitFunc func(frame []byte) error

type Config struct {
	Throttle    time.Duration
	JPEGQuality int
	RetryDelay  time.Duration // first pause after an unreadable frame
}

type Session struct {
	open    vision.SourceOpener
	locator vision.FaceLocator
	samples SampleSaver
	shared  *state.Shared
	cfg     Config
	logger  *slog.Logger
}

func NewSession(open vision.SourceOpener, locator vision.FaceLocator, samples SampleSaver, shared *state.Shared, cfg Config) *Session {
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = constants.JPEGQuality
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = constants.ReadRetryDelay
	}
	return &Session{
		open:    open,
		locator: locator,
		samples: samples,
		shared:  shared,
		cfg:     cfg,
		logger:  slog.Default().With("component", "capture"),
	}
}

// Run captures samples for id until the session holds all of them. It returns
// nil on completion, state.ErrLeaseLost when a newer session took over, and
// the context, emit or source error otherwise. Progress is reset before the
// camera is opened, and the frame source is always released before Run returns.
func (s *Session) Run(ctx context.Context, id identity.Identity, emit EmitFunc) error {
	if err := id.Validate(); err != nil {
		return err
	}

	lease := s.shared.BeginCapture()
	defer s.shared.EndCapture(lease)

	src, err := s.open()
	if err != nil {
		return fmt.Errorf("failed to open frame source: %w", err)
	}
	defer src.Close()

	required := s.shared.Required()
	log := s.logger.With("identity", id.Key(), "lease", lease.Token())
	log.Info("capture: session started", "required", required)

	failures := 0
	for {
		frame, err := src.Read(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, vision.ErrSourceClosed), errors.Is(err, io.EOF):
				log.Warn("capture: frame source closed")
				return vision.ErrSourceClosed
			}
			failures++
			log.Error("capture: skipping unreadable frame", "error", err, "failures", failures)
			if err := vision.Wait(ctx, vision.RetryDelay(s.cfg.RetryDelay, failures, constants.MaxReadRetryShift)); err != nil {
				return err
			}
			continue
		}
		failures = 0

		regions, err := s.locator.Locate(frame)
		if err != nil {
			log.Error("capture: face detection failed", "error", err)
			continue
		}

		count, err := s.shared.CaptureProgress(lease)
		if err != nil {
			log.Warn("capture: session superseded")
			return err
		}

		captured := false
		if len(regions) == 0 {
			vision.PutText(frame, image.Pt(20, 30), "No face detected", vision.Red)
		} else if count < required {
			face := regions[0].Rect
			crop, err := vision.Crop(frame, face)
			if err != nil {
				log.Error("capture: failed to crop face", "error", err)
				continue
			}
			vision.DrawRect(frame, face, vision.Blue, 2)
			if _, err := s.samples.Save(id, count, crop); err != nil {
				log.Error("capture: failed to save sample", "error", err)
				continue
			}
			count, err = s.shared.AdvanceCapture(lease)
			if err != nil {
				log.Warn("capture: session superseded")
				return err
			}
			captured = true
			vision.PutText(frame, image.Pt(face.Min.X, face.Min.Y-10), fmt.Sprintf("Captured %d/%d", count, required), vision.Blue)
		}

		complete := count >= required
		if complete {
			vision.PutText(frame, image.Pt(20, 60), "Capture complete. Please train the model.", vision.Green)
		}

		data, err := vision.EncodeJPEG(frame, s.cfg.JPEGQuality)
		if err != nil {
			log.Error("capture: failed to encode frame", "error", err)
		} else if err := emit(data); err != nil {
			log.Info("capture: client disconnected", "error", err)
			return err
		}

		if complete {
			log.Info("capture: session complete", "samples", count)
			return nil
		}
		if captured {
			if err := vision.Wait(ctx, s.cfg.Throttle); err != nil {
				return err
			}
		}
	}
}
