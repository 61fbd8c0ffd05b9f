// Package attendance recognizes faces in a live stream and commits at most
// one attendance record per identity per calendar day.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/identity"
	"github.com/kozaktomas/face-attend/internal/vision"
)

// Recognizer predicts the identity of a normalized face crop. Lower scores
// are better matches.
type Recognizer interface {
	Predict(face *image.Gray) (identity.Identity, float64, error)
}

// RecognizerLoader loads the current model once per session.
type RecognizerLoader func() (Recognizer, error)

// Notifier announces a short phrase without blocking the caller.
type Notifier interface {
	Notify(text string)
}

// MarkedFunc is called after a record was committed to the ledger.
type MarkedFunc func(rec Record)

// EmitFunc receives every annotated, JPEG-encoded frame. An error ends the session.
type EmitFunc func(frame []byte) error

type Config struct {
	Threshold   float64 // accept strictly below
	FaceSize    int
	JPEGQuality int
	RetryDelay  time.Duration // first pause after an unreadable frame
}

// Outcome of processing one face.
type Outcome string

const (
	OutcomeNotTrained    Outcome = "not_trained"
	OutcomeNotRecognized Outcome = "not_recognized"
	OutcomeMarked        Outcome = "marked"
	OutcomeAlreadyMarked Outcome = "already_marked"
	OutcomeError         Outcome = "error"
)

type Session struct {
	open     vision.SourceOpener
	locator  vision.FaceLocator
	load     RecognizerLoader
	ledger   *Ledger
	notifier Notifier
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	onMarked []MarkedFunc
}

func NewSession(open vision.SourceOpener, locator vision.FaceLocator, load RecognizerLoader, ledger *Ledger, notifier Notifier, cfg Config) *Session {
	if cfg.Threshold <= 0 {
		cfg.Threshold = constants.RecognitionThreshold
	}
	if cfg.FaceSize <= 0 {
		cfg.FaceSize = constants.FaceSize
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = constants.JPEGQuality
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = constants.ReadRetryDelay
	}
	return &Session{
		open:     open,
		locator:  locator,
		load:     load,
		ledger:   ledger,
		notifier: notifier,
		cfg:      cfg,
		logger:   slog.Default().With("component", "attendance"),
		now:      time.Now,
	}
}

// OnMarked registers fn to be called for every committed record.
func (s *Session) OnMarked(fn MarkedFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMarked = append(s.onMarked, fn)
}

// run holds the per-stream state of one Run call.
type run struct {
	*Session
	recognizer Recognizer
	day        time.Time
	marked     map[string]struct{}
	log        *slog.Logger
}

// Run streams annotated frames until the context is cancelled, emit fails or
// the source closes. The model and today's marked set are loaded once at start;
// the set is reloaded from the ledger when the calendar day changes.
func (s *Session) Run(ctx context.Context, emit EmitFunc) error {
	src, err := s.open()
	if err != nil {
		return fmt.Errorf("failed to open frame source: %w", err)
	}
	defer src.Close()

	r := &run{Session: s, log: s.logger}
	if err := r.reload(s.now()); err != nil {
		return err
	}

	rec, err := s.load()
	if err != nil {
		r.log.Warn("attendance: model unavailable, recognition disabled", "error", err)
	} else {
		r.recognizer = rec
		if c, ok := rec.(io.Closer); ok {
			defer c.Close()
		}
	}
	r.log.Info("attendance: session started", "trained", r.recognizer != nil, "marked_today", len(r.marked))

	failures := 0
	for {
		frame, err := src.Read(ctx)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case errors.Is(err, vision.ErrSourceClosed), errors.Is(err, io.EOF):
				r.log.Warn("attendance: frame source closed")
				return vision.ErrSourceClosed
			}
			failures++
			r.log.Error("attendance: skipping unreadable frame", "error", err, "failures", failures)
			if err := vision.Wait(ctx, vision.RetryDelay(s.cfg.RetryDelay, failures, constants.MaxReadRetryShift)); err != nil {
				return err
			}
			continue
		}
		failures = 0

		regions, err := s.locator.Locate(frame)
		if err != nil {
			r.log.Error("attendance: face detection failed", "error", err)
			continue
		}

		now := s.now()
		if !sameDay(r.day, now) {
			if err := r.reload(now); err != nil {
				r.log.Error("attendance: failed to reload ledger for the new day", "error", err)
			}
		}

		for _, region := range regions {
			r.process(frame, region.Rect, now)
		}

		data, err := vision.EncodeJPEG(frame, s.cfg.JPEGQuality)
		if err != nil {
			r.log.Error("attendance: failed to encode frame", "error", err)
			continue
		}
		if err := emit(data); err != nil {
			r.log.Info("attendance: client disconnected", "error", err)
			return err
		}
	}
}

func (r *run) reload(now time.Time) error {
	marked, err := r.ledger.MarkedOn(now)
	if err != nil {
		return fmt.Errorf("failed to load today's attendance: %w", err)
	}
	r.day = now
	r.marked = marked
	return nil
}

// process annotates one face and commits attendance when it is recognized.
func (r *run) process(frame *image.RGBA, face image.Rectangle, now time.Time) Outcome {
	statusAt := image.Pt(face.Min.X, face.Min.Y-30)

	if r.recognizer == nil {
		vision.DrawRect(frame, face, vision.Blue, 2)
		vision.PutText(frame, statusAt, "Model Not Trained", vision.Blue)
		return OutcomeNotTrained
	}

	crop, err := vision.Crop(frame, face)
	if err != nil {
		r.log.Error("attendance: failed to crop face", "error", err)
		return OutcomeError
	}
	id, score, err := r.recognizer.Predict(vision.NormalizeFace(crop, r.cfg.FaceSize))
	if err != nil {
		r.log.Error("attendance: prediction failed", "error", err)
		return OutcomeError
	}

	if id.IsUnknown() || score >= r.cfg.Threshold {
		vision.DrawRect(frame, face, vision.Red, 2)
		vision.PutText(frame, statusAt, "Face Not Recognized", vision.Red)
		return OutcomeNotRecognized
	}

	name := DisplayName(id.StudentName())
	vision.DrawRect(frame, face, vision.Green, 2)
	vision.PutText(frame, image.Pt(face.Min.X, face.Min.Y-10),
		DisplayName(id.BatchName())+", "+DisplayName(id.DepartmentName()), vision.Green)

	if _, ok := r.marked[id.Key()]; ok {
		vision.PutText(frame, statusAt, "Already Marked: "+name, vision.Green)
		return OutcomeAlreadyMarked
	}

	rec := Record{Identity: id, Time: now}
	if err := r.ledger.Append(rec); err != nil {
		r.log.Error("attendance: failed to commit record", "identity", id.Key(), "error", err)
		vision.PutText(frame, statusAt, "Attendance Error", vision.Red)
		return OutcomeError
	}
	r.marked[id.Key()] = struct{}{}
	r.log.Info("attendance: marked", "identity", id.Key(), "score", score)

	status := "Attendance Marked: " + name
	vision.PutText(frame, statusAt, status, vision.Green)
	if r.notifier != nil {
		r.notifier.Notify(status)
	}

	r.mu.Lock()
	hooks := append([]MarkedFunc(nil), r.onMarked...)
	r.mu.Unlock()
	for _, fn := range hooks {
		fn(rec)
	}
	return OutcomeMarked
}

// DisplayName turns a token back into readable text.
func DisplayName(token string) string {
	return strings.ReplaceAll(token, "_", " ")
}
