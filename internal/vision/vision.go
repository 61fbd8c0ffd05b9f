// Package vision defines frame acquisition and face location contracts and
// the pure-Go image helpers shared by capture and attendance sessions.
package vision

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrEmptyFrame is returned by a FrameSource for an unreadable or empty frame.
	// Callers skip the frame and read again.
	ErrEmptyFrame = errors.New("empty frame")
	// ErrSourceClosed is returned once a FrameSource can produce no more frames.
	ErrSourceClosed = errors.New("frame source closed")
)

// FrameSource produces sequential frames. Implementations are used by a single
// goroutine and must be closed by the caller.
type FrameSource interface {
	Read(ctx context.Context) (*image.RGBA, error)
	Close() error
}

// SourceOpener opens a fresh FrameSource for each session.
type SourceOpener func() (FrameSource, error)

// Region is a detected face.
type Region struct {
	Rect       image.Rectangle `json:"rect"`
	Confidence float64         `json:"confidence"`
}

// FaceLocator finds faces in a frame, in detector order.
type FaceLocator interface {
	Locate(frame *image.RGBA) ([]Region, error)
}
