// Package visiontest provides in-memory frame sources and face locators for
// tests that must not depend on a camera or OpenCV.
package visiontest

import (
	"context"
	"image"
	"image/color"
	"math/rand/v2"
	"sync"

	"github.com/kozaktomas/face-attend/internal/vision"
)

// Source returns the frames produced by Next. A nil Next yields an endless
// stream of blank frames.
type Source struct {
	Next func(i int) (*image.RGBA, error)

	mu     sync.Mutex
	reads  int
	closed bool
}

func (s *Source) Read(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, vision.ErrSourceClosed
	}
	i := s.reads
	s.reads++
	s.mu.Unlock()

	if s.Next == nil {
		return Blank(), nil
	}
	return s.Next(i)
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Reads returns the number of Read calls.
func (s *Source) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Opener returns a SourceOpener always handing out src.
func Opener(src *Source) vision.SourceOpener {
	return func() (vision.FrameSource, error) { return src, nil }
}

// Locator returns the regions produced by Fn for the i-th call. A nil Fn
// finds one face in the middle of every frame.
type Locator struct {
	Fn func(i int, frame *image.RGBA) ([]vision.Region, error)

	mu    sync.Mutex
	calls int
}

func (l *Locator) Locate(frame *image.RGBA) ([]vision.Region, error) {
	l.mu.Lock()
	i := l.calls
	l.calls++
	l.mu.Unlock()

	if l.Fn == nil {
		return []vision.Region{{Rect: FaceRect, Confidence: 1}}, nil
	}
	return l.Fn(i, frame)
}

// FaceRect is where Locator finds faces by default.
var FaceRect = image.Rect(40, 30, 120, 110)

// Blank returns a 160x120 black frame.
func Blank() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 160, 120))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

// Textured returns a 160x120 frame of seeded noise. Frames with the same seed
// are identical.
func Textured(seed uint64) *image.RGBA {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	img := image.NewRGBA(image.Rect(0, 0, 160, 120))
	for y := range 120 {
		for x := range 160 {
			v := uint8(rng.IntN(256))
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 0xff})
		}
	}
	return img
}
