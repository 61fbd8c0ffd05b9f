package opencv

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sync"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

// ErrUntrained is returned by Predict before Train or LoadFile. OpenCV aborts
// the process when an empty LBPH model is queried.
var ErrUntrained = errors.New("lbph recognizer not trained")

// LBPH is the OpenCV Local Binary Patterns Histograms recognizer. Its model
// file is the YAML written by cv::face::LBPHFaceRecognizer::write, so models
// trained by other OpenCV programs load as well. Calls are serialized.
type LBPH struct {
	mu      sync.Mutex
	fr      *contrib.LBPHFaceRecognizer
	trained bool
}

// NewLBPH creates a recognizer. Non-positive parameters keep the OpenCV
// defaults (radius 1, 8 neighbors, 8x8 grid).
func NewLBPH(radius, neighbors int) *LBPH {
	fr := contrib.NewLBPHFaceRecognizer()
	if radius > 0 {
		fr.SetRadius(radius)
	}
	if neighbors > 0 {
		fr.SetNeighbors(neighbors)
	}
	return &LBPH{fr: fr}
}

func (l *LBPH) Train(faces []*image.Gray, labels []int) error {
	if len(faces) == 0 || len(faces) != len(labels) {
		return fmt.Errorf("lbph: %d faces for %d labels", len(faces), len(labels))
	}

	mats := make([]gocv.Mat, 0, len(faces))
	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()
	for _, face := range faces {
		m, err := gocv.ImageGrayToMatGray(face)
		if err != nil {
			return fmt.Errorf("failed to convert face: %w", err)
		}
		mats = append(mats, m)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.fr.Train(mats, labels)
	l.trained = true
	return nil
}

func (l *LBPH) Predict(face *image.Gray) (int, float64, error) {
	m, err := gocv.ImageGrayToMatGray(face)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to convert face: %w", err)
	}
	defer m.Close()

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.trained {
		return 0, 0, ErrUntrained
	}
	resp := l.fr.PredictExtendedResponse(m)
	return int(resp.Label), float64(resp.Confidence), nil
}

func (l *LBPH) SaveFile(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.trained {
		return ErrUntrained
	}
	l.fr.SaveFile(path)
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("lbph model not written: %w", err)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("lbph model %s is empty", path)
	}
	return nil
}

// LoadFile reads a model written by SaveFile. The file is checked first since
// OpenCV raises instead of reporting a missing file.
func (l *LBPH) LoadFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.fr.LoadFile(path)
	l.trained = true
	return nil
}

func (l *LBPH) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trained = false
	// Not every gocv release exposes Close on the contrib recognizers.
	if c, ok := any(l.fr).(io.Closer); ok {
		return c.Close()
	}
	return nil
}
