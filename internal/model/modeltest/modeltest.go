// Package modeltest provides a cgo-free nearest-neighbour classifier for tests
// of code that trains, stores or loads face models.
package modeltest

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
)

// ErrUntrained is returned by Predict before Train or LoadFile.
var ErrUntrained = errors.New("modeltest: classifier not trained")

type sample struct {
	Label  int    `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pix    []byte `json:"pix"`
}

// Nearest returns the label of the stored face with the smallest mean
// absolute pixel difference. Identical faces are at distance 0.
type Nearest struct {
	mu      sync.Mutex
	samples []sample
	closed  bool
}

func New() *Nearest {
	return &Nearest{}
}

func (n *Nearest) Train(faces []*image.Gray, labels []int) error {
	if len(faces) == 0 || len(faces) != len(labels) {
		return fmt.Errorf("modeltest: %d faces for %d labels", len(faces), len(labels))
	}
	samples := make([]sample, len(faces))
	for i, f := range faces {
		samples[i] = toSample(f, labels[i])
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.samples = samples
	return nil
}

func (n *Nearest) Predict(face *image.Gray) (int, float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.samples) == 0 {
		return 0, 0, ErrUntrained
	}

	q := toSample(face, 0)
	best, bestDist := -1, 0.0
	for _, s := range n.samples {
		if s.Width != q.Width || s.Height != q.Height {
			return 0, 0, fmt.Errorf("modeltest: face is %dx%d, trained on %dx%d", q.Width, q.Height, s.Width, s.Height)
		}
		sum := 0
		for i := range s.Pix {
			d := int(s.Pix[i]) - int(q.Pix[i])
			if d < 0 {
				d = -d
			}
			sum += d
		}
		dist := float64(sum) / float64(len(s.Pix))
		if best < 0 || dist < bestDist {
			best, bestDist = s.Label, dist
		}
	}
	return best, bestDist, nil
}

func (n *Nearest) SaveFile(path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	data, err := json.Marshal(n.samples)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (n *Nearest) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var samples []sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return fmt.Errorf("modeltest: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.samples = samples
	return nil
}

func (n *Nearest) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

// Labels returns the number of distinct labels the classifier holds.
func (n *Nearest) Labels() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	seen := make(map[int]struct{})
	for _, s := range n.samples {
		seen[s.Label] = struct{}{}
	}
	return len(seen)
}

// Closed reports whether Close was called.
func (n *Nearest) Closed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

func toSample(face *image.Gray, label int) sample {
	b := face.Bounds()
	pix := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := face.PixOffset(b.Min.X, y)
		pix = append(pix, face.Pix[row:row+b.Dx()]...)
	}
	return sample{Label: label, Width: b.Dx(), Height: b.Dy(), Pix: pix}
}
