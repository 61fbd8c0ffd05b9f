package model

import (
	"image"
	"log/slog"

	"github.com/kozaktomas/face-attend/internal/identity"
)

// Recognizer predicts identities with a loaded classifier. It is immutable
// after construction and owns the classifier until Close.
type Recognizer struct {
	classifier Classifier
	identities map[int]identity.Identity
}

// NewRecognizer inverts the label map. Keys that do not parse are dropped and
// their labels resolve to identity.Unknown.
func NewRecognizer(c Classifier, labels LabelMap) *Recognizer {
	ids := make(map[int]identity.Identity, len(labels))
	for key, label := range labels {
		id, err := identity.ParseKey(key)
		if err != nil {
			slog.Warn("model: ignoring label with invalid key", "label", label, "key", key, "error", err)
			continue
		}
		ids[label] = id
	}
	return &Recognizer{classifier: c, identities: ids}
}

// Recognizer loads the current model from disk.
func (s *Store) Recognizer() (*Recognizer, error) {
	c, labels, err := s.Load()
	if err != nil {
		return nil, err
	}
	return NewRecognizer(c, labels), nil
}

// Predict returns the nearest identity and its distance (lower is better).
func (r *Recognizer) Predict(face *image.Gray) (identity.Identity, float64, error) {
	label, dist, err := r.classifier.Predict(face)
	if err != nil {
		return identity.Unknown, 0, err
	}
	id, ok := r.identities[label]
	if !ok {
		return identity.Unknown, dist, nil
	}
	return id, dist, nil
}

// Labels returns the number of identities the recognizer knows.
func (r *Recognizer) Labels() int {
	return len(r.identities)
}

// Close releases the classifier.
func (r *Recognizer) Close() error {
	return r.classifier.Close()
}
