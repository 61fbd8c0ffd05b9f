// Package model persists the trained classifier together with its label map
// and exposes the Recognizer used by attendance sessions.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNotTrained is returned when either model file is missing.
var ErrNotTrained = errors.New("model not trained")

// LabelMap maps an identity key to its integer classifier label.
type LabelMap map[string]int

// Keys returns the identity keys ordered by label.
func (m LabelMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return m[keys[i]] < m[keys[j]] })
	return keys
}

// Store owns the two model files. Save replaces both while holding the write
// lock, so a concurrent Load never sees a classifier paired with a stale map.
type Store struct {
	mu            sync.RWMutex
	modelPath     string
	labelsPath    string
	newClassifier Factory
}

func NewStore(modelPath, labelsPath string, newClassifier Factory) *Store {
	return &Store{modelPath: modelPath, labelsPath: labelsPath, newClassifier: newClassifier}
}

// NewClassifier returns an empty classifier of the kind the store persists.
func (s *Store) NewClassifier() Classifier {
	return s.newClassifier()
}

// Exists reports whether both model files are present.
func (s *Store) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range []string{s.modelPath, s.labelsPath} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// Save writes the classifier and the label map.
func (s *Store) Save(c Classifier, labels LabelMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	modelTmp, err := tempPath(s.modelPath)
	if err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := c.SaveFile(modelTmp); err != nil {
		os.Remove(modelTmp)
		return fmt.Errorf("failed to write model: %w", err)
	}
	labelsTmp, err := writeTemp(s.labelsPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(labels)
	})
	if err != nil {
		os.Remove(modelTmp)
		return fmt.Errorf("failed to write labels: %w", err)
	}

	if err := os.Rename(modelTmp, s.modelPath); err != nil {
		os.Remove(modelTmp)
		os.Remove(labelsTmp)
		return fmt.Errorf("failed to replace model: %w", err)
	}
	if err := os.Rename(labelsTmp, s.labelsPath); err != nil {
		os.Remove(labelsTmp)
		return fmt.Errorf("failed to replace labels: %w", err)
	}
	return nil
}

// Load reads the classifier and the label map. The caller owns the returned
// classifier and must close it.
func (s *Store) Load() (Classifier, LabelMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range []string{s.modelPath, s.labelsPath} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, nil, ErrNotTrained
			}
			return nil, nil, err
		}
	}

	lf, err := os.Open(s.labelsPath)
	if err != nil {
		return nil, nil, err
	}
	defer lf.Close()
	var labels LabelMap
	if err := json.NewDecoder(lf).Decode(&labels); err != nil {
		return nil, nil, fmt.Errorf("failed to decode labels: %w", err)
	}

	c := s.newClassifier()
	if err := c.LoadFile(s.modelPath); err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("failed to load model: %w", err)
	}
	return c, labels, nil
}

// tempPath reserves a sibling of target that keeps its extension.
func tempPath(target string) (string, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	ext := filepath.Ext(target)
	f, err := os.CreateTemp(dir, strings.TrimSuffix(filepath.Base(target), ext)+".tmp-*"+ext)
	if err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func writeTemp(target string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".tmp-*")
	if err != nil {
		return "", err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
