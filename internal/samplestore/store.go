// Package samplestore persists captured face crops under
// <root>/batch_<B>/department_<D>/student_<S>/face_<seq>_<unix>.jpg.
package samplestore

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/identity"
)

// Sample is one stored face image.
type Sample struct {
	Identity identity.Identity
	Path     string
}

// Group is every sample of one identity.
type Group struct {
	Identity identity.Identity
	Paths    []string
}

type Store struct {
	root    string
	quality int
	now     func() time.Time
}

func New(root string, quality int) *Store {
	if quality <= 0 {
		quality = constants.JPEGQuality
	}
	return &Store{root: root, quality: quality, now: time.Now}
}

// Root returns the directory samples are stored under.
func (s *Store) Root() string {
	return s.root
}

// Save encodes face as JPEG and writes it as the seq-th sample of id.
func (s *Store) Save(id identity.Identity, seq int, face image.Image) (string, error) {
	if err := id.Validate(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, id.Dir())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create sample directory: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, face, &jpeg.Options{Quality: s.quality}); err != nil {
		return "", fmt.Errorf("failed to encode sample: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("face_%d_%d.jpg", seq, s.now().Unix()))
	// O_EXCL keeps an earlier sample from being overwritten within the same second.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create sample: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write sample: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Groups enumerates every stored sample grouped by identity. The relative
// directory of a sample is its identity key; files outside a valid
// batch/department/student directory are ignored. Groups are ordered by key.
func (s *Store) Groups() ([]Group, error) {
	byKey := make(map[string]*Group)

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root && os.IsNotExist(err) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !isJPEG(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(s.root, filepath.Dir(path))
		if err != nil {
			return nil
		}
		id, err := identity.ParseKey(rel)
		if err != nil {
			return nil
		}

		g, ok := byKey[id.Key()]
		if !ok {
			g = &Group{Identity: id}
			byKey[id.Key()] = g
		}
		g.Paths = append(g.Paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate samples: %w", err)
	}

	groups := make([]Group, 0, len(byKey))
	for _, g := range byKey {
		sort.Strings(g.Paths)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Identity.Key() < groups[j].Identity.Key()
	})
	return groups, nil
}

// Samples returns every stored sample, ordered by identity key then path.
func (s *Store) Samples() ([]Sample, error) {
	groups, err := s.Groups()
	if err != nil {
		return nil, err
	}
	var out []Sample
	for _, g := range groups {
		for _, p := range g.Paths {
			out = append(out, Sample{Identity: g.Identity, Path: p})
		}
	}
	return out, nil
}

// Count returns the number of samples stored for id.
func (s *Store) Count(id identity.Identity) (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, id.Dir()))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && isJPEG(e.Name()) {
			n++
		}
	}
	return n, nil
}

// Open decodes a stored sample.
func Open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

func isJPEG(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".jpg")
}
