package vision

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DirSource replays the images of a directory in name order. It stands in for
// a camera during development and in tests.
type DirSource struct {
	paths    []string
	next     int
	loop     bool
	interval time.Duration
	closed   bool
}

// OpenDir lists the .jpg/.jpeg/.png files of dir. With loop set the source
// restarts from the first file instead of closing.
func OpenDir(dir string, loop bool, interval time.Duration) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frames in %s", dir)
	}
	sort.Strings(paths)

	return &DirSource{paths: paths, loop: loop, interval: interval}, nil
}

func (s *DirSource) Read(ctx context.Context) (*image.RGBA, error) {
	if s.closed {
		return nil, ErrSourceClosed
	}
	if s.next >= len(s.paths) {
		if !s.loop {
			return nil, ErrSourceClosed
		}
		s.next = 0
	}

	if s.interval > 0 && s.next > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.interval):
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.paths[s.next]
	s.next++

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyFrame, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEmptyFrame, filepath.Base(path), err)
	}
	return ToRGBA(img), nil
}

func (s *DirSource) Close() error {
	s.closed = true
	return nil
}
