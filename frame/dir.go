package frame

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"}

// Dir replays the images found in a directory, in name order, as if they
// were successive camera frames. It wraps around after the last one.
type Dir struct {
	path   string
	width  int
	height int
}

func NewDir(path string, width, height int) *Dir {
	return &Dir{path: path, width: width, height: height}
}

func (d *Dir) Open(ctx context.Context) (Stream, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrNoDevice, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(d.path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrNoDevice, d.path)
	}
	slices.Sort(files)

	return &dirStream{dir: d, files: files}, nil
}

type dirStream struct {
	dir    *Dir
	mu     sync.Mutex
	files  []string
	next   int
	closed bool
}

func (s *dirStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	f := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	img, err := imaging.Open(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("error reading frame %s: %w", f, err)
	}
	return fit(img, s.dir.width, s.dir.height), nil
}

func (s *dirStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
