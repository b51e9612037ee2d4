package frame

import (
	"context"
	"errors"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoDevice         = errors.New("no camera device")
	ErrClosed           = errors.New("camera stream closed")
)

// Source hands out camera streams. Open errors wrapping ErrPermissionDenied
// or ErrNoDevice are terminal for a scan session.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open camera. Close may be called more than once and from a
// different goroutine than Frame.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// fit shrinks frames larger than the requested resolution, keeping the
// aspect ratio. Smaller frames are returned as they are.
func fit(img image.Image, width, height int) image.Image {
	if width <= 0 || height <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= width && b.Dy() <= height {
		return img
	}
	return imaging.Fit(img, width, height, imaging.Linear)
}
