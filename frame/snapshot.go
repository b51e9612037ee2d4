package frame

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

const snapshotTimeout = 2 * time.Second

// Snapshot reads frames from a camera that serves its current picture over
// HTTP (IP cameras, or a USB camera behind a snapshot bridge).
type Snapshot struct {
	client *http.Client
	url    *url.URL
	token  string
	width  int
	height int
}

func NewSnapshot(u *url.URL, token string, width, height int) *Snapshot {
	return &Snapshot{
		client: &http.Client{Timeout: snapshotTimeout},
		url:    u,
		token:  token,
		width:  width,
		height: height,
	}
}

func (s *Snapshot) Open(ctx context.Context) (Stream, error) {
	st := &snapshotStream{src: s, done: make(chan struct{})}

	// The first frame doubles as the permission/device probe.
	if _, err := st.Frame(ctx); err != nil {
		st.Close()
		if errors.Is(err, ErrPermissionDenied) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		if !errors.Is(err, ErrNoDevice) {
			err = fmt.Errorf("%w: %s", ErrNoDevice, err)
		}
		return nil, err
	}
	return st, nil
}

type snapshotStream struct {
	src  *Snapshot
	once sync.Once
	done chan struct{}
}

func (st *snapshotStream) Frame(ctx context.Context) (image.Image, error) {
	select {
	case <-st.done:
		return nil, ErrClosed
	default:
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, st.src.url.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating snapshot request: %w", err)
	}
	if st.src.token != "" {
		req.Header.Set("Authorization", "Bearer "+st.src.token)
	}

	resp, err := st.src.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error requesting snapshot: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: camera returned %s", ErrPermissionDenied, resp.Status)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: camera returned %s", ErrNoDevice, resp.Status)
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("snapshot request returned: %s", resp.Status)
	}

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("error decoding snapshot: %w", err)
	}
	return fit(img, st.src.width, st.src.height), nil
}

func (st *snapshotStream) Close() error {
	st.once.Do(func() {
		close(st.done)
		st.src.client.CloseIdleConnections()
	})
	return nil
}
