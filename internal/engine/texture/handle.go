package texture

import (
	"context"
	"image"
	"image/color"
	"sync"
)

// Status is the readiness of a texture handle.
type Status uint8

const (
	Pending Status = iota
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Handle is the future of a texture load. It completes exactly once;
// until then, and after a failure, Image returns the placeholder.
type Handle struct {
	name string
	done chan struct{}
	img  *image.RGBA
	err  error
}

func newHandle(name string) *Handle {
	return &Handle{name: name, done: make(chan struct{})}
}

// NewReady returns a handle that is already complete with img.
func NewReady(name string, img *image.RGBA) *Handle {
	h := newHandle(name)
	h.complete(img, nil)
	return h
}

// NewFailed returns a handle that already failed with err.
func NewFailed(name string, err error) *Handle {
	h := newHandle(name)
	h.complete(nil, err)
	return h
}

func (h *Handle) complete(img *image.RGBA, err error) {
	h.img, h.err = img, err
	close(h.done)
}

// Name returns the texture's file name.
func (h *Handle) Name() string {
	return h.name
}

// Poll reports the handle's status without blocking.
func (h *Handle) Poll() Status {
	select {
	case <-h.done:
		if h.err != nil {
			return Failed
		}
		return Ready
	default:
		return Pending
	}
}

// Done reports whether the load has finished, successfully or not.
func (h *Handle) Done() bool {
	return h.Poll() != Pending
}

// Err returns the load error once the handle failed.
func (h *Handle) Err() error {
	if h.Poll() != Failed {
		return nil
	}
	return h.err
}

// Image returns the decoded image, or the placeholder while pending or
// after a failure.
func (h *Handle) Image() *image.RGBA {
	if h.Poll() != Ready {
		return Placeholder()
	}
	return h.img
}

// Wait blocks until the load finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Status, error) {
	select {
	case <-h.done:
		return h.Poll(), nil
	case <-ctx.Done():
		return Pending, ctx.Err()
	}
}

// Placeholder returns the shared 2x2 magenta/black checker substituted for
// missing textures. Callers must not modify it.
var Placeholder = sync.OnceValue(func() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	magenta := color.RGBA{R: 255, B: 255, A: 255}
	black := color.RGBA{A: 255}
	img.SetRGBA(0, 0, magenta)
	img.SetRGBA(1, 0, black)
	img.SetRGBA(0, 1, black)
	img.SetRGBA(1, 1, magenta)
	return img
})
