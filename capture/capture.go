// Package capture provides the video sources a producer publishes from.
package capture

import (
	"context"

	"github.com/abihf/sharedframe/frame"
	"github.com/pkg/errors"
)

var (
	ErrDeviceUnavailable = errors.New("video device unavailable")
	// ErrNoFrame marks a single failed read. The next read may succeed.
	ErrNoFrame = errors.New("no frame captured")
	ErrStopped = errors.New("capture stopped")
)

// Source delivers frames from a capture device.
type Source interface {
	// ReadFrame returns the next frame. Errors wrapping ErrNoFrame are transient.
	ReadFrame() (*frame.Frame, error)
	Close() error
}

// ContextSource is a Source whose reads can be abandoned through a context.
type ContextSource interface {
	Source
	ReadFrameContext(ctx context.Context) (*frame.Frame, error)
}

// Read reads one frame from src, honouring ctx when src supports it.
func Read(ctx context.Context, src Source) (*frame.Frame, error) {
	if cs, ok := src.(ContextSource); ok {
		return cs.ReadFrameContext(ctx)
	}
	return src.ReadFrame()
}

// Transient reports whether err is a per-frame failure that a caller may skip.
func Transient(err error) bool {
	return errors.Is(err, ErrNoFrame)
}
