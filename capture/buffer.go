package capture

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/abihf/sharedframe/frame"
	"github.com/pkg/errors"
)

// Buffer reads a Source on its own goroutine and keeps only the newest frame.
// Transient read failures are skipped; any other error stops the buffer.
type Buffer struct {
	src   Source
	frame chan *frame.Frame
	done  chan struct{}
	err   error

	stopped   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewBuffer(src Source) *Buffer {
	b := &Buffer{
		src:   src,
		frame: make(chan *frame.Frame, 1),
		done:  make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Buffer) run() {
	defer close(b.done)
	for !b.stopped.Load() {
		f, err := b.src.ReadFrame()
		if err != nil {
			if Transient(err) {
				continue
			}
			b.err = err
			return
		}
		// run is the only sender, so after draining the send never blocks
		select {
		case <-b.frame:
		default:
		}
		b.frame <- f
	}
}

// ReadFrame returns the newest frame, waiting for one if none is buffered. After the
// reader stops it returns an error wrapping ErrStopped.
func (b *Buffer) ReadFrame() (*frame.Frame, error) {
	return b.ReadFrameContext(context.Background())
}

// ReadFrameContext is ReadFrame that gives up when ctx is done, so a stalled device
// does not hold up shutdown.
func (b *Buffer) ReadFrameContext(ctx context.Context) (*frame.Frame, error) {
	select {
	case f := <-b.frame:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
	}
	select {
	case f := <-b.frame:
		return f, nil
	default:
	}
	if b.err != nil {
		return nil, errors.Wrapf(ErrStopped, "%v", b.err)
	}
	return nil, ErrStopped
}

// Close stops the reader goroutine and closes the underlying source.
func (b *Buffer) Close() error {
	b.closeOnce.Do(func() {
		b.stopped.Store(true)
		<-b.done
		b.closeErr = b.src.Close()
	})
	return b.closeErr
}
