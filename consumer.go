package sharedframe

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/abihf/sharedframe/frame"
	"github.com/abihf/sharedframe/lock"
	"github.com/abihf/sharedframe/protocol"
	"github.com/abihf/sharedframe/region"
	"github.com/pkg/errors"
)

// Consumer reads frames published by a Producer. It is the only reader.
type Consumer struct {
	opts   ConsumerOptions
	log    *slog.Logger
	region *region.Region
	token  *lock.Token
	meta   *protocol.Meta

	received atomic.Uint64

	closeMu sync.Mutex
	closed  bool
}

// Attach maps the producer's region. It fails immediately with ErrRegionNotFound when
// the producer has not created it, and with ErrGeometryMismatch when the region or
// the producer's meta file disagree with opts.Geometry.
func Attach(opts ConsumerOptions) (*Consumer, error) {
	opts.setDefaults()
	if err := opts.Geometry.Validate(); err != nil {
		return nil, err
	}

	reg, err := region.Attach(opts.Files.Region, opts.Geometry.Size())
	if err != nil {
		if errors.Is(err, region.ErrSizeMismatch) {
			return nil, errors.Wrap(ErrGeometryMismatch, err.Error())
		}
		return nil, err
	}

	c := &Consumer{
		opts:   opts,
		log:    opts.Logger.With("region", opts.Files.Region),
		region: reg,
		token:  lock.New(opts.Files.Lock, opts.Lock),
	}

	if opts.Files.Meta != "" {
		meta, err := protocol.ReadMetaFile(opts.Files.Meta)
		switch {
		case err == nil:
			if meta.Geometry != opts.Geometry {
				reg.Close()
				return nil, errors.Wrapf(ErrGeometryMismatch, "producer publishes %v, consumer expects %v", meta.Geometry, opts.Geometry)
			}
			c.meta = meta
		case os.IsNotExist(err):
		default:
			c.log.Warn("Ignoring producer meta file", "error", err)
		}
	}

	attrs := []any{"geometry", opts.Geometry.String(), "wait", opts.Lock.Strategy}
	if c.meta != nil {
		attrs = append(attrs, "session", c.meta.Session, "producer", c.meta.Pid)
	}
	c.log.Info("Attached to shared region", attrs...)
	return c, nil
}

func (c *Consumer) Geometry() frame.Geometry { return c.opts.Geometry }

// Meta returns the producer's sidecar, or nil if none was found at attach time.
func (c *Consumer) Meta() *protocol.Meta { return c.meta }

// Received returns how many frames have been consumed.
func (c *Consumer) Received() uint64 { return c.received.Load() }

// Next waits for a published frame, copies it out of the region and hands the buffer
// back to the producer.
func (c *Consumer) Next(ctx context.Context) (*frame.Frame, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	if err := c.token.WaitPresent(ctx); err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return nil, c.diagnose(err)
		}
		return nil, err
	}

	f := frame.New(c.opts.Geometry)
	if err := c.region.ReadInto(f.Pix); err != nil {
		return nil, err
	}
	if err := c.token.Clear(); err != nil {
		return nil, err
	}
	c.received.Add(1)
	return f, nil
}

// diagnose explains a timed out wait.
func (c *Consumer) diagnose(err error) error {
	if !region.Exists(c.opts.Files.Region) {
		return errors.Wrapf(ErrRegionNotFound, "%s disappeared", c.opts.Files.Region)
	}
	if c.meta != nil && !c.meta.Alive() {
		return errors.Wrapf(ErrProducerGone, "pid %d", c.meta.Pid)
	}
	return err
}

// Run delivers frames to handle until it returns false, ctx is done, or an error
// occurs. A handler error comes back as *CallbackError. Run closes the consumer before
// returning, also when handle panics; cancellation is a clean exit.
func (c *Consumer) Run(ctx context.Context, handle Handler) (err error) {
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()

	for {
		f, nerr := c.Next(ctx)
		if nerr != nil {
			if ctx.Err() != nil {
				return nil
			}
			return nerr
		}

		cont, herr := handle(f)
		if herr != nil {
			return &CallbackError{Err: herr}
		}
		if !cont {
			return nil
		}
	}
}

func (c *Consumer) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

// Close unmaps the region and removes the token whether or not this side holds it.
// It is safe to call more than once.
func (c *Consumer) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	err := firstError([]error{
		c.region.Close(),
		c.token.Clear(),
		c.token.Close(),
	})
	c.log.Info("Detached from shared region", "received", c.Received())
	return err
}
