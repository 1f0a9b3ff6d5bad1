package sharedframe

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/abihf/sharedframe/capture"
	"github.com/abihf/sharedframe/frame"
	"github.com/abihf/sharedframe/lock"
	"github.com/abihf/sharedframe/protocol"
	"github.com/abihf/sharedframe/region"
	"github.com/pkg/errors"
)

// Producer publishes frames into the shared region. It is the only writer.
type Producer struct {
	src    capture.Source
	opts   ProducerOptions
	log    *slog.Logger
	region *region.Region
	token  *lock.Token
	meta   *protocol.Meta

	published atomic.Uint64

	closeMu sync.Mutex
	closed  bool
}

// NewProducer creates the zero-filled region file and takes ownership of src, which
// may be nil when frames are only ever handed to Publish. The
// token is left absent until the first frame is published, so a consumer never sees
// the initial empty buffer.
func NewProducer(src capture.Source, opts ProducerOptions) (*Producer, error) {
	opts.setDefaults()
	if err := opts.Geometry.Validate(); err != nil {
		return nil, err
	}

	reg, err := region.Create(opts.Files.Region, opts.Geometry.Size())
	if err != nil {
		return nil, err
	}

	token := lock.New(opts.Files.Lock, opts.Lock)
	if err = token.Clear(); err != nil {
		reg.Close()
		reg.Remove()
		return nil, err
	}

	p := &Producer{
		src:    src,
		opts:   opts,
		log:    opts.Logger.With("region", opts.Files.Region),
		region: reg,
		token:  token,
		meta:   protocol.NewMeta(opts.Geometry, opts.Files.Region, opts.Files.Lock),
	}

	if opts.Files.Meta != "" {
		if err = protocol.WriteMetaFile(opts.Files.Meta, p.meta); err != nil {
			reg.Close()
			reg.Remove()
			return nil, err
		}
	}

	p.log.Info("Shared region ready",
		"size", opts.Geometry.Size(),
		"geometry", opts.Geometry.String(),
		"session", p.meta.Session,
		"wait", opts.Lock.Strategy)
	return p, nil
}

func (p *Producer) Geometry() frame.Geometry { return p.opts.Geometry }

func (p *Producer) Meta() *protocol.Meta { return p.meta }

// Published returns how many frames have been written.
func (p *Producer) Published() uint64 { return p.published.Load() }

// Publish resizes f to the region geometry if needed, waits for the consumer to free
// the buffer, writes f and marks it ready.
func (p *Producer) Publish(ctx context.Context, f *frame.Frame) error {
	if p.isClosed() {
		return ErrClosed
	}
	f, err := f.Resize(p.opts.Geometry)
	if err != nil {
		return errors.Wrap(err, "Can not normalize frame")
	}

	if err = p.acquire(ctx); err != nil {
		return err
	}
	if err = p.region.Write(f.Pix); err != nil {
		return err
	}
	if err = p.token.Set(); err != nil {
		return err
	}
	p.published.Add(1)
	return nil
}

func (p *Producer) acquire(ctx context.Context) error {
	err := p.token.WaitAbsent(ctx)
	if errors.Is(err, lock.ErrTimeout) && p.opts.Recovery == RecoverForce {
		p.log.Warn("Consumer did not release the frame, taking it back", "lock", p.token.Path())
		return p.token.Clear()
	}
	return err
}

// Run captures and publishes until ctx is done or publishing fails. Failed reads are
// skipped. onFrame, if set, sees every published frame at the region geometry. Run closes the producer
// before returning; cancellation is a clean exit.
func (p *Producer) Run(ctx context.Context, onFrame func(*frame.Frame)) (err error) {
	defer func() {
		if cerr := p.Close(); err == nil {
			err = cerr
		}
	}()

	if p.src == nil {
		return errors.New("producer has no capture source")
	}

	for ctx.Err() == nil {
		f, rerr := capture.Read(ctx, p.src)
		if rerr != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(rerr, capture.ErrStopped) {
				return rerr
			}
			p.log.Debug("Skipping frame", "error", rerr)
			continue
		}

		// onFrame sees what the consumer will see
		f, rerr = f.Resize(p.opts.Geometry)
		if rerr != nil {
			return errors.Wrap(rerr, "Can not normalize frame")
		}
		if perr := p.Publish(ctx, f); perr != nil {
			if ctx.Err() != nil {
				return nil
			}
			return perr
		}
		if onFrame != nil {
			onFrame(f)
		}
	}
	return nil
}

func (p *Producer) isClosed() bool {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	return p.closed
}

// Close releases the source, unmaps and deletes the region, and removes the meta
// file and the token. It is safe to call more than once.
func (p *Producer) Close() error {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.src != nil {
		errs = append(errs, errors.Wrap(p.src.Close(), "Can not release capture device"))
	}
	errs = append(errs,
		p.region.Close(),
		p.region.Remove(),
		p.token.Clear(),
		p.token.Close(),
	)
	if p.opts.Files.Meta != "" {
		errs = append(errs, protocol.RemoveMetaFile(p.opts.Files.Meta))
	}

	p.log.Info("Shared region removed", "published", p.Published())
	return firstError(errs)
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
