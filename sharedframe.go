// Package sharedframe moves camera frames from one producer process to one consumer
// process through a memory-mapped file.
//
// The producer owns the capture device and the region file. Every cycle it waits
// until the lock token is absent, overwrites the region and creates the token. The
// consumer waits until the token is present, copies the region out and removes the
// token. Both processes must agree on the file paths and the frame geometry.
package sharedframe

import (
	"log/slog"

	"github.com/abihf/sharedframe/capture"
	"github.com/abihf/sharedframe/frame"
	"github.com/abihf/sharedframe/lock"
	"github.com/abihf/sharedframe/protocol"
	"github.com/abihf/sharedframe/region"
	"github.com/abihf/sharedframe/utils/pidfile"
	"github.com/pkg/errors"
)

var (
	ErrDeviceUnavailable = capture.ErrDeviceUnavailable
	ErrTransientCapture  = capture.ErrNoFrame
	ErrRegionNotFound    = region.ErrNotFound
	ErrLockTimeout       = lock.ErrTimeout
	ErrAlreadyRunning    = pidfile.ErrAlreadyRunning
	ErrClosed            = region.ErrClosed

	ErrGeometryMismatch = errors.New("frame geometry mismatch")
	ErrProducerGone     = errors.New("producer is gone")
)

// CallbackError carries an error returned by a frame handler out of Consumer.Run.
type CallbackError struct {
	Err error
}

func (e *CallbackError) Error() string { return "frame handler failed: " + e.Err.Error() }

func (e *CallbackError) Unwrap() error { return e.Err }

// Handler receives every consumed frame and reports whether the loop should go on.
// The frame is owned by the handler.
type Handler func(f *frame.Frame) (bool, error)

// Recovery decides what the producer does when its wait for the consumer times out.
type Recovery string

const (
	// RecoverFail returns ErrLockTimeout from Publish.
	RecoverFail Recovery = "fail"
	// RecoverForce presumes the consumer dead, removes the token and writes anyway.
	RecoverForce Recovery = "force"
)

// Files names the files shared by both sides.
type Files struct {
	Region string
	Lock   string
	// Meta is optional; empty disables the sidecar.
	Meta string
}

func DefaultFiles() Files {
	return Files{Region: protocol.RegionFile, Lock: protocol.LockFile, Meta: protocol.MetaFile}
}

func (f *Files) setDefaults() {
	if f.Region == "" {
		f.Region = protocol.RegionFile
	}
	if f.Lock == "" {
		f.Lock = protocol.LockFile
	}
}

type ProducerOptions struct {
	Geometry frame.Geometry
	Files    Files
	Lock     lock.Options
	Recovery Recovery
	Logger   *slog.Logger
}

type ConsumerOptions struct {
	Geometry frame.Geometry
	Files    Files
	Lock     lock.Options
	Logger   *slog.Logger
}

func (o *ProducerOptions) setDefaults() {
	if o.Geometry == (frame.Geometry{}) {
		o.Geometry = frame.DefaultGeometry()
	}
	o.Files.setDefaults()
	if o.Lock.Strategy == "" {
		o.Lock.Strategy = lock.Spin
	}
	if o.Recovery == "" {
		o.Recovery = RecoverFail
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

func (o *ConsumerOptions) setDefaults() {
	if o.Geometry == (frame.Geometry{}) {
		o.Geometry = frame.DefaultGeometry()
	}
	o.Files.setDefaults()
	if o.Lock.Strategy == "" {
		o.Lock.Strategy = lock.Poll
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Process exit statuses used by the command line tools.
const (
	ExitOK             = 0
	ExitRegionNotFound = 1
	ExitFailure        = 2
	ExitDevice         = 3
	ExitGeometry       = 4
	ExitAlreadyRunning = 5
	ExitCallback       = 6
)

// ExitCode maps an error returned by this package to a process exit status.
func ExitCode(err error) int {
	var cb *CallbackError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &cb):
		return ExitCallback
	case errors.Is(err, ErrRegionNotFound):
		return ExitRegionNotFound
	case errors.Is(err, ErrDeviceUnavailable):
		return ExitDevice
	case errors.Is(err, ErrGeometryMismatch):
		return ExitGeometry
	case errors.Is(err, ErrAlreadyRunning):
		return ExitAlreadyRunning
	}
	return ExitFailure
}
