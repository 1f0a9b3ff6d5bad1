// Package lock implements the two-party handshake token used by the frame transport.
//
// The token is a zero-length file. Its existence is the only state:
//
//	ABSENT  -> the buffer is free, the producer may write
//	PRESENT -> a frame is ready, the consumer may read
//
// The producer waits for ABSENT, writes and sets the token. The consumer waits for
// PRESENT, reads and clears it. There is no queue and no fairness: exactly one
// producer and one consumer may take part.
package lock

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

const DefaultInterval = 10 * time.Millisecond

var ErrTimeout = errors.New("lock token wait timed out")

type State int

const (
	Absent State = iota
	Present
)

func (s State) String() string {
	if s == Present {
		return "PRESENT"
	}
	return "ABSENT"
}

// Options controls how a Token waits for a state change.
type Options struct {
	Strategy Strategy
	// Interval is the sleep between checks for Poll and the recheck period for Notify.
	Interval time.Duration
	// Timeout bounds every wait. Zero waits forever.
	Timeout time.Duration
}

type Token struct {
	path string
	opts Options

	watcher *fsnotify.Watcher
}

func New(path string, opts Options) *Token {
	if opts.Strategy == "" {
		opts.Strategy = Spin
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Token{path: filepath.Clean(path), opts: opts}
}

func (t *Token) Path() string { return t.path }

func (t *Token) Options() Options { return t.opts }

func (t *Token) State() (State, error) {
	_, err := os.Stat(t.path)
	switch {
	case err == nil:
		return Present, nil
	case os.IsNotExist(err):
		return Absent, nil
	default:
		return Absent, errors.Wrapf(err, "Can not stat lock token %s", t.path)
	}
}

// Present reports whether the token exists. Stat failures other than "not found"
// count as absent.
func (t *Token) Present() bool {
	s, _ := t.State()
	return s == Present
}

// Set creates the token, moving it to PRESENT.
func (t *Token) Set() error {
	f, err := os.OpenFile(t.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return errors.Wrapf(err, "Can not create lock token %s", t.path)
	}
	return f.Close()
}

// Clear removes the token, moving it to ABSENT. Clearing an absent token is a no-op.
func (t *Token) Clear() error {
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "Can not remove lock token %s", t.path)
	}
	return nil
}

// WaitAbsent blocks until the token is ABSENT, ctx is done, or the timeout expires.
func (t *Token) WaitAbsent(ctx context.Context) error {
	return t.wait(ctx, Absent)
}

// WaitPresent blocks until the token is PRESENT, ctx is done, or the timeout expires.
func (t *Token) WaitPresent(ctx context.Context) error {
	return t.wait(ctx, Present)
}

// Close releases the filesystem watcher used by the Notify strategy.
func (t *Token) Close() error {
	if t.watcher == nil {
		return nil
	}
	err := t.watcher.Close()
	t.watcher = nil
	return err
}

func (t *Token) wait(ctx context.Context, want State) error {
	var deadline time.Time
	if t.opts.Timeout > 0 {
		deadline = time.Now().Add(t.opts.Timeout)
	}

	var err error
	switch t.opts.Strategy {
	case Poll:
		err = t.poll(ctx, want, deadline)
	case Notify:
		err = t.notify(ctx, want, deadline)
	default:
		err = t.spin(ctx, want, deadline)
	}
	if errors.Is(err, ErrTimeout) {
		return errors.Wrapf(err, "%s still not %v after %v", t.path, want, t.opts.Timeout)
	}
	return err
}

func (t *Token) reached(want State) (bool, error) {
	s, err := t.State()
	if err != nil {
		return false, err
	}
	return s == want, nil
}
