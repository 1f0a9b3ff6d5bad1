package lock

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Strategy selects how a Token waits.
type Strategy string

const (
	// Spin re-checks the token in a tight loop. Lowest latency, burns a core.
	Spin Strategy = "spin"
	// Poll sleeps Interval between checks.
	Poll Strategy = "poll"
	// Notify blocks on filesystem events for the token directory and re-checks every
	// Interval in case an event is missed.
	Notify Strategy = "notify"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Spin, Poll, Notify:
		return Strategy(s), nil
	}
	return "", errors.Errorf("unknown wait strategy %q", s)
}

func expired(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}

func (t *Token) spin(ctx context.Context, want State, deadline time.Time) error {
	for {
		ok, err := t.reached(want)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if err = ctx.Err(); err != nil {
			return err
		}
		if expired(deadline) {
			return ErrTimeout
		}
	}
}

func (t *Token) poll(ctx context.Context, want State, deadline time.Time) error {
	tick := time.NewTicker(t.opts.Interval)
	defer tick.Stop()

	for {
		ok, err := t.reached(want)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if expired(deadline) {
			return ErrTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}

func (t *Token) ensureWatcher() (*fsnotify.Watcher, error) {
	if t.watcher != nil {
		return t.watcher, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "Can not create lock watcher")
	}
	if err = w.Add(filepath.Dir(t.path)); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "Can not watch %s", filepath.Dir(t.path))
	}
	t.watcher = w
	return w, nil
}

func (t *Token) notify(ctx context.Context, want State, deadline time.Time) error {
	w, err := t.ensureWatcher()
	if err != nil {
		return err
	}

	recheck := time.NewTicker(t.opts.Interval)
	defer recheck.Stop()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		ok, err := t.reached(want)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return ErrTimeout
		case _, open := <-w.Events:
			// any event in the directory triggers a re-check
			if !open {
				return errors.New("lock watcher closed")
			}
		case err, open := <-w.Errors:
			if !open {
				return errors.New("lock watcher closed")
			}
			return errors.Wrap(err, "lock watcher failed")
		case <-recheck.C:
		}
	}
}
