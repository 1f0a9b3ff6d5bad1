package lock

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var strategies = []Strategy{Spin, Poll, Notify}

func newToken(t *testing.T, opts Options) *Token {
	t.Helper()
	tok := New(filepath.Join(t.TempDir(), "frame.lock"), opts)
	t.Cleanup(func() { tok.Close() })
	return tok
}

func TestSetAndClear(t *testing.T) {
	tok := newToken(t, Options{})
	assert.False(t, tok.Present())

	require.NoError(t, tok.Set())
	s, err := tok.State()
	require.NoError(t, err)
	assert.Equal(t, Present, s)

	require.NoError(t, tok.Set())
	assert.True(t, tok.Present())

	require.NoError(t, tok.Clear())
	assert.False(t, tok.Present())
	require.NoError(t, tok.Clear(), "clearing an absent token must not fail")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ABSENT", Absent.String())
	assert.Equal(t, "PRESENT", Present.String())
}

func TestParseStrategy(t *testing.T) {
	for _, s := range strategies {
		got, err := ParseStrategy(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStrategy("semaphore")
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	tok := New("frame.lock", Options{})
	assert.Equal(t, Spin, tok.Options().Strategy)
	assert.Equal(t, DefaultInterval, tok.Options().Interval)
}

func TestWaitReturnsImmediatelyWhenSatisfied(t *testing.T) {
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			tok := newToken(t, Options{Strategy: s})
			require.NoError(t, tok.WaitAbsent(context.Background()))
			require.NoError(t, tok.Set())
			require.NoError(t, tok.WaitPresent(context.Background()))
		})
	}
}

func TestWaitSeesOtherSide(t *testing.T) {
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			tok := newToken(t, Options{Strategy: s, Interval: 5 * time.Millisecond})
			other := New(tok.Path(), Options{})

			go func() {
				time.Sleep(30 * time.Millisecond)
				other.Set()
			}()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			require.NoError(t, tok.WaitPresent(ctx))

			go func() {
				time.Sleep(30 * time.Millisecond)
				other.Clear()
			}()
			require.NoError(t, tok.WaitAbsent(ctx))
		})
	}
}

func TestWaitTimeout(t *testing.T) {
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			tok := newToken(t, Options{Strategy: s, Interval: 5 * time.Millisecond, Timeout: 40 * time.Millisecond})

			start := time.Now()
			err := tok.WaitPresent(context.Background())
			assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
			assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
		})
	}
}

func TestWaitCancelled(t *testing.T) {
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			tok := newToken(t, Options{Strategy: s, Interval: 5 * time.Millisecond})
			require.NoError(t, tok.Set())

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()
			err := tok.WaitAbsent(ctx)
			assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
		})
	}
}
