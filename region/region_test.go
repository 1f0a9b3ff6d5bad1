package region

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateZeroFills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.mmap")
	r, err := Create(path, 300)
	require.NoError(t, err)
	defer r.Close()

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 300, st.Size())

	buf, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 300), buf)
}

func TestWriteVisibleToAttachedReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.mmap")
	w, err := Create(path, 300)
	require.NoError(t, err)
	defer w.Close()

	rd, err := Attach(path, 300)
	require.NoError(t, err)
	defer rd.Close()

	pattern := make([]byte, 300)
	for i := range pattern {
		pattern[i] = byte(i * 7)
	}
	require.NoError(t, w.Write(pattern))

	got, err := rd.Read()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(pattern, got))

	// the copy must not follow later writes
	require.NoError(t, w.Write(bytes.Repeat([]byte{1}, 300)))
	assert.True(t, bytes.Equal(pattern, got))
}

func TestWriteRejectsWrongLength(t *testing.T) {
	r, err := Create(filepath.Join(t.TempDir(), "frame.mmap"), 16)
	require.NoError(t, err)
	defer r.Close()

	err = r.Write(make([]byte, 15))
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestAttachedRegionIsReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.mmap")
	w, err := Create(path, 16)
	require.NoError(t, err)
	defer w.Close()

	rd, err := Attach(path, 16)
	require.NoError(t, err)
	defer rd.Close()
	assert.Error(t, rd.Write(make([]byte, 16)))
}

func TestAttachMissing(t *testing.T) {
	_, err := Attach(filepath.Join(t.TempDir(), "missing.mmap"), 300)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAttachTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.mmap")
	require.NoError(t, os.WriteFile(path, make([]byte, 10), 0o644))
	_, err := Attach(path, 300)
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}

func TestCloseAndRemoveAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.mmap")
	r, err := Create(path, 16)
	require.NoError(t, err)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	require.NoError(t, r.Remove())
	require.NoError(t, r.Remove())
	assert.False(t, Exists(path))
	assert.True(t, errors.Is(r.Write(make([]byte, 16)), ErrClosed))
}

func TestAttachTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.mmap")
	w, err := Create(path, 300)
	require.NoError(t, err)
	defer w.Close()

	_, err = Attach(path, 75)
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}
