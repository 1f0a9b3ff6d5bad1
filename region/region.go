// Package region manages the file-backed memory map that holds exactly one frame.
//
// The region has no header. Its size is agreed out of band and never changes after
// creation. Nothing in the operating system prevents concurrent access; callers
// coordinate through the lock package.
package region

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var (
	ErrNotFound     = errors.New("shared region not found")
	ErrSizeMismatch = errors.New("shared region size mismatch")
	ErrClosed       = errors.New("shared region closed")
)

// Region is one mapping of the shared frame file.
type Region struct {
	path     string
	size     int
	writable bool

	mu   sync.Mutex
	file *os.File
	data []byte
}

// Create makes (or truncates) the file at path, zero-fills it to size bytes and maps it
// read-write.
func Create(path string, size int) (*Region, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid region size %d", size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return nil, errors.Wrapf(err, "Can not create region file %s", path)
	}
	if err = f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "Can not size region file %s", path)
	}
	return mapFile(f, path, size, true)
}

// Attach maps an existing region file read-only. It fails with ErrNotFound when the file
// does not exist and ErrSizeMismatch when its size is not exactly size.
func Attach(path string, size int) (*Region, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid region size %d", size)
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrNotFound, path)
		}
		return nil, errors.Wrapf(err, "Can not open region file %s", path)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "Can not stat region file %s", path)
	}
	if st.Size() != int64(size) {
		f.Close()
		return nil, errors.Wrapf(ErrSizeMismatch, "%s is %d bytes, want %d", path, st.Size(), size)
	}
	return mapFile(f, path, size, false)
}

func mapFile(f *os.File, path string, size int, writable bool) (*Region, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "Can not map region file %s", path)
	}
	return &Region{path: path, size: size, writable: writable, file: f, data: data}, nil
}

func (r *Region) Path() string { return r.path }

func (r *Region) Size() int { return r.size }

// Write copies p into the region at offset 0. p must be exactly Size() bytes.
func (r *Region) Write(p []byte) error {
	if len(p) != r.size {
		return errors.Wrapf(ErrSizeMismatch, "write of %d bytes into %d byte region", len(p), r.size)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return ErrClosed
	}
	if !r.writable {
		return errors.New("shared region is attached read-only")
	}
	copy(r.data, p)
	return nil
}

// ReadInto copies the whole region into dst, which must be exactly Size() bytes. The
// copy is owned by the caller and does not change when the producer writes again.
func (r *Region) ReadInto(dst []byte) error {
	if len(dst) != r.size {
		return errors.Wrapf(ErrSizeMismatch, "read of %d bytes from %d byte region", len(dst), r.size)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return ErrClosed
	}
	copy(dst, r.data)
	return nil
}

// Read returns a fresh copy of the region.
func (r *Region) Read() ([]byte, error) {
	buf := make([]byte, r.size)
	if err := r.ReadInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Close unmaps the region and closes the file. Calling it more than once is a no-op.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return errors.Wrapf(err, "Can not close region %s", r.path)
}

// Remove deletes the backing file. A file that is already gone is not an error.
func (r *Region) Remove() error {
	return Remove(r.path)
}

// Exists reports whether a region file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "Can not remove region file %s", path)
	}
	return nil
}
