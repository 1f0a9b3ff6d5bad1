// Package protocol describes the files a running producer leaves for its consumer.
package protocol

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/abihf/sharedframe/frame"
	"github.com/abihf/sharedframe/utils/pidfile"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Default file names, relative to the working directory both processes share.
const (
	RegionFile = "frame.mmap"
	LockFile   = "frame.lock"
	MetaFile   = "frame.json"
	PidFile    = "frameserver.pid"
)

// Meta is the sidecar a producer publishes next to its region file.
type Meta struct {
	Session  string         `json:"session"`
	Pid      int            `json:"pid"`
	Geometry frame.Geometry `json:"geometry"`
	Region   string         `json:"region"`
	Lock     string         `json:"lock"`
	Started  time.Time      `json:"started"`
}

func NewMeta(g frame.Geometry, region, lock string) *Meta {
	return &Meta{
		Session:  uuid.NewString(),
		Pid:      os.Getpid(),
		Geometry: g,
		Region:   region,
		Lock:     lock,
		Started:  time.Now().UTC(),
	}
}

// Alive reports whether the producer process that wrote m is still running.
func (m *Meta) Alive() bool {
	return pidfile.Alive(m.Pid)
}

func WriteMeta(w io.Writer, m *Meta) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

func ReadMeta(r io.Reader) (*Meta, error) {
	var m Meta
	err := json.NewDecoder(r).Decode(&m)
	return &m, err
}

// WriteMetaFile replaces the file at path atomically so a consumer never decodes a
// half written sidecar.
func WriteMetaFile(path string, m *Meta) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".meta-*")
	if err != nil {
		return errors.Wrap(err, "Can not create meta file")
	}
	defer os.Remove(tmp.Name())

	if err = WriteMeta(tmp, m); err != nil {
		tmp.Close()
		return errors.Wrap(err, "Can not encode meta file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "Can not write meta file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "Can not publish meta file")
}

// ReadMetaFile loads the sidecar at path. The returned error satisfies os.IsNotExist
// when no producer has published one.
func ReadMetaFile(path string) (*Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadMeta(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid meta file %s", path)
	}
	return m, nil
}

func RemoveMetaFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "Can not remove meta file %s", path)
	}
	return nil
}
