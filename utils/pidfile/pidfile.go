// Package pidfile keeps a second producer from starting in the same directory.
package pidfile

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var ErrAlreadyRunning = errors.New("already running")

// Alive reports whether a process with the given pid exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

// Running returns the pid recorded at path if that process is still alive.
func Running(path string) (int, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Can not read pid file", "path", path, "error", err)
		}
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		slog.Warn("Invalid existing pid file", "path", path, "error", err)
		return 0, false
	}
	return pid, Alive(pid)
}

// Acquire writes the current pid to path, failing with ErrAlreadyRunning when a live
// process already owns it. A stale file is overwritten.
func Acquire(path string) error {
	if pid, ok := Running(path); ok {
		return errors.Wrapf(ErrAlreadyRunning, "pid %d owns %s", pid, path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Can not write pid file %s", path)
	}
	fmt.Fprintf(f, "%d", os.Getpid())
	return f.Close()
}

// Release removes path if it still names the current process.
func Release(path string) error {
	if pid, _ := Running(path); pid != os.Getpid() {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "Can not remove pid file %s", path)
	}
	return nil
}
