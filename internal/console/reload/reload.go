// Package reload restarts the console process and notices when the binary
// it was started from has been replaced.
package reload

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// Exec replaces the running process with a fresh copy of the same binary,
// keeping its arguments and environment.
type Exec struct {
	Path   string
	Args   []string
	Env    []string
	Logger zerolog.Logger
}

// NewExec returns an Exec for the current process.
func NewExec(logger zerolog.Logger) (*Exec, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	path, err = filepath.EvalSymlinks(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable path: %w", err)
	}

	return &Exec{
		Path:   path,
		Args:   os.Args,
		Env:    os.Environ(),
		Logger: logger,
	}, nil
}

// Reload does not return on success.
func (e *Exec) Reload() error {
	e.Logger.Info().Str("path", e.Path).Msg("Re-executing console")
	if err := execFn(e.Path, e.Args, e.Env); err != nil {
		return fmt.Errorf("failed to re-execute %s: %w", e.Path, err)
	}
	return nil
}

// Deferred records a reload request and leaves the actual restart to its
// owner. The interactive shell uses it so the terminal is restored before
// the process is replaced.
type Deferred struct {
	mu      sync.Mutex
	pending bool
	notify  func()
}

// NewDeferred returns a Deferred that calls notify, if set, on the first
// request.
func NewDeferred(notify func()) *Deferred {
	return &Deferred{notify: notify}
}

func (d *Deferred) Reload() error {
	d.mu.Lock()
	first := !d.pending
	d.pending = true
	notify := d.notify
	d.mu.Unlock()

	if first && notify != nil {
		notify()
	}
	return nil
}

// Pending reports whether a reload was requested.
func (d *Deferred) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// SetNotify replaces the callback run on the first request.
func (d *Deferred) SetNotify(notify func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notify = notify
}
