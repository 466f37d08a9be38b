package reload

import (
	"fmt"
	"os"
	"time"

	"github.com/gostpanel/console/internal/console/router"
)

// Watcher remembers the size and modification time of a file, normally the
// console binary, and reports when either changes.
type Watcher struct {
	path    string
	size    int64
	modTime time.Time
}

// NewWatcher records the current state of path.
func NewWatcher(path string) (*Watcher, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return &Watcher{path: path, size: info.Size(), modTime: info.ModTime()}, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

// Check returns an error wrapping router.ErrStaleBundle when the file was
// replaced, changed or removed since NewWatcher. A nil Watcher never
// reports a change.
func (w *Watcher) Check() error {
	if w == nil {
		return nil
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("%w: %s is gone: %v", router.ErrStaleBundle, w.path, err)
	}
	if info.Size() != w.size || !info.ModTime().Equal(w.modTime) {
		return fmt.Errorf("%w: %s was updated at %s", router.ErrStaleBundle, w.path, info.ModTime().Format(time.RFC3339))
	}
	return nil
}
