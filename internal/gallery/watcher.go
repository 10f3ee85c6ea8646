package gallery

import (
	"time"

	"gallery-server/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes folder-mode sources and fires a callback when their
// contents change. Events are debounced so a burst of writes (an upload of
// many screenshots) produces a single notification.
type Watcher struct {
	fs       *fsnotify.Watcher
	onChange func()
	debounce time.Duration
	done     chan struct{}
}

// NewWatcher creates a watcher that invokes onChange after folder activity
// settles. Call Add for each folder, then Start.
func NewWatcher(onChange func()) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fs:       fs,
		onChange: onChange,
		debounce: 2 * time.Second,
		done:     make(chan struct{}),
	}, nil
}

// Add registers a folder for watching.
func (w *Watcher) Add(folder string) error {
	return w.fs.Add(folder)
}

// Start begins delivering change notifications until Stop is called.
func (w *Watcher) Start() {
	go w.run()
}

func (w *Watcher) run() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logging.Debug("Watcher: %s %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				// The timer may have fired between selects; drain the
				// stale tick so Reset starts a clean debounce window.
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			logging.Debug("Watcher: folder contents changed")
			w.onChange()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logging.Warn("Watcher error: %v", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// Stop ends watching and releases the underlying notifier.
func (w *Watcher) Stop() {
	close(w.done)
	if err := w.fs.Close(); err != nil {
		logging.Warn("Watcher close error: %v", err)
	}
}
