package schedule

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Reloader is implemented by Engine.
type Reloader interface {
	Reload() int
}

// Watcher reloads the schedule when the document file changes on disk.
//
// The parent directory is watched rather than the file itself, because editors and
// WriteFileAtomic replace the file by rename, which drops a watch on the old inode.
type Watcher struct {
	path     string
	reloader Reloader
	debounce time.Duration
	log      zerolog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

func NewWatcher(path string, reloader Reloader, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		path:     filepath.Clean(path),
		reloader: reloader,
		debounce: debounce,
		log:      log.With().Str("component", "schedule-watcher").Logger(),
	}
}

// Run blocks until ctx is done or the watcher fails to start.
func (w *Watcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("[Watcher] failed to create %s: %w", dir, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("[Watcher] failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("[Watcher] failed to watch %s: %w", dir, err)
	}
	w.log.Info().Str("path", w.path).Msg("Watching schedule for changes")

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.log.Debug().Str("op", event.Op.String()).Msg("Schedule file event")
			w.schedule()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error().Err(err).Msg("Filesystem watcher error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		n := w.reloader.Reload()
		w.log.Debug().Int("triggers", n).Msg("Schedule reload checked")
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
