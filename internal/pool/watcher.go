package pool

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher invalidates the readiness flag when credential files or used
// markers appear, change or disappear, so the next provisioning request
// reloads the pool instead of trusting a stale one.
type Watcher struct {
	dir       string
	readiness *Readiness
}

// NewWatcher builds a watcher for the password directory.
func NewWatcher(dir string, readiness *Readiness) *Watcher {
	return &Watcher{dir: dir, readiness: readiness}
}

// Start begins watching until ctx is cancelled. It returns an error only when
// the watch cannot be established; runtime watch errors are logged.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}
	log.WithField("dir", w.dir).Info("password directory watcher started")

	go func() {
		defer watcher.Close()

		// Debounce so a burst of file churn (a proxy restart rewriting the
		// whole directory) triggers a single invalidation.
		var debounce *time.Timer
		const debounceDelay = 100 * time.Millisecond

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isPoolEntry(event.Name) {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, func() {
					w.readiness.Invalidate()
					log.WithField("trigger", event.Name).Debug("credential pool invalidated by directory change")
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("password directory watcher error")

			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			}
		}
	}()
	return nil
}

func isPoolEntry(name string) bool {
	return strings.HasSuffix(name, credentialExt) || strings.HasSuffix(name, usedMarkerExt)
}
