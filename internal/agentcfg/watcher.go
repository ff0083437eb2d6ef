package agentcfg

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch starts a filesystem watcher on the agents directory and reloads the
// registry whenever profile files change. It returns without error if the
// directory does not exist; the registry then keeps serving fallbacks.
// Close stops the watcher.
func (r *Registry) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(r.dir); err != nil {
		// Nothing to watch; profiles may be created later via init.
		watcher.Close()
		return nil
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.watchDone = done
	r.mu.Unlock()

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					r.Load()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Watch errors are non-fatal; the registry keeps its
				// last good snapshot.
			case <-done:
				return
			}
		}
	}()

	return nil
}

// Close stops the profile watcher if one is running.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watchDone != nil {
		close(r.watchDone)
		r.watchDone = nil
	}
}
