package credstore

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/MichalPlaza/meeting-synthesis-sub001/internal/logging"
)

// Watch reports external changes to the credential file, the client-side
// analog of another tab logging in or out. Each change (write, rename,
// removal) delivers one signal on the returned channel. The watcher
// stops when ctx is canceled and the channel is closed.
//
// Lock files and temp files from atomic writes are filtered out.
func (s *Store) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	changes := make(chan struct{}, 1)
	log := logging.Component("credstore")

	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !s.relevant(ev.Name) {
					continue
				}
				log.Debug().Str("op", ev.Op.String()).Msg("credential file changed")
				select {
				case changes <- struct{}{}:
				default:
					// A signal is already pending; coalesce.
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("credential watcher error")
			}
		}
	}()

	return changes, nil
}

// relevant filters watcher events down to the credential file itself.
func (s *Store) relevant(name string) bool {
	if strings.HasSuffix(name, ".lock") || strings.HasSuffix(name, ".tmp") {
		return false
	}
	return filepath.Clean(name) == filepath.Clean(s.path)
}
