package resource

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reports asset folders whose files changed on disk, so their
// resources can be loaded again.
type Watcher struct {
	watcher *fsnotify.Watcher
	folders map[string]string // disk path to asset folder name
	log     logrus.FieldLogger
	notify  func()

	mu      sync.Mutex
	pending []string
	done    chan struct{}
}

// Watch watches the named folders of dir. notify, when not nil, is
// called from the watching goroutine after a change is queued.
// Folders that do not exist on disk are skipped.
func Watch(dir *Dir, folders []string, log logrus.FieldLogger, notify func()) (*Watcher, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		folders: make(map[string]string),
		log:     log,
		notify:  notify,
		done:    make(chan struct{}),
	}
	for _, folder := range folders {
		p, ok := dir.ResolveFolder(folder)
		if !ok {
			log.WithField("folder", folder).Warn("folder not on disk, not watched")
			continue
		}
		if err := fw.Add(p); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", folder, err)
		}
		w.folders[filepath.Clean(p)] = folder
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			folder, ok := w.folders[filepath.Dir(filepath.Clean(event.Name))]
			if !ok {
				continue
			}
			if w.queue(folder) {
				w.log.WithFields(logrus.Fields{
					"folder": folder,
					"file":   filepath.Base(event.Name),
				}).Debug("asset changed")
				if w.notify != nil {
					w.notify()
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Error("asset watcher")
		}
	}
}

// queue adds folder unless it is already pending.
func (w *Watcher) queue(folder string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range w.pending {
		if f == folder {
			return false
		}
	}
	w.pending = append(w.pending, folder)
	return true
}

// Changed returns the folders changed since the previous call, each
// once, in the order they first changed.
func (w *Watcher) Changed() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := w.pending
	w.pending = nil
	return changed
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
