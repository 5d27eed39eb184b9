package session

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// optionsDebounce coalesces the bursts of events a single save produces.
const optionsDebounce = 500 * time.Millisecond

// optionsWatcher calls onChange after the option blob has been written,
// created, renamed or removed. The directory is watched rather than the
// file so the watch survives the blob being replaced or created.
type optionsWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func()
	done     chan struct{}

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

func watchOptions(path string, onChange func()) (*optionsWatcher, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	w := &optionsWatcher{
		watcher:  fw,
		path:     filepath.Clean(path),
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *optionsWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("session: options watcher error: %v", err)
		}
	}
}

func (w *optionsWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(optionsDebounce, func() {
		w.mu.Lock()
		closed := w.closed
		w.mu.Unlock()
		if closed {
			return
		}
		log.Printf("session: options changed, reloading %s", w.path)
		w.onChange()
	})
}

// Close stops watching. A reload already running is not waited for.
func (w *optionsWatcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.watcher.Close()
	<-w.done
}
