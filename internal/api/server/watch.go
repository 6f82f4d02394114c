package server

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/rennerdo30/proxycfg/internal/logging"
)

// FileWatcher calls onChange whenever a file is written, created, renamed
// or removed. The parent directory is watched so editors that replace the
// file are noticed too.
type FileWatcher struct {
	path     string
	onChange func()
	watcher  *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
}

// WatchFile starts watching path. The directory must exist; the file need
// not.
func WatchFile(path string, onChange func()) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	fw := &FileWatcher{
		path:     path,
		onChange: onChange,
		watcher:  w,
		done:     make(chan struct{}),
	}
	fw.wg.Add(1)
	go fw.loop()
	return fw, nil
}

func (fw *FileWatcher) loop() {
	defer fw.wg.Done()
	log := logging.WithComponent("watcher").With("path", fw.path)

	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("proxy file changed", "op", event.Op.String())
			fw.onChange()
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("file watcher error", "error", err)
		}
	}
}

// Close stops the watcher and waits for the event loop to exit.
func (fw *FileWatcher) Close() error {
	close(fw.done)
	err := fw.watcher.Close()
	fw.wg.Wait()
	return err
}
