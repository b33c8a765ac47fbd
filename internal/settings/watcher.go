package settings

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store keeps the currently committed settings and hands out copies.
// A reload or commit only affects runs started after it.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	current Settings
}

// NewStore loads the blob at path into a Store. A missing file starts
// from defaults.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, logger: logger, current: s}, nil
}

// Current returns a copy of the committed settings.
func (st *Store) Current() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Path returns the settings file location.
func (st *Store) Path() string {
	return st.path
}

// Commit validates s, persists it and makes it current.
func (st *Store) Commit(s Settings) error {
	if err := Save(st.path, s); err != nil {
		return err
	}
	st.mu.Lock()
	st.current = s
	st.mu.Unlock()
	if st.logger != nil {
		st.logger.Info("settings committed", "path", st.path)
	}
	return nil
}

// Watch reloads the blob when the file changes on disk, so edits made
// outside the agent apply to subsequent runs. Events are debounced:
// editors tend to emit write bursts.
func (st *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(st.path)); err != nil {
		return err
	}

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return nil

		case <-reloadCh:
			st.reload()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(st.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if st.logger != nil {
				st.logger.Warn("settings watcher error", "error", err)
			}
		}
	}
}

func (st *Store) reload() {
	s, err := Load(st.path)
	if err != nil {
		if st.logger != nil {
			st.logger.Warn("settings reload failed, keeping previous", "error", err)
		}
		return
	}
	st.mu.Lock()
	st.current = s
	st.mu.Unlock()
	if st.logger != nil {
		st.logger.Info("settings reloaded", "path", st.path)
	}
}
