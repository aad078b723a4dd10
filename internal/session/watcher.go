package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher keeps a Session in step with its token file, so a login or
// logout from another process takes effect here too.
type Watcher struct {
	fsw     *fsnotify.Watcher
	session *Session
	path    string
}

// NewWatcher starts watching the directory of the session's token file.
// The directory is created if missing.
func NewWatcher(s *Session) (*Watcher, error) {
	path, err := filepath.Abs(s.store.Path())
	if err != nil {
		return nil, err
	}
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: the file itself is replaced on every save.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{fsw: fsw, session: s, path: path}, nil
}

// Run applies file changes until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.session.logger.Warn("token watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if w.session.LoggedIn() {
			w.session.setToken("")
			w.session.logger.Info("token removed externally, session logged out")
		}
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		tok, err := w.session.store.Load()
		if errors.Is(err, ErrNoToken) {
			w.session.setToken("")
			return
		}
		if err != nil {
			// Partial write; the next event will carry the full file.
			w.session.logger.Debug("token reload failed", zap.Error(err))
			return
		}
		if tok != w.session.Token() {
			w.session.setToken(tok)
			w.session.logger.Info("token reloaded from disk")
		}
	}
}
