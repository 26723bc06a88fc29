package novx

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/blake3"

	"github.com/kobzarvs/scedit/internal/logger"
)

// Reload rereads the project file if its content differs from what was last
// loaded or written, replaces the model and notifies subscribers. It reports
// whether the model changed.
func (p *Project) Reload() (bool, error) {
	if p.Path == "" {
		return false, ErrNoPath
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return false, err
	}
	_, lockErr := os.Stat(lockPath(p.Path))
	locked := lockErr == nil

	sum := blake3.Sum256(data)
	if sum == p.digest {
		if locked != p.locked {
			p.locked = locked
			logger.Project(p.Path).Infow("project lock changed", "locked", locked)
		}
		return false, nil
	}
	np, err := Parse(bytes.NewReader(data))
	if err != nil {
		return false, err
	}
	p.Title = np.Title
	p.Chapters = np.Chapters
	p.Sections = np.Sections
	p.doc = np.doc
	p.digest = sum
	p.locked = locked
	p.modified = false
	if _, ok := p.Sections[p.selected]; !ok {
		p.selected = ""
	}
	logger.Project(p.Path).Infow("project reloaded", "sections", len(p.Sections))
	p.notify()
	return true, nil
}

// Watch calls notify from a background goroutine whenever the project file
// or its lock file changes on disk, until ctx is done. notify must hand the
// work over to the event loop; Reload is not safe to call from it directly.
func (p *Project) Watch(ctx context.Context, notify func()) error {
	if p.Path == "" {
		return ErrNoPath
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(p.Path)); err != nil {
		w.Close()
		return err
	}
	target := filepath.Clean(p.Path)
	lock := lockPath(target)

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				name := filepath.Clean(ev.Name)
				if name != target && name != lock {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					logger.Debug("project file event", "name", ev.Name, "op", ev.Op.String())
					notify()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if !errors.Is(err, fs.ErrClosed) {
					logger.Warn("project watcher error", "err", err)
				}
			}
		}
	}()
	return nil
}
