package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/multierr"

	"github.com/kobzarvs/scedit/internal/config"
	"github.com/kobzarvs/scedit/internal/editor"
	"github.com/kobzarvs/scedit/internal/highlight"
	"github.com/kobzarvs/scedit/internal/logger"
	"github.com/kobzarvs/scedit/internal/novx"
	"github.com/kobzarvs/scedit/internal/session"
)

// Options select what the editor opens.
type Options struct {
	Project string
	Section string
	Debug   bool
}

// App is the top-level runtime for scedit.
type App struct {
	opts Options
}

// reloadRequest is posted by the project watcher.
type reloadRequest struct{}

func New(opts Options) *App {
	return &App{opts: opts}
}

func (a *App) Run() (err error) {
	runtime.LockOSThread()
	if err := logger.Init(a.opts.Debug); err != nil {
		return fmt.Errorf("starting log: %w", err)
	}
	defer logger.Close()

	// A file that did not load is left alone on exit.
	prefs, err := config.Load()
	savePrefs := err == nil
	if err != nil {
		logger.Warn("preferences not loaded, using defaults", "err", err)
	}

	project, err := loadProject(a.opts.Project)
	if err != nil {
		return err
	}

	states, err := session.NewStateStore()
	if err != nil {
		logger.Warn("editor state not available", "err", err)
	}

	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()

	hl, err := highlight.New()
	if err != nil {
		logger.Warn("highlighting disabled", "err", err)
	} else {
		defer hl.Close()
	}

	desk := editor.NewDesk(s, hl)
	ctrl := session.NewController(project, project, desk,
		session.WithViewFactory(desk.NewWindow),
		session.WithStateStore(states, project.Path),
		session.WithPreferences(prefs),
	)
	desk.SetActions(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := project.Watch(ctx, func() {
		_ = s.PostEvent(tcell.NewEventInterrupt(reloadRequest{}))
	}); err != nil {
		logger.Warn("project changes on disk will not be noticed", "err", err)
	}

	defer func() {
		err = multierr.Append(err, shutdown(ctrl, project, states, savePrefs))
	}()

	if _, err := ctrl.Open(startSection(project, states, a.opts.Section)); err != nil {
		return err
	}

	desk.Render()
	for !desk.Empty() {
		switch ev := s.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventKey:
			desk.HandleKey(ev)
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventInterrupt:
			if _, ok := ev.Data().(reloadRequest); ok {
				if _, err := project.Reload(); err != nil {
					logger.Warn("project reload failed", "path", project.Path, "err", err)
				}
			}
		}
		desk.Render()
	}
	return nil
}

// loadProject opens path, or starts a new project there when no file exists
// yet. The file is written on exit.
func loadProject(path string) (*novx.Project, error) {
	p, err := novx.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		p = novx.New(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		p.Path = path
		logger.Info("starting a new project", "path", path)
		return p, nil
	}
	return p, err
}

// startSection picks the section to open: the requested one, else the one
// edited last, else the first editable section. A project without one gets
// a new section.
func startSection(p *novx.Project, states *session.StateStore, requested string) string {
	if requested != "" {
		return requested
	}
	if states != nil {
		if id := states.LastSection(p.Path); id != "" {
			if sc, ok := p.Section(id); ok && sc.Type <= 1 {
				return id
			}
		}
	}
	for _, id := range p.SectionIDs() {
		if sc, _ := p.Section(id); sc.Type <= 1 {
			return id
		}
	}
	return p.AppendSection(novx.SectionTemplate{Title: "New Section", Status: 1}, "")
}

func shutdown(ctrl *session.Controller, p *novx.Project, states *session.StateStore, savePrefs bool) error {
	errs := ctrl.CloseAll()
	ctrl.Stop()
	if p.Modified() {
		errs = multierr.Append(errs, p.Save())
	}
	if savePrefs {
		errs = multierr.Append(errs, config.Save(ctrl.Preferences()))
	}
	if states != nil {
		errs = multierr.Append(errs, states.Stop())
	}
	if errs != nil {
		logger.Error("shutdown incomplete", "err", errs)
	}
	return errs
}
