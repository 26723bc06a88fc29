// Package session runs section editor sessions: at most one per section,
// each backed by a View, writing changes back to the host document.
package session

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kobzarvs/scedit/internal/config"
	"github.com/kobzarvs/scedit/internal/logger"
	"github.com/kobzarvs/scedit/internal/markup"
	"github.com/kobzarvs/scedit/internal/novx"
	"github.com/kobzarvs/scedit/internal/textops"
)

const (
	askApply   = "Apply section changes?"
	askUnlock  = "Cannot apply section changes, because the project is locked.\nUnlock and apply changes?"
	askSplit   = "Move the text from the cursor position to the end into a new section?"
	errNoSplit = "Cannot split the section at the cursor position."
)

// Session is an open editor for one section.
type Session struct {
	ID           string
	view         View
	initialWords int
	log          *zap.SugaredLogger
}

func (s *Session) View() View { return s.view }

// Controller owns the open sessions. All methods must be called from the
// same goroutine.
type Controller struct {
	host     Host
	nav      Navigator
	ui       Prompter
	newView  ViewFactory
	state    *StateStore
	project  string
	prefs    config.Preferences
	sessions map[string]*Session
	cancel   func()
}

type Option func(*Controller)

// WithViewFactory sets how views are created for new sessions.
func WithViewFactory(f ViewFactory) Option {
	return func(c *Controller) { c.newView = f }
}

// WithStateStore remembers cursor positions of the project's sections.
func WithStateStore(s *StateStore, project string) Option {
	return func(c *Controller) {
		c.state = s
		c.project = project
	}
}

func WithPreferences(p config.Preferences) Option {
	return func(c *Controller) { c.prefs = p }
}

func NewController(host Host, nav Navigator, ui Prompter, opts ...Option) *Controller {
	c := &Controller{
		host:     host,
		nav:      nav,
		ui:       ui,
		newView:  func(*Session) View { return newMemoryView() },
		prefs:    config.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cancel = host.Subscribe(c.Refresh)
	return c
}

// Session returns the open session of a section.
func (c *Controller) Session(id string) (*Session, bool) {
	s, ok := c.sessions[id]
	return s, ok
}

// Open returns the session of a section, creating it if necessary.
func (c *Controller) Open(id string) (*Session, error) {
	if s, ok := c.sessions[id]; ok {
		s.view.Lift()
		return s, nil
	}
	sc, ok := c.host.Section(id)
	if !ok {
		return nil, &SectionVanishedError{ID: id}
	}
	if sc.Type > 1 {
		return nil, fmt.Errorf("%w: %s", ErrNotEditable, id)
	}
	if c.host.Locked() {
		err := &LockedProjectError{Action: "edit sections"}
		c.ui.ShowInfo(sentence(err.Error()))
		return nil, err
	}

	log := logger.Section(c.project, id)
	text, err := markup.Decode(sc.Content)
	if err != nil {
		// Still editable; validation on apply points at the problem.
		log.Warnw("stored section markup is malformed", "err", err)
		text = strings.ReplaceAll(sc.Content, "</p>", "</p>\n")
	}
	s := &Session{ID: id, initialWords: textops.CountWords(text), log: log}
	s.view = c.newView(s)
	s.view.ApplyPreferences(c.prefs)
	s.view.SetText(text)
	s.view.SetCursor(c.savedCursor(id, text))
	s.view.SetTitle(fmt.Sprintf("%s - %s, Section ID %s", sc.Title, c.host.ProjectTitle(), id))
	c.sessions[id] = s
	if c.state != nil {
		c.state.SetLastSection(c.project, id)
	}
	c.showWordCount(s)
	s.view.Lift()
	log.Infow("section opened", "words", s.initialWords)
	return s, nil
}

func (c *Controller) savedCursor(id, text string) int {
	if c.state != nil {
		if st, ok := c.state.Section(SectionKey(c.project, id)); ok {
			return clamp(st.Cursor, 0, utf8.RuneCountInString(text))
		}
	}
	if strings.HasPrefix(text, "<p>") {
		return len("<p>")
	}
	return 0
}

// RequestClose closes a session after offering to apply its changes. The
// session stays open when the changes are invalid or cannot be applied.
func (c *Controller) RequestClose(id string) error {
	s, err := c.session(id)
	if err != nil {
		return err
	}
	if err := c.applyAfterAsking(s); err != nil {
		var gone *SectionVanishedError
		if errors.As(err, &gone) {
			return nil
		}
		return err
	}
	c.release(s)
	return nil
}

// ApplyNow writes the session's text to the host if it changed.
func (c *Controller) ApplyNow(id string) error {
	s, err := c.session(id)
	if err != nil {
		return err
	}
	text := s.view.Text()
	if err := markup.CheckValidity(text); err != nil {
		c.reportInvalid(s, err)
		return err
	}
	sc, ok := c.host.Section(id)
	if !ok {
		c.forceClose(s)
		return &SectionVanishedError{ID: id}
	}
	encoded := markup.Encode(text)
	if sameContent(encoded, sc.Content) {
		return nil
	}
	if err := c.transfer(s, encoded); err != nil {
		return err
	}
	s.view.ShowStatus("Changes applied.")
	return nil
}

func (c *Controller) NavigateNext(id string) (string, error) {
	return c.navigate(id, c.nav.NextSection)
}

func (c *Controller) NavigatePrev(id string) (string, error) {
	return c.navigate(id, c.nav.PrevSection)
}

func (c *Controller) navigate(id string, step func(string) string) (string, error) {
	s, err := c.session(id)
	if err != nil {
		return "", err
	}
	target := ""
	for next := step(id); next != ""; next = step(next) {
		if sc, ok := c.host.Section(next); ok && sc.Type <= 1 {
			target = next
			break
		}
	}
	if target == "" {
		s.view.ShowStatus("No further section.")
		return "", ErrNoNeighbor
	}
	if err := c.switchTo(s, target); err != nil {
		return "", err
	}
	return target, nil
}

// CreateSection adds a section after id and moves the editor there.
func (c *Controller) CreateSection(id string) (string, error) {
	s, err := c.session(id)
	if err != nil {
		return "", err
	}
	if c.host.Locked() {
		return "", c.refuseLocked(s, "create sections")
	}
	sc, ok := c.host.Section(id)
	if !ok {
		c.forceClose(s)
		return "", &SectionVanishedError{ID: id}
	}
	newID, err := c.host.AddSectionAfter(id, novx.SectionTemplate{
		Type:   sc.Type,
		Scene:  alternateScene(sc.Scene),
		Status: 1,
	})
	if err != nil {
		c.ui.ShowError(err.Error())
		return "", err
	}
	return newID, c.switchTo(s, newID)
}

// SplitSection moves the text from offset to the end into a new section
// after id and moves the editor there.
func (c *Controller) SplitSection(id string, offset int) (string, error) {
	s, err := c.session(id)
	if err != nil {
		return "", err
	}
	text := s.view.Text()
	if err := markup.CheckValidity(text); err != nil {
		c.reportInvalid(s, err)
		return "", err
	}
	if c.host.Locked() {
		return "", c.refuseLocked(s, "split the section")
	}
	halves, err := textops.SplitAt(text, offset)
	if err != nil {
		s.log.Debugw("split rejected", "offset", offset, "err", err)
		c.ui.ShowError(errNoSplit)
		s.view.Lift()
		return "", err
	}
	if !c.ui.AskYesNo(askSplit) {
		s.view.Lift()
		return "", ErrCancelled
	}
	sc, ok := c.host.Section(id)
	if !ok {
		c.forceClose(s)
		return "", &SectionVanishedError{ID: id}
	}
	newID, err := c.host.AddSectionAfter(id, novx.SectionTemplate{
		Type:         sc.Type,
		Scene:        alternateScene(sc.Scene),
		Status:       sc.Status,
		AppendToPrev: true,
	})
	if err != nil {
		c.ui.ShowError(err.Error())
		return "", err
	}
	if err := c.host.SetContent(newID, halves.Tail); err != nil {
		return "", err
	}
	if len(sc.Characters) > 0 {
		if err := c.host.SetCharacters(newID, sc.Characters[:1]); err != nil {
			return "", err
		}
	}
	head, err := markup.Decode(halves.Head)
	if err != nil {
		return "", err
	}
	s.view.SetText(head)
	if err := c.host.SetContent(id, halves.Head); err != nil {
		return "", err
	}
	s.log.Infow("section split", "new", newID, "offset", offset)
	return newID, c.switchTo(s, newID)
}

// Refresh force-closes sessions whose section is gone from the host. It is
// subscribed to the host's change notifications.
func (c *Controller) Refresh() {
	for _, id := range c.OpenIDs() {
		if _, ok := c.host.Section(id); !ok {
			c.forceClose(c.sessions[id])
		}
	}
}

// ToggleFormat applies textops.ToggleFormat to the session's selection, or
// to its cursor when nothing is selected.
func (c *Controller) ToggleFormat(id, tag string) error {
	s, err := c.session(id)
	if err != nil {
		return err
	}
	sel, ok := s.view.Selection()
	if !ok {
		cursor := s.view.Cursor()
		sel = textops.Range{Start: cursor, End: cursor}
	}
	text, sel := textops.ToggleFormat(s.view.Text(), sel, tag)
	s.view.SetText(text)
	if sel.Empty() {
		s.view.SetCursor(sel.Start)
	} else {
		s.view.SetSelection(sel)
	}
	c.liveWordCount(s)
	return nil
}

// NewParagraph splits the paragraph at the cursor.
func (c *Controller) NewParagraph(id string) error {
	s, err := c.session(id)
	if err != nil {
		return err
	}
	text, cursor := textops.NewParagraph(s.view.Text(), s.view.Cursor())
	s.view.SetText(text)
	s.view.SetCursor(cursor)
	c.liveWordCount(s)
	return nil
}

func (c *Controller) WordCount(id string) (WordCount, error) {
	s, err := c.session(id)
	if err != nil {
		return WordCount{}, err
	}
	return WordCount{Initial: s.initialWords, Current: textops.CountWords(s.view.Text())}, nil
}

// ShowWordCount puts the word count into the session's status line.
func (c *Controller) ShowWordCount(id string) error {
	s, err := c.session(id)
	if err != nil {
		return err
	}
	c.showWordCount(s)
	return nil
}

func (c *Controller) Preferences() config.Preferences { return c.prefs }

// SetPreferences replaces the preferences and pushes them to every open
// view.
func (c *Controller) SetPreferences(p config.Preferences) {
	c.prefs = p
	for _, id := range c.OpenIDs() {
		c.sessions[id].view.ApplyPreferences(p)
	}
}

func (c *Controller) CycleColorMode() {
	c.SetPreferences(c.prefs.NextColorMode())
}

// CloseAll requests every session to close. Sessions that refuse stay open;
// their errors are combined.
func (c *Controller) CloseAll() error {
	var errs error
	for _, id := range c.OpenIDs() {
		errs = multierr.Append(errs, c.RequestClose(id))
	}
	return errs
}

// Stop unsubscribes from the host.
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// OpenIDs lists the sections with an open session, sorted.
func (c *Controller) OpenIDs() []string {
	ids := make([]string, 0, len(c.sessions))
	for id := range c.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Controller) session(id string) (*Session, error) {
	s, ok := c.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, id)
	}
	return s, nil
}

// applyAfterAsking offers to apply pending changes. A nil result means the
// caller may leave the section.
func (c *Controller) applyAfterAsking(s *Session) error {
	sc, ok := c.host.Section(s.ID)
	if !ok {
		c.forceClose(s)
		return &SectionVanishedError{ID: s.ID}
	}
	text := markup.Encode(s.view.Text())
	if sameContent(text, sc.Content) {
		return nil
	}
	if !c.ui.AskYesNo(askApply) {
		return nil
	}
	if err := markup.CheckValidity(s.view.Text()); err != nil {
		c.reportInvalid(s, err)
		return err
	}
	return c.transfer(s, text)
}

func (c *Controller) transfer(s *Session, text string) error {
	if c.host.Locked() {
		if !c.ui.AskYesNo(askUnlock) {
			s.view.Lift()
			return &LockedProjectError{Action: "apply section changes"}
		}
		if err := c.host.Unlock(); err != nil {
			c.ui.ShowError(err.Error())
			return err
		}
	}
	if _, ok := c.host.Section(s.ID); !ok {
		c.forceClose(s)
		return &SectionVanishedError{ID: s.ID}
	}
	if err := c.host.SetContent(s.ID, text); err != nil {
		c.ui.ShowError(err.Error())
		return err
	}
	s.log.Infow("section changes applied")
	return nil
}

// switchTo replaces s with a session for target. Nothing is closed when
// target cannot be opened.
func (c *Controller) switchTo(s *Session, target string) error {
	if _, open := c.sessions[target]; !open && c.host.Locked() {
		return c.refuseLocked(s, "edit sections")
	}
	if err := c.applyAfterAsking(s); err != nil {
		var gone *SectionVanishedError
		if !errors.As(err, &gone) {
			return err
		}
	}
	c.nav.GoTo(target)
	if _, ok := c.sessions[s.ID]; ok {
		c.release(s)
	}
	_, err := c.Open(target)
	return err
}

func (c *Controller) refuseLocked(s *Session, action string) error {
	err := &LockedProjectError{Action: action}
	c.ui.ShowInfo(sentence(err.Error()))
	s.view.Lift()
	return err
}

// reportInvalid shows a validation error and moves the cursor to it.
func (c *Controller) reportInvalid(s *Session, err error) {
	c.ui.ShowError(err.Error())
	var me *markup.MalformedMarkupError
	if errors.As(err, &me) {
		s.view.SetCursor(markup.Offset(s.view.Text(), me.Line, me.Column))
	}
	s.view.Lift()
}

func (c *Controller) release(s *Session) {
	if c.state != nil {
		c.state.SetSection(SectionKey(c.project, s.ID), SectionState{Cursor: s.view.Cursor()})
	}
	delete(c.sessions, s.ID)
	s.view.Close()
	s.log.Infow("section closed")
}

func (c *Controller) forceClose(s *Session) {
	s.log.Warnw("section vanished, closing its editor")
	c.release(s)
}

func (c *Controller) showWordCount(s *Session) {
	wc := WordCount{Initial: s.initialWords, Current: textops.CountWords(s.view.Text())}
	s.view.ShowStatus(wc.String())
}

func (c *Controller) liveWordCount(s *Session) {
	if c.prefs.Options.LiveWordCount {
		c.showWordCount(s)
	}
}

// alternateScene flips between action (1) and reaction (2) scenes.
func alternateScene(scene int) int {
	switch scene {
	case 1:
		return 2
	case 2:
		return 1
	}
	return scene
}

// sameContent compares stored markup, treating an empty paragraph as empty.
func sameContent(a, b string) bool {
	if a == b {
		return true
	}
	empty := func(s string) bool { return s == "" || s == "<p></p>" }
	return empty(a) && empty(b)
}
