// Package novx reads and writes novelibre .novx project files and serves as
// the host document of the section editor.
package novx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/zeebo/blake3"

	"github.com/kobzarvs/scedit/internal/logger"
	"github.com/kobzarvs/scedit/internal/markup"
)

var (
	ErrNotNovx        = errors.New("not a novx project")
	ErrUnknownSection = errors.New("unknown section")
	ErrDuplicateID    = errors.New("duplicate section id")
	ErrNoPath         = errors.New("project has no file path")
)

// Section is one narrative unit of the novel. Content is canonical markup.
type Section struct {
	ID           string
	Title        string
	Content      string
	Type         int
	Scene        int
	Status       int
	AppendToPrev bool
	Characters   []string

	node *xmlquery.Node
}

type Chapter struct {
	ID       string
	Title    string
	Sections []string

	node *xmlquery.Node
}

// SectionTemplate holds the metadata of a section created from another.
type SectionTemplate struct {
	Title        string
	Type         int
	Scene        int
	Status       int
	AppendToPrev bool
}

type listener struct {
	id int
	fn func()
}

// Project is an in-memory novx project. It is not safe for concurrent use;
// the editor drives it from its event loop.
type Project struct {
	Path     string
	Title    string
	Chapters []*Chapter
	Sections map[string]*Section

	doc       *xmlquery.Node
	locked    bool
	modified  bool
	selected  string
	digest    [32]byte
	listeners []listener
	nextID    int
}

// New returns an empty project with one chapter and no file behind it.
func New(title string) *Project {
	return &Project{
		Title:    title,
		Chapters: []*Chapter{{ID: "ch1", Title: "Chapter 1"}},
		Sections: make(map[string]*Section),
	}
}

func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	p.digest = blake3.Sum256(data)
	if _, err := os.Stat(lockPath(path)); err == nil {
		p.locked = true
	}
	logger.Info("project loaded", "path", path, "sections", len(p.Sections), "locked", p.locked)
	return p, nil
}

func Parse(r io.Reader) (*Project, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, err
	}
	root := xmlquery.FindOne(doc, "/novx")
	if root == nil {
		return nil, ErrNotNovx
	}
	p := &Project{Sections: make(map[string]*Section), doc: doc}
	if t := xmlquery.FindOne(root, "PROJECT/Title"); t != nil {
		p.Title = t.InnerText()
	}
	for _, chNode := range xmlquery.Find(root, "CHAPTERS/CHAPTER") {
		ch := &Chapter{ID: chNode.SelectAttr("id"), node: chNode}
		if t := xmlquery.FindOne(chNode, "Title"); t != nil {
			ch.Title = t.InnerText()
		}
		for _, scNode := range xmlquery.Find(chNode, "SECTION") {
			sc := parseSection(scNode)
			if sc.ID == "" {
				continue
			}
			if _, ok := p.Sections[sc.ID]; ok {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateID, sc.ID)
			}
			p.Sections[sc.ID] = sc
			ch.Sections = append(ch.Sections, sc.ID)
		}
		p.Chapters = append(p.Chapters, ch)
	}
	return p, nil
}

func parseSection(n *xmlquery.Node) *Section {
	sc := &Section{
		ID:           n.SelectAttr("id"),
		Type:         intAttr(n, "type", 0),
		Scene:        intAttr(n, "scene", 0),
		Status:       intAttr(n, "status", 1),
		AppendToPrev: n.SelectAttr("append") == "1",
		node:         n,
	}
	if t := xmlquery.FindOne(n, "Title"); t != nil {
		sc.Title = t.InnerText()
	}
	if c := xmlquery.FindOne(n, "Characters"); c != nil {
		sc.Characters = strings.Fields(c.SelectAttr("ids"))
	}
	if c := xmlquery.FindOne(n, "Content"); c != nil {
		var b bytes.Buffer
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			writeNode(&b, child, nil)
		}
		sc.Content = markup.Encode(b.String())
	}
	return sc
}

func intAttr(n *xmlquery.Node, name string, fallback int) int {
	v := n.SelectAttr(name)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("invalid integer attribute", "element", n.Data, "attr", name, "value", v)
		return fallback
	}
	return i
}

func (p *Project) ProjectTitle() string { return p.Title }

func (p *Project) Section(id string) (*Section, bool) {
	sc, ok := p.Sections[id]
	return sc, ok
}

// Modified reports whether the model changed since it was loaded or saved.
func (p *Project) Modified() bool { return p.modified }

// SectionIDs returns all section IDs in book order.
func (p *Project) SectionIDs() []string {
	var ids []string
	for _, ch := range p.Chapters {
		ids = append(ids, ch.Sections...)
	}
	return ids
}

func (p *Project) SetContent(id, content string) error {
	sc, ok := p.Sections[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSection, id)
	}
	if sc.Content == content {
		return nil
	}
	sc.Content = content
	p.modified = true
	logger.Section(p.Path, id).Debugw("section content updated", "bytes", len(content))
	return nil
}

func (p *Project) SetCharacters(id string, characters []string) error {
	sc, ok := p.Sections[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSection, id)
	}
	sc.Characters = append([]string(nil), characters...)
	p.modified = true
	return nil
}

// AddSectionAfter inserts a new empty section right after the section id,
// in the same chapter, and returns its ID.
func (p *Project) AddSectionAfter(id string, tmpl SectionTemplate) (string, error) {
	ch, idx := p.locate(id)
	if ch == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownSection, id)
	}
	newID := p.newSectionID()
	p.Sections[newID] = &Section{
		ID:           newID,
		Title:        tmpl.Title,
		Type:         tmpl.Type,
		Scene:        tmpl.Scene,
		Status:       tmpl.Status,
		AppendToPrev: tmpl.AppendToPrev,
	}
	ch.Sections = append(ch.Sections[:idx+1], append([]string{newID}, ch.Sections[idx+1:]...)...)
	p.modified = true
	logger.Section(p.Path, newID).Infow("section created", "after", id)
	p.notify()
	return newID, nil
}

// AppendSection adds a new section at the end of the last chapter.
func (p *Project) AppendSection(tmpl SectionTemplate, content string) string {
	if len(p.Chapters) == 0 {
		p.Chapters = append(p.Chapters, &Chapter{ID: "ch1", Title: "Chapter 1"})
	}
	ch := p.Chapters[len(p.Chapters)-1]
	newID := p.newSectionID()
	p.Sections[newID] = &Section{
		ID:           newID,
		Title:        tmpl.Title,
		Content:      content,
		Type:         tmpl.Type,
		Scene:        tmpl.Scene,
		Status:       tmpl.Status,
		AppendToPrev: tmpl.AppendToPrev,
	}
	ch.Sections = append(ch.Sections, newID)
	p.modified = true
	p.notify()
	return newID
}

func (p *Project) DeleteSection(id string) error {
	ch, idx := p.locate(id)
	if ch == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSection, id)
	}
	ch.Sections = append(ch.Sections[:idx], ch.Sections[idx+1:]...)
	delete(p.Sections, id)
	if p.selected == id {
		p.selected = ""
	}
	p.modified = true
	logger.Section(p.Path, id).Infow("section deleted")
	p.notify()
	return nil
}

func (p *Project) locate(id string) (*Chapter, int) {
	for _, ch := range p.Chapters {
		for i, scID := range ch.Sections {
			if scID == id {
				return ch, i
			}
		}
	}
	return nil, -1
}

func (p *Project) newSectionID() string {
	max := 0
	for id := range p.Sections {
		if n, err := strconv.Atoi(strings.TrimPrefix(id, "sc")); err == nil && n > max {
			max = n
		}
	}
	return "sc" + strconv.Itoa(max+1)
}

// NextSection returns the section following id in book order, or "".
func (p *Project) NextSection(id string) string {
	ids := p.SectionIDs()
	for i, scID := range ids {
		if scID == id && i+1 < len(ids) {
			return ids[i+1]
		}
	}
	return ""
}

// PrevSection returns the section preceding id in book order, or "".
func (p *Project) PrevSection(id string) string {
	ids := p.SectionIDs()
	for i, scID := range ids {
		if scID == id && i > 0 {
			return ids[i-1]
		}
	}
	return ""
}

// GoTo selects a section, the way a tree view moves its cursor.
func (p *Project) GoTo(id string) {
	if _, ok := p.Sections[id]; ok {
		p.selected = id
	}
}

func (p *Project) Selected() string { return p.selected }

// Subscribe registers fn to be called whenever the set of sections changes.
func (p *Project) Subscribe(fn func()) (cancel func()) {
	p.nextID++
	id := p.nextID
	p.listeners = append(p.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range p.listeners {
			if l.id == id {
				p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
				return
			}
		}
	}
}

func (p *Project) notify() {
	for _, l := range append([]listener(nil), p.listeners...) {
		l.fn()
	}
}
