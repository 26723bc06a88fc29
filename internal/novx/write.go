package novx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/kobzarvs/scedit/internal/logger"
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

// managed section attributes are always written from the model.
var managedSectionAttrs = map[string]bool{"id": true, "type": true, "scene": true, "status": true, "append": true}

type attr struct {
	name  string
	value string
}

// Bytes serializes the project. Elements the model doesn't know are written
// back as they were read.
func (p *Project) Bytes() []byte {
	var b bytes.Buffer
	w := projectWriter{p: p, b: &b}
	if p.doc == nil {
		w.fresh()
	} else {
		writeNode(&b, p.doc, w.hook)
	}
	return b.Bytes()
}

func (p *Project) Save() error {
	if p.Path == "" {
		return ErrNoPath
	}
	data := p.Bytes()
	if err := backup(p.Path); err != nil {
		return fmt.Errorf("backing up project: %w", err)
	}
	tmp := p.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, p.Path); err != nil {
		return err
	}
	p.digest = blake3.Sum256(data)
	p.modified = false
	logger.Project(p.Path).Infow("project saved", "bytes", len(data))
	return nil
}

func backupPath(path string) string { return path + ".bak.xz" }

// backup keeps the previous file content xz-compressed next to the project.
func backup(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	f, err := os.Create(backupPath(path))
	if err != nil {
		return err
	}
	w, err := xz.NewWriter(f)
	if err != nil {
		f.Close()
		return err
	}
	if _, err := w.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadBackup returns the project content as it was before the last save.
func ReadBackup(path string) ([]byte, error) {
	f, err := os.Open(backupPath(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := xz.NewReader(f)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

type projectWriter struct {
	p *Project
	b *bytes.Buffer
}

func (w *projectWriter) hook(n *xmlquery.Node) bool {
	if n.Type == xmlquery.ElementNode && n.Data == "CHAPTERS" && n.Prefix == "" {
		w.chapters(nodeAttrs(n))
		return true
	}
	return false
}

func (w *projectWriter) fresh() {
	w.b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	w.b.WriteString(`<novx version="1.4">` + "\n<PROJECT>\n")
	writeSimple(w.b, "Title", w.p.Title)
	w.b.WriteString("</PROJECT>\n")
	w.chapters(nil)
	w.b.WriteString("\n</novx>\n")
}

func (w *projectWriter) chapters(attrs []attr) {
	writeStart(w.b, "CHAPTERS", attrs)
	w.b.WriteString(">\n")
	for _, ch := range w.p.Chapters {
		w.chapter(ch)
	}
	w.b.WriteString("</CHAPTERS>")
}

func (w *projectWriter) chapter(ch *Chapter) {
	attrs := []attr{{"id", ch.ID}}
	if ch.node != nil {
		attrs = append(attrs, keepAttrs(ch.node, map[string]bool{"id": true})...)
	}
	writeStart(w.b, "CHAPTER", attrs)
	w.b.WriteString(">\n")
	if ch.node == nil {
		writeSimple(w.b, "Title", ch.Title)
	} else {
		w.keepChildren(ch.node, map[string]bool{"SECTION": true})
	}
	for _, id := range ch.Sections {
		if sc, ok := w.p.Sections[id]; ok {
			w.section(sc)
		}
	}
	w.b.WriteString("</CHAPTER>\n")
}

func (w *projectWriter) section(sc *Section) {
	attrs := []attr{{"id", sc.ID}}
	if sc.Type != 0 {
		attrs = append(attrs, attr{"type", strconv.Itoa(sc.Type)})
	}
	attrs = append(attrs, attr{"status", strconv.Itoa(sc.Status)})
	if sc.Scene != 0 {
		attrs = append(attrs, attr{"scene", strconv.Itoa(sc.Scene)})
	}
	if sc.AppendToPrev {
		attrs = append(attrs, attr{"append", "1"})
	}
	if sc.node != nil {
		attrs = append(attrs, keepAttrs(sc.node, managedSectionAttrs)...)
	}
	writeStart(w.b, "SECTION", attrs)
	w.b.WriteString(">\n")
	if sc.Title != "" {
		writeSimple(w.b, "Title", sc.Title)
	}
	if sc.node != nil {
		w.keepChildren(sc.node, map[string]bool{"Title": true, "Characters": true, "Content": true})
	}
	if len(sc.Characters) > 0 {
		writeStart(w.b, "Characters", []attr{{"ids", strings.Join(sc.Characters, " ")}})
		w.b.WriteString("/>\n")
	}
	if sc.Content != "" {
		w.b.WriteString("<Content>\n")
		w.b.WriteString(strings.ReplaceAll(sc.Content, "</p>", "</p>\n"))
		w.b.WriteString("</Content>\n")
	}
	w.b.WriteString("</SECTION>\n")
}

// keepChildren writes the element children of n not named in skip, one per
// line. Whitespace between them is not preserved.
func (w *projectWriter) keepChildren(n *xmlquery.Node, skip map[string]bool) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && skip[c.Data] {
			continue
		}
		if c.Type == xmlquery.TextNode && strings.TrimSpace(c.Data) == "" {
			continue
		}
		writeNode(w.b, c, nil)
		w.b.WriteString("\n")
	}
}

func keepAttrs(n *xmlquery.Node, skip map[string]bool) []attr {
	var out []attr
	for _, a := range nodeAttrs(n) {
		if !skip[a.name] {
			out = append(out, a)
		}
	}
	return out
}

func nodeAttrs(n *xmlquery.Node) []attr {
	out := make([]attr, 0, len(n.Attr))
	for _, a := range n.Attr {
		name := a.Name.Local
		if a.Name.Space != "" {
			name = a.Name.Space + ":" + name
		}
		out = append(out, attr{name, a.Value})
	}
	return out
}

// writeNode serializes n and its subtree. hook may take over any node.
func writeNode(b *bytes.Buffer, n *xmlquery.Node, hook func(*xmlquery.Node) bool) {
	if hook != nil && hook(n) {
		return
	}
	switch n.Type {
	case xmlquery.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.TextNode && strings.TrimSpace(c.Data) == "" {
				continue
			}
			writeNode(b, c, hook)
			b.WriteString("\n")
		}
	case xmlquery.DeclarationNode:
		b.WriteString("<?xml")
		for _, a := range nodeAttrs(n) {
			b.WriteString(" " + a.name + `="` + attrEscaper.Replace(a.value) + `"`)
		}
		b.WriteString("?>")
	case xmlquery.ElementNode:
		name := n.Data
		if n.Prefix != "" {
			name = n.Prefix + ":" + name
		}
		// Always <p></p>, never <p/>.
		writeStart(b, name, nodeAttrs(n))
		b.WriteString(">")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(b, c, hook)
		}
		b.WriteString("</" + name + ">")
	case xmlquery.TextNode:
		b.WriteString(textEscaper.Replace(n.Data))
	case xmlquery.CharDataNode:
		b.WriteString("<![CDATA[" + n.Data + "]]>")
	case xmlquery.CommentNode:
		b.WriteString("<!--" + n.Data + "-->")
	}
}

func writeStart(b *bytes.Buffer, name string, attrs []attr) {
	b.WriteString("<" + name)
	for _, a := range attrs {
		b.WriteString(" " + a.name + `="` + attrEscaper.Replace(a.value) + `"`)
	}
}

func writeSimple(b *bytes.Buffer, name, text string) {
	b.WriteString("<" + name + ">" + textEscaper.Replace(text) + "</" + name + ">\n")
}
