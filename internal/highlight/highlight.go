// Package highlight colors section markup with the tree-sitter HTML grammar.
// The editor falls back to it while the text is not well-formed and the
// markup decoder cannot style it.
package highlight

import (
	"context"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"
)

// Span kinds.
const (
	KindTag       = "tag"
	KindAttribute = "attribute"
	KindString    = "string"
	KindError     = "error"
)

// Span styles the runes [StartCol, EndCol) of one line.
type Span struct {
	StartCol int
	EndCol   int
	Kind     string
}

const markupHighlightQuery = `
((start_tag) @tag)
((end_tag) @tag)
((self_closing_tag) @tag)
((attribute_name) @attribute)
((quoted_attribute_value) @string)
((erroneous_end_tag) @error)
`

// Engine keeps one syntax tree per key, usually a section ID.
type Engine struct {
	parser  *sitter.Parser
	query   *sitter.Query
	trees   map[string]*sitter.Tree
	sources map[string][]byte
	mu      sync.RWMutex
}

func New() (*Engine, error) {
	lang := html.GetLanguage()
	query, err := sitter.NewQuery([]byte(markupHighlightQuery), lang)
	if err != nil {
		return nil, err
	}
	p := sitter.NewParser()
	p.SetLanguage(lang)
	return &Engine{
		parser:  p,
		query:   query,
		trees:   make(map[string]*sitter.Tree),
		sources: make(map[string][]byte),
	}, nil
}

// Update reparses the text stored under key.
func (e *Engine) Update(key, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if string(e.sources[key]) == text && e.trees[key] != nil {
		return nil
	}
	source := []byte(text)
	tree, err := e.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return err
	}
	if old := e.trees[key]; old != nil {
		old.Close()
	}
	e.trees[key] = tree
	e.sources[key] = source
	return nil
}

func (e *Engine) Forget(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if tree := e.trees[key]; tree != nil {
		tree.Close()
	}
	delete(e.trees, key)
	delete(e.sources, key)
}

func (e *Engine) Close() {
	e.mu.Lock()
	for key, tree := range e.trees {
		tree.Close()
		delete(e.trees, key)
		delete(e.sources, key)
	}
	e.mu.Unlock()
	e.query.Close()
	e.parser.Close()
}

// Highlights returns the spans of lines [startLine, endLine] keyed by line.
// Columns are rune offsets; a span running past its line ends at
// math.MaxInt32.
func (e *Engine) Highlights(key string, startLine, endLine int) map[int][]Span {
	if startLine < 0 || endLine < startLine {
		return nil
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	tree, source := e.trees[key], e.sources[key]
	if tree == nil {
		return nil
	}
	lines := strings.Split(string(source), "\n")

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.SetPointRange(
		sitter.Point{Row: uint32(startLine), Column: 0},
		sitter.Point{Row: uint32(endLine + 1), Column: 0},
	)
	cursor.Exec(e.query, tree.RootNode())

	out := make(map[int][]Span)
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		for _, capture := range match.Captures {
			kind := e.query.CaptureNameForId(capture.Index)
			start, end := capture.Node.StartPoint(), capture.Node.EndPoint()
			for row := int(start.Row); row <= int(end.Row); row++ {
				if row < startLine || row > endLine || row >= len(lines) {
					continue
				}
				startCol, endCol := 0, math.MaxInt32
				if row == int(start.Row) {
					startCol = runeCol(lines[row], int(start.Column))
				}
				if row == int(end.Row) {
					endCol = runeCol(lines[row], int(end.Column))
				}
				out[row] = append(out[row], Span{StartCol: startCol, EndCol: endCol, Kind: kind})
			}
		}
	}
	return out
}

// ElementPath names the elements enclosing a rune position, innermost first.
func (e *Engine) ElementPath(key string, row, col int) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	tree, source := e.trees[key], e.sources[key]
	if tree == nil {
		return nil
	}
	lines := strings.Split(string(source), "\n")
	if row < 0 || row >= len(lines) {
		return nil
	}
	point := sitter.Point{Row: uint32(row), Column: uint32(byteCol(lines[row], col))}
	node := tree.RootNode().NamedDescendantForPointRange(point, point)

	var path []string
	for ; node != nil; node = node.Parent() {
		if node.Type() != "element" {
			continue
		}
		tag := node.NamedChild(0)
		if tag == nil || (tag.Type() != "start_tag" && tag.Type() != "self_closing_tag") {
			continue
		}
		if name := findNamedChild(tag, "tag_name"); name != nil {
			path = append(path, name.Content(source))
		}
	}
	return path
}

func findNamedChild(node *sitter.Node, kind string) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child != nil && child.Type() == kind {
			return child
		}
	}
	return nil
}

// runeCol converts a byte column of line into a rune column.
func runeCol(line string, b int) int {
	if b > len(line) {
		b = len(line)
	}
	return utf8.RuneCountInString(line[:b])
}

func byteCol(line string, col int) int {
	n := 0
	for i := range line {
		if n == col {
			return i
		}
		n++
	}
	return len(line)
}
