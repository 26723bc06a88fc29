package editor

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"

	"github.com/kobzarvs/scedit/internal/config"
	"github.com/kobzarvs/scedit/internal/highlight"
	"github.com/kobzarvs/scedit/internal/markup"
	"github.com/kobzarvs/scedit/internal/textops"
)

// Replaced in tests; the system clipboard is not available everywhere.
var (
	writeClipboard = clipboard.WriteAll
	readClipboard  = clipboard.ReadAll
)

// row is one screen row of wrapped text: runes [start, end).
type row struct {
	start int
	end   int
}

// Window edits the text of one section. It implements session.View.
type Window struct {
	desk      *Desk
	id        string
	text      []rune
	cursor    int
	anchor    int
	selecting bool
	goalX     int
	scroll    int
	rows      []row
	width     int
	pageRows  int
	title     string
	status    string
	prefs     config.Preferences
	styles    styles
	closed    bool
}

type styles struct {
	main      tcell.Style
	tag       tcell.Style
	em        tcell.Style
	strong    tcell.Style
	note      tcell.Style
	errorTag  tcell.Style
	selection tcell.Style
	bar       tcell.Style
}

func newStyles(prefs config.Preferences) styles {
	mode := prefs.ActiveColorMode()
	fg := parseColor(mode.Foreground, tcell.ColorWhite)
	bg := parseColor(mode.Background, tcell.ColorBlack)
	main := tcell.StyleDefault.Foreground(fg).Background(bg)
	return styles{
		main:      main,
		tag:       main.Foreground(tcell.ColorGray),
		em:        main.Italic(true),
		strong:    main.Bold(true),
		note:      main.Dim(true),
		errorTag:  main.Foreground(tcell.ColorRed),
		selection: main.Reverse(true),
		bar:       tcell.StyleDefault.Foreground(bg).Background(fg),
	}
}

func (w *Window) ID() string { return w.id }

func (w *Window) Text() string { return string(w.text) }

func (w *Window) SetText(text string) {
	w.text = []rune(text)
	w.selecting = false
	w.rows = nil
	w.cursor = clampInt(w.cursor, 0, len(w.text))
}

func (w *Window) Cursor() int { return w.cursor }

func (w *Window) SetCursor(offset int) {
	w.cursor = clampInt(offset, 0, len(w.text))
	w.selecting = false
	w.goalX = -1
}

func (w *Window) Selection() (textops.Range, bool) {
	if !w.selecting || w.anchor == w.cursor {
		return textops.Range{}, false
	}
	if w.anchor < w.cursor {
		return textops.Range{Start: w.anchor, End: w.cursor}, true
	}
	return textops.Range{Start: w.cursor, End: w.anchor}, true
}

func (w *Window) SetSelection(r textops.Range) {
	w.anchor = clampInt(r.Start, 0, len(w.text))
	w.cursor = clampInt(r.End, 0, len(w.text))
	w.selecting = true
	w.goalX = -1
}

func (w *Window) SetTitle(title string)           { w.title = title }
func (w *Window) ShowStatus(message string)       { w.status = message }
func (w *Window) Lift()                           { w.desk.lift(w) }
func (w *Window) Close()                          { w.desk.remove(w) }
func (w *Window) Title() string                   { return w.title }
func (w *Window) Status() string                  { return w.status }
func (w *Window) Preferences() config.Preferences { return w.prefs }

func (w *Window) ApplyPreferences(prefs config.Preferences) {
	w.prefs = prefs
	w.styles = newStyles(prefs)
}

// edit runs a buffer-local action. It reports whether the action is known
// and whether the text changed.
func (w *Window) edit(action string) (handled, modified bool) {
	switch action {
	case actionMoveLeft, actionSelectLeft:
		w.move(action == actionSelectLeft, w.cursor-1)
	case actionMoveRight, actionSelectRight:
		w.move(action == actionSelectRight, w.cursor+1)
	case actionMoveUp, actionSelectUp:
		w.moveRows(action == actionSelectUp, -1)
	case actionMoveDown, actionSelectDown:
		w.moveRows(action == actionSelectDown, 1)
	case actionPageUp:
		w.moveRows(false, -w.page())
	case actionPageDown:
		w.moveRows(false, w.page())
	case actionLineStart, actionSelectLineStart:
		r := w.rowAt(w.cursor)
		w.move(action == actionSelectLineStart, w.layout()[r].start)
	case actionLineEnd, actionSelectLineEnd:
		w.move(action == actionSelectLineEnd, w.rowEnd(w.rowAt(w.cursor)))
	case actionTextStart:
		w.move(false, 0)
	case actionTextEnd:
		w.move(false, len(w.text))
	case actionSelectAll:
		w.SetSelection(textops.Range{Start: 0, End: len(w.text)})
	case actionBackspace:
		if !w.deleteSelection() && w.cursor > 0 {
			w.replace(w.cursor-1, w.cursor, "")
		}
		return true, true
	case actionDeleteChar:
		if !w.deleteSelection() && w.cursor < len(w.text) {
			w.replace(w.cursor, w.cursor+1, "")
		}
		return true, true
	case actionCopy:
		w.copySelection()
	case actionCut:
		if w.copySelection() {
			w.deleteSelection()
			return true, true
		}
	case actionPaste:
		text, err := readClipboard()
		if err != nil {
			w.status = "Clipboard unavailable."
			return true, false
		}
		w.insert(strings.ReplaceAll(text, "\r\n", "\n"))
		return true, true
	default:
		return false, false
	}
	return true, false
}

// insert replaces the selection, if any, with s.
func (w *Window) insert(s string) {
	w.deleteSelection()
	w.replace(w.cursor, w.cursor, s)
}

func (w *Window) replace(start, end int, s string) {
	ins := []rune(s)
	text := make([]rune, 0, len(w.text)-(end-start)+len(ins))
	text = append(text, w.text[:start]...)
	text = append(text, ins...)
	text = append(text, w.text[end:]...)
	w.text = text
	w.cursor = start + len(ins)
	w.selecting = false
	w.rows = nil
	w.goalX = -1
}

func (w *Window) deleteSelection() bool {
	sel, ok := w.Selection()
	if !ok {
		w.selecting = false
		return false
	}
	w.replace(sel.Start, sel.End, "")
	return true
}

func (w *Window) copySelection() bool {
	sel, ok := w.Selection()
	if !ok {
		return false
	}
	if err := writeClipboard(string(w.text[sel.Start:sel.End])); err != nil {
		w.status = "Clipboard unavailable."
		return false
	}
	return true
}

func (w *Window) move(extend bool, to int) {
	if extend && !w.selecting {
		w.anchor = w.cursor
		w.selecting = true
	} else if !extend {
		w.selecting = false
	}
	w.cursor = clampInt(to, 0, len(w.text))
	w.goalX = -1
}

// moveRows moves the cursor n screen rows, keeping its horizontal position.
func (w *Window) moveRows(extend bool, n int) {
	rows := w.layout()
	r := w.rowAt(w.cursor)
	x := w.goalX
	if x < 0 {
		x = cellWidth(w.text[rows[r].start:w.cursor])
	}
	target := clampInt(r+n, 0, len(rows)-1)
	to := w.cursor
	switch {
	case target != r:
		to = w.offsetAtX(target, x)
	case n < 0:
		to = 0
	case n > 0:
		to = len(w.text)
	}
	w.move(extend, to)
	w.goalX = x
}

func (w *Window) page() int {
	if w.pageRows > 1 {
		return w.pageRows - 1
	}
	return 1
}

func (w *Window) offsetAtX(r, x int) int {
	rows := w.layout()
	end := w.rowEnd(r)
	cells := 0
	for i := rows[r].start; i < end; i++ {
		cw := runeWidth(w.text[i])
		if cells+cw > x {
			return i
		}
		cells += cw
	}
	return end
}

// rowEnd is the last cursor position of a row. A wrapped row ends before
// the rune the next row starts with.
func (w *Window) rowEnd(r int) int {
	rows := w.layout()
	if r+1 < len(rows) && rows[r+1].start == rows[r].end && rows[r].end > rows[r].start {
		return rows[r].end - 1
	}
	return rows[r].end
}

func (w *Window) layout() []row {
	if w.rows == nil {
		width := w.width
		if width <= 0 {
			width = 80
		}
		w.rows = wrap(w.text, width)
	}
	return w.rows
}

// rowAt returns the row showing offset.
func (w *Window) rowAt(offset int) int {
	rows := w.layout()
	for i, r := range rows {
		if offset < r.start || offset > r.end {
			continue
		}
		if offset == r.end && i+1 < len(rows) && rows[i+1].start == offset {
			continue
		}
		return i
	}
	return len(rows) - 1
}

// wrap breaks text into rows of at most width cells, preferring to break
// after a space.
func wrap(text []rune, width int) []row {
	if width < 1 {
		width = 1
	}
	var rows []row
	for start := 0; start <= len(text); {
		end := start
		for end < len(text) && text[end] != '\n' {
			end++
		}
		rows = append(rows, wrapLine(text, start, end, width)...)
		start = end + 1
	}
	return rows
}

func wrapLine(text []rune, start, end, width int) []row {
	var rows []row
	rowStart, cells, lastSpace := start, 0, -1
	for i := start; i < end; i++ {
		cw := runeWidth(text[i])
		if cells+cw > width && i > rowStart {
			brk := i
			if lastSpace >= rowStart {
				brk = lastSpace + 1
			}
			rows = append(rows, row{start: rowStart, end: brk})
			rowStart, cells, lastSpace = brk, 0, -1
			for j := rowStart; j < i; j++ {
				cells += runeWidth(text[j])
				if text[j] == ' ' {
					lastSpace = j
				}
			}
		}
		if text[i] == ' ' {
			lastSpace = i
		}
		cells += cw
	}
	return append(rows, row{start: rowStart, end: end})
}

func runeWidth(r rune) int {
	if r == '\t' {
		return 4
	}
	return uniseg.StringWidth(string(r))
}

func cellWidth(rs []rune) int {
	n := 0
	for _, r := range rs {
		n += runeWidth(r)
	}
	return n
}

// runeStyles styles every rune of the text. Well-formed text is styled from
// its markup; otherwise the tree-sitter spans are used.
func (w *Window) runeStyles() []tcell.Style {
	out := make([]tcell.Style, len(w.text))
	runs, err := markup.Runs(string(w.text))
	if err == nil {
		i := 0
		for _, run := range runs {
			st := w.styleFor(run.Tag)
			for range run.Text {
				if i < len(out) {
					out[i] = st
				}
				i++
			}
		}
		return out
	}
	for i := range out {
		out[i] = w.styles.main
	}
	hl := w.desk.highlight
	if hl == nil || hl.Update(w.id, string(w.text)) != nil {
		return out
	}
	lineStart := 0
	lines := strings.Count(string(w.text), "\n")
	spans := hl.Highlights(w.id, 0, lines)
	for line := 0; line <= lines; line++ {
		lineEnd := lineStart
		for lineEnd < len(w.text) && w.text[lineEnd] != '\n' {
			lineEnd++
		}
		for _, sp := range spans[line] {
			st := w.styles.tag
			if sp.Kind == highlight.KindError {
				st = w.styles.errorTag
			}
			for i := lineStart + sp.StartCol; i < lineStart+sp.EndCol && i < lineEnd; i++ {
				out[i] = st
			}
		}
		lineStart = lineEnd + 1
	}
	return out
}

func (w *Window) styleFor(tag string) tcell.Style {
	switch tag {
	case markup.StyleTag:
		return w.styles.tag
	case markup.StyleEm:
		return w.styles.em
	case markup.StyleStrong:
		return w.styles.strong
	case markup.StyleNote, markup.StyleComment:
		return w.styles.note
	}
	return w.styles.main
}

// Render draws the window over the whole screen: title bar, text, status
// bar.
func (w *Window) Render(s tcell.Screen) {
	sw, sh := s.Size()
	if sw <= 0 || sh <= 0 {
		return
	}
	s.SetStyle(w.styles.main)
	s.Clear()

	mx, my := w.margins(sw, sh)
	top, bottom := 1+my, sh-1-my
	left := mx
	width := sw - 2*mx
	if width != w.width {
		w.width = width
		w.rows = nil
	}
	viewRows := bottom - top
	if viewRows < 1 {
		viewRows = 1
	}
	w.pageRows = viewRows

	rows := w.layout()
	cur := w.rowAt(w.cursor)
	if cur < w.scroll {
		w.scroll = cur
	}
	if cur >= w.scroll+viewRows {
		w.scroll = cur - viewRows + 1
	}

	runeStyles := w.runeStyles()
	sel, hasSel := w.Selection()
	for y := 0; y < viewRows && w.scroll+y < len(rows); y++ {
		r := rows[w.scroll+y]
		x := left
		for i := r.start; i < r.end; i++ {
			st := runeStyles[i]
			if hasSel && i >= sel.Start && i < sel.End {
				st = st.Reverse(true)
			}
			ch := w.text[i]
			cw := runeWidth(ch)
			if ch == '\t' {
				for k := 0; k < cw; k++ {
					s.SetContent(x+k, top+y, ' ', nil, st)
				}
			} else {
				s.SetContent(x, top+y, ch, nil, st)
			}
			x += cw
		}
	}

	drawBar(s, 0, sw, composeStatusLine(" "+w.title, "", sw), w.styles.bar)
	right := w.position()
	drawBar(s, sh-1, sw, composeStatusLine(" "+w.status, right+" ", sw), w.styles.bar)

	cy := top + cur - w.scroll
	cx := left + cellWidth(w.text[rows[cur].start:w.cursor])
	if cx >= sw {
		cx = sw - 1
	}
	s.SetCursorStyle(tcell.CursorStyleSteadyBar)
	s.ShowCursor(cx, cy)
}

// position describes the cursor: enclosing elements and line and column.
func (w *Window) position() string {
	line, col := 1, 0
	for _, r := range w.text[:w.cursor] {
		if r == '\n' {
			line++
			col = 0
			continue
		}
		col++
	}
	pos := fmt.Sprintf("Ln %d, Col %d", line, col+1)
	hl := w.desk.highlight
	if hl == nil || hl.Update(w.id, string(w.text)) != nil {
		return pos
	}
	path := hl.ElementPath(w.id, line-1, col)
	if len(path) == 0 {
		return pos
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return strings.Join(path, " > ") + " | " + pos
}

// margins converts the pixel margins of the preferences into cells, keeping
// room for text.
func (w *Window) margins(sw, sh int) (int, int) {
	unit := w.prefs.Settings.FontSize
	if unit < 1 {
		unit = 12
	}
	mx := w.prefs.Settings.MarginX / unit
	my := w.prefs.Settings.MarginY / max(unit+w.prefs.Settings.LineSpacing, 1)
	if sw-2*mx < 20 {
		mx = 0
	}
	if sh-2-2*my < 3 {
		my = 0
	}
	return mx, my
}

func drawBar(s tcell.Screen, y, w int, line []rune, style tcell.Style) {
	for x := 0; x < w; x++ {
		r := ' '
		if x < len(line) {
			r = line[x]
		}
		s.SetContent(x, y, r, nil, style)
	}
}

func composeStatusLine(left, right string, width int) []rune {
	if width <= 0 {
		return nil
	}
	leftRunes := []rune(left)
	rightRunes := []rune(right)
	if len(leftRunes)+len(rightRunes) > width {
		if len(rightRunes) >= width {
			rightRunes = rightRunes[len(rightRunes)-width:]
			leftRunes = nil
		} else {
			leftRunes = leftRunes[:width-len(rightRunes)]
		}
	}
	line := make([]rune, 0, width)
	line = append(line, leftRunes...)
	for len(line)+len(rightRunes) < width {
		line = append(line, ' ')
	}
	return append(line, rightRunes...)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
