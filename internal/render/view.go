package render

import (
	"github.com/rivo/uniseg"

	"github.com/dshills/termrepl/internal/render/backend"
)

// LineKind classifies a scrollback line for styling.
type LineKind uint8

const (
	// LineCommand is an echoed prompt+command line.
	LineCommand LineKind = iota
	// LineOutput is normal command output.
	LineOutput
	// LineError is failure output, drawn in red.
	LineError
	// LineStatus is transient framework feedback (busy, cancelled), drawn dim.
	LineStatus
)

// ScrollLine is one line of the display buffer. For LineCommand the text is
// the bare command; the view prepends the prompt.
type ScrollLine struct {
	Kind LineKind
	Text string
}

// Frame is everything the view needs for one paint. It is assembled by the
// event loop from session state; the view never reaches back into the
// session.
type Frame struct {
	Prompt string
	Input  string

	// CursorColumn is the display column of the cursor within Input.
	CursorColumn int

	// InputActive hides the hardware cursor when false (while a command
	// runs without overlapped editing).
	InputActive bool

	Scrollback []ScrollLine

	// Status is a transient one-line message pinned to the bottom row.
	Status string
}

// View paints frames onto a backend. It owns only layout; the decision of
// when to paint belongs to the Scheduler.
type View struct {
	backend       backend.Backend
	width, height int

	promptStyle backend.Style
	inputStyle  backend.Style
	outputStyle backend.Style
	errorStyle  backend.Style
	statusStyle backend.Style
}

// NewView creates a view sized to the backend.
func NewView(b backend.Backend) *View {
	w, h := b.Size()
	return &View{
		backend:     b,
		width:       w,
		height:      h,
		promptStyle: backend.DefaultStyle().WithForeground(backend.ColorBlue),
		inputStyle:  backend.DefaultStyle().Bold(),
		outputStyle: backend.DefaultStyle(),
		errorStyle:  backend.DefaultStyle().WithForeground(backend.ColorRed),
		statusStyle: backend.DefaultStyle().Dim(),
	}
}

// Resize updates the view dimensions after a terminal resize event.
func (v *View) Resize(width, height int) {
	v.width = width
	v.height = height
}

// Size returns the current view dimensions.
func (v *View) Size() (int, int) {
	return v.width, v.height
}

// segment is a styled run of text within one logical line.
type segment struct {
	text  string
	style backend.Style
}

// Render lays out the frame and flushes it to the backend. One Render call
// is one completed paint.
func (v *View) Render(f Frame) {
	b := v.backend
	b.Clear()

	if v.width <= 0 || v.height <= 0 {
		b.Show()
		return
	}

	var rows [][]backend.Cell
	for _, sl := range f.Scrollback {
		rows = append(rows, v.wrap(v.scrollSegments(f.Prompt, sl))...)
	}

	promptWidth := uniseg.StringWidth(f.Prompt)
	inputSegs := []segment{
		{f.Prompt, v.promptStyle},
		{" ", v.outputStyle},
		{f.Input, v.inputStyle},
	}
	cursorTarget := promptWidth + 1 + f.CursorColumn
	inputRows, curRow, curCol := v.wrapWithCursor(inputSegs, cursorTarget)
	promptStart := len(rows)
	rows = append(rows, inputRows...)

	visible := v.height
	if f.Status != "" {
		visible--
	}
	offset := 0
	if len(rows) > visible {
		offset = len(rows) - visible
	}

	for y, row := range rows[offset:] {
		if y >= visible {
			break
		}
		for x, cell := range row {
			if x >= v.width {
				break
			}
			b.SetCell(x, y, cell)
		}
	}

	cy := promptStart + curRow - offset
	if f.InputActive && cy >= 0 && cy < visible {
		b.ShowCursor(curCol, cy)
	} else {
		b.HideCursor()
	}

	if f.Status != "" {
		v.paintRow(v.height-1, f.Status, v.statusStyle)
	}

	b.Show()
}

// scrollSegments styles a scrollback line.
func (v *View) scrollSegments(prompt string, sl ScrollLine) []segment {
	switch sl.Kind {
	case LineCommand:
		return []segment{
			{prompt, v.promptStyle},
			{" ", v.outputStyle},
			{sl.Text, v.inputStyle},
		}
	case LineError:
		return []segment{{sl.Text, v.errorStyle}}
	case LineStatus:
		return []segment{{sl.Text, v.statusStyle}}
	default:
		return []segment{{sl.Text, v.outputStyle}}
	}
}

// paintRow draws a single styled line of text onto row y, truncated at the
// right edge.
func (v *View) paintRow(y int, text string, style backend.Style) {
	x := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		cluster := g.Str()
		w := uniseg.StringWidth(cluster)
		if w == 0 {
			continue
		}
		if x+w > v.width {
			break
		}
		v.backend.SetCell(x, y, backend.Cell{Rune: firstRune(cluster), Style: style})
		x += w
	}
}

// wrap lays segments out into rows of cells at the view width. Wrapping is
// column-based; a wide glyph that would straddle the edge moves to the next
// row.
func (v *View) wrap(segs []segment) [][]backend.Cell {
	rows, _, _ := v.wrapWithCursor(segs, -1)
	return rows
}

// wrapWithCursor is wrap plus cursor tracking: cursorCols is the display
// column within the unwrapped composed line at which the cursor sits, or -1
// for none. Returns the rows and the cursor's row/column within them.
func (v *View) wrapWithCursor(segs []segment, cursorCols int) (rows [][]backend.Cell, curRow, curCol int) {
	row := make([]backend.Cell, 0, v.width)
	consumed := 0
	found := cursorCols < 0

	flush := func() {
		rows = append(rows, row)
		row = make([]backend.Cell, 0, v.width)
	}

	for _, seg := range segs {
		g := uniseg.NewGraphemes(seg.text)
		for g.Next() {
			cluster := g.Str()
			w := uniseg.StringWidth(cluster)
			if w == 0 {
				continue
			}
			if len(row) > 0 && cellWidth(row)+w > v.width {
				flush()
			}
			if !found && consumed == cursorCols {
				curRow = len(rows)
				curCol = cellWidth(row)
				found = true
			}
			cell := backend.Cell{Rune: firstRune(cluster), Style: seg.style}
			row = append(row, cell)
			// Wide glyphs occupy extra cells; pad so columns line up.
			for i := 1; i < w; i++ {
				row = append(row, backend.Cell{Rune: 0, Style: seg.style})
			}
			consumed += w
		}
	}

	if !found {
		// Cursor past the last cluster.
		if cellWidth(row) >= v.width {
			flush()
		}
		curRow = len(rows)
		curCol = cellWidth(row)
	}
	flush()
	return rows, curRow, curCol
}

func cellWidth(row []backend.Cell) int {
	return len(row)
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return ' '
}
