// Package backend provides the terminal backend abstraction for the REPL
// core. The Terminal implementation owns raw mode: it is entered in Init and
// restored in Fini, which callers defer so restoration happens on every exit
// path.
package backend

// EventType identifies the type of terminal event.
type EventType int

const (
	EventNone EventType = iota
	EventKey
	EventResize
	EventPaste
	EventClosed
)

// Event represents a terminal event.
type Event struct {
	Type EventType

	// Key event fields
	Key  Key
	Rune rune
	Mod  ModMask

	// Resize event fields
	Width, Height int

	// Paste event fields. Start marks the beginning of a bracketed paste;
	// the pasted content arrives as key events between the start and end
	// markers.
	Start bool
}

// Key represents a keyboard key.
type Key int

const (
	KeyNone Key = iota
	KeyRune     // Regular character (use Rune field)
	KeyCtrl     // Ctrl+letter (letter in Rune field, lowercase)
	KeyEscape
	KeyEnter
	KeyTab
	KeyBackspace
	KeyDelete
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
)

// ModMask represents modifier key state.
type ModMask int

const (
	ModNone  ModMask = 0
	ModShift ModMask = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Has returns true if the mask contains the given modifier.
func (m ModMask) Has(mod ModMask) bool {
	return m&mod != 0
}

// Attr is a bitmask of text attributes.
type Attr uint8

const (
	AttrNone Attr = 0
	AttrBold Attr = 1 << iota
	AttrDim
	AttrReverse
	AttrUnderline
)

// Has returns true if the attribute mask contains the given attribute.
func (a Attr) Has(attr Attr) bool {
	return a&attr != 0
}

// Color is a palette color index. ColorDefault leaves the terminal's
// default color in place.
type Color int

const (
	ColorDefault Color = iota - 1
	ColorBlack
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
)

// Style describes how a cell is drawn.
type Style struct {
	Foreground Color
	Background Color
	Attrs      Attr
}

// DefaultStyle returns a style using the terminal defaults.
func DefaultStyle() Style {
	return Style{Foreground: ColorDefault, Background: ColorDefault}
}

// Bold returns a copy of the style with the bold attribute set.
func (s Style) Bold() Style {
	s.Attrs |= AttrBold
	return s
}

// Dim returns a copy of the style with the dim attribute set.
func (s Style) Dim() Style {
	s.Attrs |= AttrDim
	return s
}

// Reverse returns a copy of the style with reverse video set.
func (s Style) Reverse() Style {
	s.Attrs |= AttrReverse
	return s
}

// WithForeground returns a copy of the style with the given foreground.
func (s Style) WithForeground(c Color) Style {
	s.Foreground = c
	return s
}

// Cell is a single terminal cell.
type Cell struct {
	Rune  rune
	Style Style
}

// EmptyCell returns a blank cell with the default style.
func EmptyCell() Cell {
	return Cell{Rune: ' ', Style: DefaultStyle()}
}

// Backend is the terminal capability the event loop consumes.
// Implementations handle raw-mode lifecycle, drawing, and event delivery.
type Backend interface {
	// Init acquires the terminal: raw mode, alternate screen, bracketed
	// paste. Must be called before any other method.
	Init() error

	// Fini releases the terminal and restores its previous state.
	// Safe to call after a failed Init and safe to call once only.
	Fini()

	// Size returns the current terminal dimensions.
	Size() (width, height int)

	// SetCell sets a single cell. Out-of-range positions are ignored.
	SetCell(x, y int, cell Cell)

	// Clear blanks the drawing buffer.
	Clear()

	// Show flushes the drawing buffer to the display. One call is one
	// completed paint.
	Show()

	// ShowCursor positions and displays the hardware cursor.
	ShowCursor(x, y int)

	// HideCursor hides the hardware cursor.
	HideCursor()

	// PollEvent blocks until the next terminal event. After Fini it
	// returns an EventClosed event.
	PollEvent() Event

	// PostEvent injects a synthetic event into the queue.
	PostEvent(event Event)

	// Beep produces the terminal bell.
	Beep()
}

// Null is an in-memory backend for tests. It records painted cells and
// counts Show calls so render coalescing can be asserted.
type Null struct {
	width, height int
	cells         [][]Cell
	cursorX       int
	cursorY       int
	cursorShown   bool
	showCount     int
	closed        bool
	events        chan Event
}

// NewNull creates a null backend with the given dimensions.
func NewNull(width, height int) *Null {
	return &Null{
		width:  width,
		height: height,
		events: make(chan Event, 128),
	}
}

func (b *Null) Init() error {
	b.cells = blankGrid(b.width, b.height)
	return nil
}

func (b *Null) Fini() {
	if b.closed {
		return
	}
	b.closed = true
	b.PostEvent(Event{Type: EventClosed})
}

func (b *Null) Size() (int, int) {
	return b.width, b.height
}

func (b *Null) SetCell(x, y int, cell Cell) {
	if x >= 0 && x < b.width && y >= 0 && y < b.height {
		b.cells[y][x] = cell
	}
}

func (b *Null) Clear() {
	b.cells = blankGrid(b.width, b.height)
}

func (b *Null) Show() {
	b.showCount++
}

func (b *Null) ShowCursor(x, y int) {
	b.cursorX = x
	b.cursorY = y
	b.cursorShown = true
}

func (b *Null) HideCursor() {
	b.cursorShown = false
}

func (b *Null) PollEvent() Event {
	return <-b.events
}

func (b *Null) PostEvent(event Event) {
	select {
	case b.events <- event:
	default:
		// Queue full; drop rather than block a test.
	}
}

func (b *Null) Beep() {}

// PostKey posts a key event for the given key.
func (b *Null) PostKey(k Key) {
	b.PostEvent(Event{Type: EventKey, Key: k})
}

// PostRune posts a plain character key event.
func (b *Null) PostRune(r rune) {
	b.PostEvent(Event{Type: EventKey, Key: KeyRune, Rune: r})
}

// PostCtrl posts a Ctrl+letter key event.
func (b *Null) PostCtrl(r rune) {
	b.PostEvent(Event{Type: EventKey, Key: KeyCtrl, Rune: r, Mod: ModCtrl})
}

// PostText posts one rune key event per rune in s.
func (b *Null) PostText(s string) {
	for _, r := range s {
		b.PostRune(r)
	}
}

// ShowCount returns the number of completed paints.
func (b *Null) ShowCount() int {
	return b.showCount
}

// Cursor returns the hardware cursor position and visibility.
func (b *Null) Cursor() (x, y int, shown bool) {
	return b.cursorX, b.cursorY, b.cursorShown
}

// Cell returns the cell at the given position.
func (b *Null) Cell(x, y int) Cell {
	if x >= 0 && x < b.width && y >= 0 && y < b.height {
		return b.cells[y][x]
	}
	return EmptyCell()
}

// Row returns the text content of a row with trailing blanks trimmed.
func (b *Null) Row(y int) string {
	if y < 0 || y >= b.height {
		return ""
	}
	runes := make([]rune, 0, b.width)
	for x := 0; x < b.width; x++ {
		r := b.cells[y][x].Rune
		if r == 0 {
			r = ' '
		}
		runes = append(runes, r)
	}
	end := len(runes)
	for end > 0 && runes[end-1] == ' ' {
		end--
	}
	return string(runes[:end])
}

// Resize changes the backend dimensions and posts a resize event.
func (b *Null) Resize(width, height int) {
	b.width = width
	b.height = height
	b.cells = blankGrid(width, height)
	b.PostEvent(Event{Type: EventResize, Width: width, Height: height})
}

func blankGrid(width, height int) [][]Cell {
	cells := make([][]Cell, height)
	for i := range cells {
		cells[i] = make([]Cell, width)
		for j := range cells[i] {
			cells[i][j] = EmptyCell()
		}
	}
	return cells
}
