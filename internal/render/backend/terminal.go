package backend

import (
	"sync"

	"github.com/gdamore/tcell/v2"
)

// Terminal implements Backend on a tcell screen.
type Terminal struct {
	screen tcell.Screen

	mu   sync.Mutex
	fini bool
}

// NewTerminal creates a terminal backend for the current tty.
func NewTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return &Terminal{screen: screen}, nil
}

func (t *Terminal) Init() error {
	if err := t.screen.Init(); err != nil {
		return err
	}
	// Bracketed paste so pasted text is distinguishable from typing.
	t.screen.EnablePaste()
	return nil
}

func (t *Terminal) Fini() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fini {
		return
	}
	t.fini = true
	t.screen.Fini()
}

func (t *Terminal) Size() (int, int) {
	return t.screen.Size()
}

func (t *Terminal) SetCell(x, y int, cell Cell) {
	t.screen.SetContent(x, y, cell.Rune, nil, convertStyle(cell.Style))
}

func (t *Terminal) Clear() {
	t.screen.Clear()
}

func (t *Terminal) Show() {
	t.screen.Show()
}

func (t *Terminal) ShowCursor(x, y int) {
	t.screen.ShowCursor(x, y)
}

func (t *Terminal) HideCursor() {
	t.screen.HideCursor()
}

func (t *Terminal) PollEvent() Event {
	ev := t.screen.PollEvent()
	if ev == nil {
		// Screen has been finalized.
		return Event{Type: EventClosed}
	}
	return convertEvent(ev)
}

func (t *Terminal) PostEvent(event Event) {
	if event.Type != EventKey {
		return
	}
	key, r, mod := convertToTcellKey(event)
	_ = t.screen.PostEvent(tcell.NewEventKey(key, r, mod)) // best-effort; queue may be full
}

func (t *Terminal) Beep() {
	_ = t.screen.Beep() // best-effort; terminal may not support bell
}

// convertStyle converts a Style to tcell.Style.
func convertStyle(s Style) tcell.Style {
	style := tcell.StyleDefault

	if s.Foreground != ColorDefault {
		style = style.Foreground(tcell.PaletteColor(int(s.Foreground)))
	}
	if s.Background != ColorDefault {
		style = style.Background(tcell.PaletteColor(int(s.Background)))
	}

	if s.Attrs.Has(AttrBold) {
		style = style.Bold(true)
	}
	if s.Attrs.Has(AttrDim) {
		style = style.Dim(true)
	}
	if s.Attrs.Has(AttrReverse) {
		style = style.Reverse(true)
	}
	if s.Attrs.Has(AttrUnderline) {
		style = style.Underline(true)
	}

	return style
}

// convertEvent converts a tcell event to an Event.
func convertEvent(ev tcell.Event) Event {
	switch e := ev.(type) {
	case *tcell.EventKey:
		key, r := convertKey(e.Key(), e.Rune())
		return Event{
			Type: EventKey,
			Key:  key,
			Rune: r,
			Mod:  convertMod(e.Modifiers()),
		}

	case *tcell.EventResize:
		w, h := e.Size()
		return Event{Type: EventResize, Width: w, Height: h}

	case *tcell.EventPaste:
		return Event{Type: EventPaste, Start: e.Start()}

	default:
		return Event{Type: EventNone}
	}
}

// convertKey maps a tcell key to a Key. Ctrl+letter chords collapse into
// KeyCtrl with the letter in the rune, which keeps keymap code free of a
// 26-way constant block.
func convertKey(k tcell.Key, r rune) (Key, rune) {
	switch k {
	case tcell.KeyRune:
		return KeyRune, r
	case tcell.KeyEscape:
		return KeyEscape, 0
	case tcell.KeyEnter:
		return KeyEnter, 0
	case tcell.KeyTab:
		return KeyTab, 0
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		return KeyBackspace, 0
	case tcell.KeyDelete:
		return KeyDelete, 0
	case tcell.KeyHome:
		return KeyHome, 0
	case tcell.KeyEnd:
		return KeyEnd, 0
	case tcell.KeyPgUp:
		return KeyPageUp, 0
	case tcell.KeyPgDn:
		return KeyPageDown, 0
	case tcell.KeyUp:
		return KeyUp, 0
	case tcell.KeyDown:
		return KeyDown, 0
	case tcell.KeyLeft:
		return KeyLeft, 0
	case tcell.KeyRight:
		return KeyRight, 0
	}

	// Control characters 0x01-0x1a are Ctrl+A through Ctrl+Z. Enter, Tab
	// and Backspace alias into this range and were handled above.
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		return KeyCtrl, 'a' + rune(k-tcell.KeyCtrlA)
	}

	if r != 0 {
		return KeyRune, r
	}
	return KeyNone, 0
}

// convertToTcellKey maps an Event back to tcell key parameters for PostEvent.
func convertToTcellKey(ev Event) (tcell.Key, rune, tcell.ModMask) {
	mod := convertToTcellMod(ev.Mod)
	switch ev.Key {
	case KeyRune:
		return tcell.KeyRune, ev.Rune, mod
	case KeyCtrl:
		if ev.Rune >= 'a' && ev.Rune <= 'z' {
			return tcell.KeyCtrlA + tcell.Key(ev.Rune-'a'), 0, mod | tcell.ModCtrl
		}
		return tcell.KeyRune, ev.Rune, mod | tcell.ModCtrl
	case KeyEscape:
		return tcell.KeyEscape, 0, mod
	case KeyEnter:
		return tcell.KeyEnter, 0, mod
	case KeyTab:
		return tcell.KeyTab, 0, mod
	case KeyBackspace:
		return tcell.KeyBackspace2, 0, mod
	case KeyDelete:
		return tcell.KeyDelete, 0, mod
	case KeyHome:
		return tcell.KeyHome, 0, mod
	case KeyEnd:
		return tcell.KeyEnd, 0, mod
	case KeyPageUp:
		return tcell.KeyPgUp, 0, mod
	case KeyPageDown:
		return tcell.KeyPgDn, 0, mod
	case KeyUp:
		return tcell.KeyUp, 0, mod
	case KeyDown:
		return tcell.KeyDown, 0, mod
	case KeyLeft:
		return tcell.KeyLeft, 0, mod
	case KeyRight:
		return tcell.KeyRight, 0, mod
	default:
		return tcell.KeyRune, ev.Rune, mod
	}
}

// convertMod converts a tcell modifier mask to a ModMask.
func convertMod(m tcell.ModMask) ModMask {
	var result ModMask
	if m&tcell.ModShift != 0 {
		result |= ModShift
	}
	if m&tcell.ModCtrl != 0 {
		result |= ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		result |= ModAlt
	}
	if m&tcell.ModMeta != 0 {
		result |= ModMeta
	}
	return result
}

// convertToTcellMod converts a ModMask to a tcell modifier mask.
func convertToTcellMod(m ModMask) tcell.ModMask {
	var result tcell.ModMask
	if m&ModShift != 0 {
		result |= tcell.ModShift
	}
	if m&ModCtrl != 0 {
		result |= tcell.ModCtrl
	}
	if m&ModAlt != 0 {
		result |= tcell.ModAlt
	}
	if m&ModMeta != 0 {
		result |= tcell.ModMeta
	}
	return result
}
