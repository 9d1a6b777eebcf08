package nav

import (
	"fmt"
	"strings"
)

type Key int

const (
	KeyOther Key = iota
	KeyTab
	KeyEnter
	KeyEscape
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
)

func (k Key) String() string {
	switch k {
	case KeyTab:
		return "tab"
	case KeyEnter:
		return "enter"
	case KeyEscape:
		return "esc"
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	default:
		return "other"
	}
}

type KeyEvent struct {
	Key   Key
	Alt   bool
	Ctrl  bool
	Meta  bool
	Shift bool
}

// ParseKey reads a key name such as "tab", "shift+tab" or "alt+ctrl+up". Home and End stand in
// for ctrl+up and ctrl+down, which many terminals swallow.
func ParseKey(s string) (KeyEvent, bool) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	var ev KeyEvent
	for _, mod := range parts[:len(parts)-1] {
		switch mod {
		case "alt":
			ev.Alt = true
		case "ctrl":
			ev.Ctrl = true
		case "meta", "cmd":
			ev.Meta = true
		case "shift":
			ev.Shift = true
		default:
			return KeyEvent{}, false
		}
	}
	switch parts[len(parts)-1] {
	case "tab":
		ev.Key = KeyTab
	case "enter":
		ev.Key = KeyEnter
	case "esc", "escape":
		ev.Key = KeyEscape
	case "left":
		ev.Key = KeyLeft
	case "right":
		ev.Key = KeyRight
	case "up":
		ev.Key = KeyUp
	case "down":
		ev.Key = KeyDown
	case "home":
		ev.Key, ev.Ctrl = KeyUp, true
	case "end":
		ev.Key, ev.Ctrl = KeyDown, true
	default:
		return KeyEvent{}, false
	}
	return ev, true
}

// Modifiers are derived once per event.
type Modifiers struct {
	MoveCodeline bool // Alt
	MoveToEnd    bool // Ctrl or Meta
	JumpForward  bool // Shift not held
	MoveForward  bool // Right or Down
}

func ModifiersOf(ev KeyEvent) Modifiers {
	return Modifiers{
		MoveCodeline: ev.Alt,
		MoveToEnd:    ev.Ctrl || ev.Meta,
		JumpForward:  !ev.Shift,
		MoveForward:  ev.Key == KeyRight || ev.Key == KeyDown,
	}
}

type FocusKind int

const (
	FocusNone FocusKind = iota
	FocusCodeline
	FocusBlank
)

// Focus is either a whole code line or one blank inside it. Suppressed is set after Escape
// and cleared when the host refocuses deliberately.
type Focus struct {
	Kind       FocusKind
	LineID     string
	Blank      int
	Suppressed bool
}

func (f Focus) String() string {
	switch f.Kind {
	case FocusCodeline:
		return "line:" + f.LineID
	case FocusBlank:
		return fmt.Sprintf("blank:%s#%d", f.LineID, f.Blank)
	default:
		return "none"
	}
}

func Codeline(id string) Focus { return Focus{Kind: FocusCodeline, LineID: id} }

func BlankAt(id string, i int) Focus { return Focus{Kind: FocusBlank, LineID: id, Blank: i} }

// Cursor describes the text cursor inside the focused blank.
type Cursor struct {
	Pos       int
	Len       int
	Selection bool
}

// Facts are the document facts a transition may depend on.
type Facts struct {
	InStarter   bool
	BlankCount  int
	GlobalBlank int
	TotalBlanks int
	Cursor      Cursor

	AlwaysIndentOnTab           bool
	AllowIndentingInStarterTray bool
}

type ActionKind int

const (
	ActNone ActionKind = iota
	// ActPassThrough leaves the key to the host's default text/focus behavior.
	ActPassThrough
	ActIndent
	ActMoveLineVertical
	ActMoveCursorVertical
	ActMoveLineHorizontal
	ActMoveCursorHorizontal
	ActFocusBlank
	ActFocusGlobalBlank
	ActFocusCodeline
	ActBlur
)

var actionNames = map[ActionKind]string{
	ActNone:                 "none",
	ActPassThrough:          "passThrough",
	ActIndent:               "indent",
	ActMoveLineVertical:     "moveLineVertical",
	ActMoveCursorVertical:   "moveCursorVertical",
	ActMoveLineHorizontal:   "moveLineHorizontal",
	ActMoveCursorHorizontal: "moveCursorHorizontal",
	ActFocusBlank:           "focusBlank",
	ActFocusGlobalBlank:     "focusGlobalBlank",
	ActFocusCodeline:        "focusCodeline",
	ActBlur:                 "blur",
}

func (k ActionKind) String() string { return actionNames[k] }

type Action struct {
	Kind      ActionKind
	Delta     int
	Forward   bool
	ToExtreme bool
	// Blank is a blank index within the focused line (ActFocusBlank) or a document-wide
	// blank index (ActFocusGlobalBlank).
	Blank int
	// CursorAtEnd places the text cursor at the end of the newly focused blank.
	CursorAtEnd bool
}

// Mutates reports whether the action can change the document.
func (a Action) Mutates() bool {
	switch a.Kind {
	case ActIndent, ActMoveLineVertical, ActMoveLineHorizontal:
		return true
	default:
		return false
	}
}

func sign(forward bool) int {
	if forward {
		return 1
	}
	return -1
}

// Step is the navigation transition function. It never touches the document: the returned
// action is applied by the host.
func Step(f Focus, ev KeyEvent, facts Facts) (Focus, Action) {
	switch f.Kind {
	case FocusCodeline:
		return stepCodeline(f, ev, facts)
	case FocusBlank:
		return stepBlank(f, ev, facts)
	default:
		return f, Action{Kind: ActNone}
	}
}

func vertical(mods Modifiers) Action {
	if mods.MoveCodeline {
		return Action{Kind: ActMoveLineVertical, Forward: mods.MoveForward, ToExtreme: mods.MoveToEnd}
	}
	return Action{Kind: ActMoveCursorVertical, Forward: mods.MoveForward, ToExtreme: mods.MoveToEnd}
}

func horizontal(mods Modifiers) Action {
	if mods.MoveCodeline {
		return Action{Kind: ActMoveLineHorizontal, Forward: mods.MoveForward}
	}
	return Action{Kind: ActMoveCursorHorizontal, Forward: mods.MoveForward}
}

func stepCodeline(f Focus, ev KeyEvent, facts Facts) (Focus, Action) {
	mods := ModifiersOf(ev)
	switch ev.Key {
	case KeyTab:
		if facts.InStarter && !facts.AllowIndentingInStarterTray && mods.JumpForward {
			return f, Action{Kind: ActMoveLineHorizontal, Forward: true}
		}
		return f, Action{Kind: ActIndent, Delta: sign(mods.JumpForward)}
	case KeyEnter:
		if facts.BlankCount == 0 {
			return f, Action{Kind: ActNone}
		}
		return BlankAt(f.LineID, 0), Action{Kind: ActFocusBlank, Blank: 0}
	case KeyEscape:
		return Focus{Kind: FocusNone, Suppressed: true}, Action{Kind: ActBlur}
	case KeyLeft, KeyRight:
		return f, horizontal(mods)
	case KeyUp, KeyDown:
		return f, vertical(mods)
	default:
		return f, Action{Kind: ActPassThrough}
	}
}

func stepBlank(f Focus, ev KeyEvent, facts Facts) (Focus, Action) {
	mods := ModifiersOf(ev)
	i := f.Blank
	last := facts.BlankCount - 1
	switch ev.Key {
	case KeyTab:
		forward := mods.JumpForward
		if (i == last && forward) || (i == 0 && !forward) || facts.AlwaysIndentOnTab {
			return f, Action{Kind: ActIndent, Delta: sign(forward)}
		}
		return f, Action{Kind: ActPassThrough}
	case KeyEscape:
		return Codeline(f.LineID), Action{Kind: ActFocusCodeline}
	case KeyEnter:
		if facts.TotalBlanks <= 0 {
			return f, Action{Kind: ActNone}
		}
		delta := sign(mods.JumpForward)
		next := (facts.GlobalBlank + facts.TotalBlanks + delta) % facts.TotalBlanks
		return f, Action{Kind: ActFocusGlobalBlank, Blank: next}
	case KeyUp, KeyDown:
		return f, vertical(mods)
	case KeyLeft, KeyRight:
		if mods.MoveCodeline {
			return f, horizontal(mods)
		}
		left := ev.Key == KeyLeft
		c := facts.Cursor
		atEdge := !c.Selection && ((left && c.Pos <= 0) || (!left && c.Pos >= c.Len))
		if !atEdge {
			return f, Action{Kind: ActPassThrough}
		}
		if (left && i == 0) || (!left && i == last) {
			return f, Action{Kind: ActMoveCursorHorizontal, Forward: !left}
		}
		if left {
			return BlankAt(f.LineID, i-1), Action{Kind: ActFocusBlank, Blank: i - 1, CursorAtEnd: true}
		}
		return BlankAt(f.LineID, i+1), Action{Kind: ActFocusBlank, Blank: i + 1}
	default:
		return f, Action{Kind: ActPassThrough}
	}
}
