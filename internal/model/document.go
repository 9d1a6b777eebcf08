package model

import (
	"errors"
	"fmt"

	"parsons-cli/internal/config"
)

type TrayID string

const (
	TrayStarter  TrayID = "starter"
	TraySolution TrayID = "solution"
)

// ErrMissingSolutionTray is a configuration error: every document needs a solution tray.
var ErrMissingSolutionTray = errors.New("missing solution tray")

// Blank is a single fill-in slot inside a code line.
type Blank struct {
	Index int
	Value string
}

// CodeLine is one orderable unit of code. Its template (segments + prefilled values) is
// immutable; only blank values, indent and tray membership change at runtime.
type CodeLine struct {
	ID string

	segments []string
	prefill  []string
	blanks   []*Blank

	indent int
	tray   TrayID
}

func (l *CodeLine) Segments() []string { return append([]string(nil), l.segments...) }

// Prefill returns the authored blank values (one per blank, possibly empty).
func (l *CodeLine) Prefill() []string { return append([]string(nil), l.prefill...) }

func (l *CodeLine) Indent() int  { return l.indent }
func (l *CodeLine) Tray() TrayID { return l.tray }

func (l *CodeLine) BlankCount() int { return len(l.blanks) }

// BlankValues returns the current blank values in order.
func (l *CodeLine) BlankValues() []string {
	out := make([]string, len(l.blanks))
	for i, b := range l.blanks {
		out[i] = b.Value
	}
	return out
}

// LineTemplate is the authored form of a code line.
type LineTemplate struct {
	Segments []string
	Prefill  []string
	Indent   int
}

// Blanks returns the number of blanks the template declares.
func (t LineTemplate) Blanks() int {
	if len(t.Segments) == 0 {
		return 0
	}
	return len(t.Segments) - 1
}

type TraySpec struct {
	Lines []LineTemplate
}

// Layout is the authored arrangement. Starter may be nil (no starter tray); Solution may not.
type Layout struct {
	Starter  *TraySpec
	Solution *TraySpec
}

type Tray struct {
	ID    TrayID
	lines []*CodeLine
}

func (t *Tray) Len() int { return len(t.lines) }

// Document is the ordered pair (starter, solution) plus the widget configuration.
type Document struct {
	settings config.Widget
	starter  *Tray
	solution *Tray
	byID     map[string]*CodeLine
	revision uint64
}

func trayIndex(id TrayID) int {
	if id == TrayStarter {
		return 0
	}
	return 1
}

// New builds a document from the authored layout. Logging ids are assigned here, once.
func New(layout Layout, settings config.Widget) (*Document, error) {
	if layout.Solution == nil {
		return nil, ErrMissingSolutionTray
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	d := &Document{
		settings: settings,
		solution: &Tray{ID: TraySolution},
		byID:     map[string]*CodeLine{},
	}
	if layout.Starter != nil {
		d.starter = &Tray{ID: TrayStarter}
		if err := d.fill(d.starter, layout.Starter.Lines); err != nil {
			return nil, err
		}
	}
	if err := d.fill(d.solution, layout.Solution.Lines); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) fill(t *Tray, templates []LineTemplate) error {
	for i, tpl := range templates {
		segs := tpl.Segments
		if len(segs) == 0 {
			segs = []string{""}
		}
		n := len(segs) - 1
		if len(tpl.Prefill) > n {
			return fmt.Errorf("%s line %d: %d prefilled values for %d blanks", t.ID, i, len(tpl.Prefill), n)
		}
		l := &CodeLine{
			ID:       fmt.Sprintf("%d.%d", trayIndex(t.ID), i),
			segments: append([]string(nil), segs...),
			prefill:  make([]string, n),
			blanks:   make([]*Blank, n),
			tray:     t.ID,
		}
		copy(l.prefill, tpl.Prefill)
		for b := 0; b < n; b++ {
			l.blanks[b] = &Blank{Index: b, Value: l.prefill[b]}
		}
		if t.ID == TraySolution && tpl.Indent > 0 {
			l.indent = tpl.Indent
		}
		t.lines = append(t.lines, l)
		d.byID[l.ID] = l
	}
	return nil
}

func (d *Document) Settings() config.Widget { return d.settings }

// Revision increases on every committed mutation.
func (d *Document) Revision() uint64 { return d.revision }

func (d *Document) HasStarter() bool { return d.starter != nil }

func (d *Document) tray(id TrayID) *Tray {
	switch id {
	case TrayStarter:
		return d.starter
	case TraySolution:
		return d.solution
	default:
		return nil
	}
}

// Trays returns the trays that exist, in document order (starter first).
func (d *Document) Trays() []TrayID {
	if d.starter != nil {
		return []TrayID{TrayStarter, TraySolution}
	}
	return []TrayID{TraySolution}
}

// LinesOf returns a snapshot of a tray's lines in order. Absent trays yield nil.
func (d *Document) LinesOf(id TrayID) []*CodeLine {
	t := d.tray(id)
	if t == nil {
		return nil
	}
	return append([]*CodeLine(nil), t.lines...)
}

func (d *Document) TrayOf(l *CodeLine) TrayID { return l.tray }

// IndexOf returns the line's position within its tray, or -1 when it is not part of the document.
func (d *Document) IndexOf(l *CodeLine) int {
	t := d.tray(l.tray)
	if t == nil {
		return -1
	}
	for i, x := range t.lines {
		if x == l {
			return i
		}
	}
	return -1
}

func (d *Document) BlanksOf(l *CodeLine) []*Blank { return append([]*Blank(nil), l.blanks...) }

func (d *Document) Line(id string) (*CodeLine, bool) {
	l, ok := d.byID[id]
	return l, ok
}

// Lines returns every line in document order.
func (d *Document) Lines() []*CodeLine {
	var out []*CodeLine
	for _, id := range d.Trays() {
		out = append(out, d.tray(id).lines...)
	}
	return out
}

type BlankRef struct {
	Line  *CodeLine
	Index int
}

// AllBlanks lists every blank in document order.
func (d *Document) AllBlanks() []BlankRef {
	var out []BlankRef
	for _, l := range d.Lines() {
		for i := range l.blanks {
			out = append(out, BlankRef{Line: l, Index: i})
		}
	}
	return out
}

// GlobalBlankIndex returns the blank's position in AllBlanks, or -1.
func (d *Document) GlobalBlankIndex(l *CodeLine, i int) int {
	n := 0
	for _, x := range d.Lines() {
		if x == l {
			if i < 0 || i >= len(x.blanks) {
				return -1
			}
			return n + i
		}
		n += len(x.blanks)
	}
	return -1
}

// Move transfers a line to position at of tray to, atomically. at is clamped to the tray
// bounds after the line has been removed from its current position. Entering the starter
// tray forces indent 0. It reports false (and changes nothing) for unknown lines or trays.
func (d *Document) Move(l *CodeLine, to TrayID, at int) bool {
	src := d.tray(l.tray)
	dst := d.tray(to)
	if src == nil || dst == nil {
		return false
	}
	from := d.IndexOf(l)
	if from < 0 {
		return false
	}

	rest := make([]*CodeLine, 0, len(src.lines)-1)
	rest = append(rest, src.lines[:from]...)
	rest = append(rest, src.lines[from+1:]...)

	target := dst.lines
	if dst == src {
		target = rest
	}
	if at < 0 {
		at = 0
	}
	if at > len(target) {
		at = len(target)
	}
	if dst == src && at == from {
		return true
	}
	final := make([]*CodeLine, 0, len(target)+1)
	final = append(final, target[:at]...)
	final = append(final, l)
	final = append(final, target[at:]...)

	if dst != src {
		src.lines = rest
	}
	dst.lines = final
	l.tray = to
	if to == TrayStarter {
		l.indent = 0
	}
	d.revision++
	return true
}

// SetIndent stores a clamped indent level. Lines in the starter tray stay at 0.
func (d *Document) SetIndent(l *CodeLine, level int) {
	if level < 0 {
		level = 0
	}
	if l.tray == TrayStarter {
		level = 0
	}
	if l.indent == level {
		return
	}
	l.indent = level
	d.revision++
}

// SetBlank stores learner text for blank i. It reports false for an out-of-range blank.
func (d *Document) SetBlank(l *CodeLine, i int, value string) bool {
	if i < 0 || i >= len(l.blanks) {
		return false
	}
	if l.blanks[i].Value == value {
		return true
	}
	l.blanks[i].Value = value
	d.revision++
	return true
}
