package reorder

import (
	"math"

	"parsons-cli/internal/codec"
	"parsons-cli/internal/indent"
	"parsons-cli/internal/model"
)

// Log tags for completed reorder actions.
const (
	TagMoveInput    = "moveInput"
	TagMoveOutput   = "moveOutput"
	TagAddOutput    = "addOutput"
	TagRemoveOutput = "removeOutput"
)

// Geometry reports a line's vertical midpoint in screen space ((top+bottom)/2).
type Geometry interface {
	Midpoint(d *model.Document, l *model.CodeLine) (float64, bool)
}

// RowGeometry lays every tray out as rows of equal height starting at a per-tray offset.
type RowGeometry struct {
	RowHeight float64
	Offsets   map[model.TrayID]float64
}

func (g RowGeometry) Midpoint(d *model.Document, l *model.CodeLine) (float64, bool) {
	i := d.IndexOf(l)
	if i < 0 {
		return 0, false
	}
	h := g.RowHeight
	if h <= 0 {
		h = 1
	}
	return g.Offsets[d.TrayOf(l)] + (float64(i)+0.5)*h, true
}

// DragEvent is a completed pointer drag: the line at From[FromIndex] was dropped at
// To[ToIndex] with a net horizontal displacement of OffsetPx.
type DragEvent struct {
	From      model.TrayID `json:"from"`
	FromIndex int          `json:"fromIndex"`
	To        model.TrayID `json:"to"`
	ToIndex   int          `json:"toIndex"`
	OffsetPx  float64      `json:"offsetPx"`
}

type Engine struct {
	doc    *model.Document
	indent *indent.Model
	geo    Geometry

	// Emit receives one entry per completed action.
	Emit func(tag string, data any)
}

func New(doc *model.Document, im *indent.Model, geo Geometry) *Engine {
	if geo == nil {
		geo = RowGeometry{RowHeight: 1}
	}
	return &Engine{doc: doc, indent: im, geo: geo}
}

func (e *Engine) emit(tag string, l *model.CodeLine) {
	if e.Emit == nil {
		return
	}
	e.Emit(tag, codec.Summarize(e.doc, l))
}

func withinTag(tray model.TrayID) string {
	if tray == model.TrayStarter {
		return TagMoveInput
	}
	return TagMoveOutput
}

func acrossTag(to model.TrayID) string {
	if to == model.TraySolution {
		return TagAddOutput
	}
	return TagRemoveOutput
}

// MoveVertical moves a line one step up (forward=false) or down within its tray, or to the
// first/last position when toExtreme is set. It reports whether the document changed.
func (e *Engine) MoveVertical(l *model.CodeLine, forward, toExtreme bool) bool {
	tray := e.doc.TrayOf(l)
	idx := e.doc.IndexOf(l)
	n := len(e.doc.LinesOf(tray))
	if idx < 0 {
		return false
	}
	var at int
	switch {
	case toExtreme && forward:
		at = n - 1
	case toExtreme:
		at = 0
	case forward:
		if idx >= n-1 {
			return false
		}
		at = idx + 1
	default:
		if idx == 0 {
			return false
		}
		at = idx - 1
	}
	if at == idx {
		return false
	}
	if !e.doc.Move(l, tray, at) {
		return false
	}
	e.emit(withinTag(tray), l)
	return true
}

// Destination returns the tray horizontal motion leads to from the line's tray.
func (e *Engine) Destination(l *model.CodeLine, forward bool) (model.TrayID, bool) {
	if !e.doc.HasStarter() {
		return "", false
	}
	from := e.doc.TrayOf(l)
	switch {
	case forward && from == model.TrayStarter:
		return model.TraySolution, true
	case !forward && from == model.TraySolution:
		return model.TrayStarter, true
	default:
		return "", false
	}
}

// Nearest finds the line in tray whose midpoint is closest to mid. Ties go to the first
// line in tray order.
func (e *Engine) Nearest(tray model.TrayID, mid float64) (*model.CodeLine, float64, bool) {
	var best *model.CodeLine
	bestMid := 0.0
	bestDist := math.Inf(1)
	for _, c := range e.doc.LinesOf(tray) {
		cm, ok := e.geo.Midpoint(e.doc, c)
		if !ok {
			continue
		}
		if d := math.Abs(cm - mid); d < bestDist {
			best, bestMid, bestDist = c, cm, d
		}
	}
	return best, bestMid, best != nil
}

// Placement computes where horizontal motion would put the line: before the nearest line
// in the destination when that line sits below, after it otherwise, appended when the
// destination has no candidate.
func (e *Engine) Placement(l *model.CodeLine, forward bool) (model.TrayID, int, bool) {
	dst, ok := e.Destination(l, forward)
	if !ok {
		return "", 0, false
	}
	end := len(e.doc.LinesOf(dst))
	mid, ok := e.geo.Midpoint(e.doc, l)
	if !ok {
		return dst, end, true
	}
	c, cm, ok := e.Nearest(dst, mid)
	if !ok {
		return dst, end, true
	}
	at := e.doc.IndexOf(c)
	if cm <= mid {
		at++
	}
	return dst, at, true
}

// MoveHorizontal transfers the line to the adjacent tray, keeping its indent.
func (e *Engine) MoveHorizontal(l *model.CodeLine, forward bool) bool {
	return e.moveHorizontal(l, forward, 0, false)
}

// MoveHorizontalBy transfers the line and, when it lands in the solution tray, recomputes
// its indent from a pointer offset.
func (e *Engine) MoveHorizontalBy(l *model.CodeLine, forward bool, offsetPx float64) bool {
	return e.moveHorizontal(l, forward, offsetPx, true)
}

func (e *Engine) moveHorizontal(l *model.CodeLine, forward bool, px float64, hasPx bool) bool {
	dst, at, ok := e.Placement(l, forward)
	if !ok {
		return false
	}
	if !e.doc.Move(l, dst, at) {
		return false
	}
	if hasPx && dst == model.TraySolution && e.indent != nil {
		e.indent.ApplyPixels(l, px)
	}
	e.emit(acrossTag(dst), l)
	return true
}

// Drop applies a completed pointer drag. Drops onto the solution tray recompute indent from
// the horizontal offset. It reports false, changing nothing, for an unknown source.
func (e *Engine) Drop(ev DragEvent) bool {
	src := e.doc.LinesOf(ev.From)
	if ev.FromIndex < 0 || ev.FromIndex >= len(src) {
		return false
	}
	l := src[ev.FromIndex]
	before := e.doc.Revision()
	if !e.doc.Move(l, ev.To, ev.ToIndex) {
		return false
	}
	if ev.To == model.TraySolution && e.indent != nil {
		e.indent.ApplyPixels(l, ev.OffsetPx)
	}
	if e.doc.Revision() == before {
		return false
	}
	if ev.From == ev.To {
		e.emit(withinTag(ev.To), l)
	} else {
		e.emit(acrossTag(ev.To), l)
	}
	return true
}
