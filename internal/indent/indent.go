package indent

import (
	"math"

	"parsons-cli/internal/codec"
	"parsons-cli/internal/model"
)

// Change is reported to the observer before a reindent is applied.
type Change struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Old     int    `json:"old"`
	New     int    `json:"new"`
}

const ChangeReindent = "reindent"

// LevelOf reads a line's stored indent, treating a missing line or negative value as 0.
func LevelOf(l *model.CodeLine) int {
	if l == nil || l.Indent() < 0 {
		return 0
	}
	return l.Indent()
}

// DeltaFromPixels converts a horizontal pixel displacement into whole indent units:
// floor(px / charWidthPx / unitChars). Non-positive widths yield 0.
func DeltaFromPixels(px, charWidthPx float64, unitChars int) int {
	if charWidthPx <= 0 || unitChars <= 0 || math.IsNaN(px) || math.IsInf(px, 0) {
		return 0
	}
	return int(math.Floor(px / charWidthPx / float64(unitChars)))
}

// MaxIndent returns the deepest indent in a tray.
func MaxIndent(d *model.Document, tray model.TrayID) int {
	m := 0
	for _, l := range d.LinesOf(tray) {
		if v := LevelOf(l); v > m {
			m = v
		}
	}
	return m
}

// Model applies indent changes to a document and notifies observers.
type Model struct {
	doc *model.Document

	// OnChange runs before the mutation is applied.
	OnChange func(l *model.CodeLine, c Change)
	// OnGuides runs after every applied change with the solution tray's max indent.
	OnGuides func(maxIndent int)
}

func New(doc *model.Document) *Model {
	return &Model{doc: doc}
}

// Apply sets the line's indent to v (absolute) or shifts it by v (relative), clamped at 0.
// It returns the resulting level. Nothing happens when indenting is disabled, when the line
// sits in the starter tray, or when the level would not change.
func (m *Model) Apply(l *model.CodeLine, v int, absolute bool) int {
	cur := LevelOf(l)
	if !m.doc.Settings().IndentingEnabled {
		return cur
	}
	if m.doc.TrayOf(l) == model.TrayStarter {
		return cur
	}
	next := v
	if !absolute {
		next = cur + v
	}
	if next < 0 {
		next = 0
	}
	if next == cur {
		return cur
	}
	if m.OnChange != nil {
		m.OnChange(l, Change{
			Type:    ChangeReindent,
			Content: codec.TextOf(l, m.doc.Settings().IndentUnitChars),
			Old:     cur,
			New:     next,
		})
	}
	m.doc.SetIndent(l, next)
	if m.OnGuides != nil {
		m.OnGuides(MaxIndent(m.doc, model.TraySolution))
	}
	return next
}

// ApplyPixels shifts the line by the indent delta a pointer drag's horizontal offset encodes.
func (m *Model) ApplyPixels(l *model.CodeLine, px float64) int {
	s := m.doc.Settings()
	return m.Apply(l, DeltaFromPixels(px, s.CharWidthPx, s.IndentUnitChars), false)
}
