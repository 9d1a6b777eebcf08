package tui

import (
	"strings"

	"parsons-cli/internal/config"
	"parsons-cli/internal/exercise"
	"parsons-cli/internal/model"
)

// Geometry is the screen layout of the trays. Rows are one terminal line each; the
// reorder engine reads midpoints from it and mouse drags are hit-tested against it.
//
// right:  starter | solution side by side, both starting below the prompt.
// bottom: starter above, pre_text, solution, post_text.
type Geometry struct {
	Format   string
	Top      int
	Width    int
	preLines int
}

func NewGeometry(ex *exercise.Exercise) *Geometry {
	g := &Geometry{Format: ex.Widget.Format}
	if g.Format == config.FormatBottom && strings.TrimSpace(ex.PreText) != "" {
		g.preLines = len(strings.Split(strings.TrimRight(ex.PreText, "\n"), "\n"))
	}
	return g
}

func rowsOf(d *model.Document, tray model.TrayID) int {
	if n := len(d.LinesOf(tray)); n > 0 {
		return n
	}
	return 1
}

// origin is the screen row of the first line of tray (each tray has a one-row title above).
func (g *Geometry) origin(d *model.Document, tray model.TrayID) int {
	top := g.Top + 1
	if !d.HasStarter() || tray == model.TrayStarter {
		if tray == model.TraySolution {
			top += g.preLines
		}
		return top
	}
	if g.Format == config.FormatBottom {
		return top + rowsOf(d, model.TrayStarter) + 1 + g.preLines
	}
	return top
}

func (g *Geometry) Midpoint(d *model.Document, l *model.CodeLine) (float64, bool) {
	i := d.IndexOf(l)
	if i < 0 {
		return 0, false
	}
	return float64(g.origin(d, d.TrayOf(l))+i) + 0.5, true
}

// paneWidth is the width of one tray column in the right format.
func (g *Geometry) paneWidth(d *model.Document) int {
	if g.Format == config.FormatBottom || !d.HasStarter() {
		return g.Width
	}
	return g.Width / 2
}

// left is the first screen column of tray's pane.
func (g *Geometry) left(d *model.Document, tray model.TrayID) int {
	if tray == model.TraySolution && g.Format != config.FormatBottom && d.HasStarter() {
		return g.paneWidth(d)
	}
	return 0
}

// trayAt resolves a screen cell to a tray.
func (g *Geometry) trayAt(d *model.Document, x, y int) model.TrayID {
	if !d.HasStarter() {
		return model.TraySolution
	}
	if g.Format == config.FormatBottom {
		if y >= g.origin(d, model.TraySolution)-1-g.preLines {
			return model.TraySolution
		}
		return model.TrayStarter
	}
	if x >= g.paneWidth(d) {
		return model.TraySolution
	}
	return model.TrayStarter
}

// Hit returns the tray and insertion row under a screen cell. Rows past the end of a tray
// map to its end.
func (g *Geometry) Hit(d *model.Document, x, y int) (model.TrayID, int) {
	tray := g.trayAt(d, x, y)
	i := y - g.origin(d, tray)
	if i < 0 {
		i = 0
	}
	if n := len(d.LinesOf(tray)); i > n {
		i = n
	}
	return tray, i
}

// LineAt returns the line drawn on a screen cell.
func (g *Geometry) LineAt(d *model.Document, x, y int) (*model.CodeLine, bool) {
	tray := g.trayAt(d, x, y)
	i := y - g.origin(d, tray)
	lines := d.LinesOf(tray)
	if i < 0 || i >= len(lines) {
		return nil, false
	}
	return lines[i], true
}
