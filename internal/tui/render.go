package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"parsons-cli/internal/codec"
	"parsons-cli/internal/config"
	"parsons-cli/internal/model"
	"parsons-cli/internal/nav"
)

func (m screenModel) View() string {
	var b strings.Builder
	if title := m.sess.Exercise.Title; title != "" {
		b.WriteString(truncate(lipgloss.NewStyle().Bold(true).Render(title), m.width))
		b.WriteByte('\n')
	}
	if m.prompt.Height > 0 {
		b.WriteString(m.prompt.View())
		b.WriteString("\n\n")
	}
	b.WriteString(m.trays())
	b.WriteString("\n\n")
	if m.status != "" {
		st := styleMuted()
		if strings.HasPrefix(m.status, "warning") || strings.HasPrefix(m.status, "error") {
			st = styleWarn()
		}
		b.WriteString(truncate(st.Render(m.status), m.width))
		b.WriteByte('\n')
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m screenModel) trays() string {
	doc := m.sess.Document()
	ex := m.sess.Exercise
	paneW := m.geo.paneWidth(doc)
	focusTray := model.TrayID("")
	if l, ok := doc.Line(m.sess.Focused().LineID); ok {
		focusTray = doc.TrayOf(l)
	}

	var solution []string
	solution = append(solution, truncate(styleTitle(focusTray == model.TraySolution).Render("Solution"), paneW))
	if ex.Widget.Format == config.FormatBottom && strings.TrimSpace(ex.PreText) != "" {
		for _, ln := range strings.Split(strings.TrimRight(ex.PreText, "\n"), "\n") {
			solution = append(solution, truncate(styleMuted().Render(ln), paneW))
		}
	}
	solution = append(solution, m.trayRows(model.TraySolution, paneW)...)
	if ex.Widget.Format == config.FormatBottom && strings.TrimSpace(ex.PostText) != "" {
		for _, ln := range strings.Split(strings.TrimRight(ex.PostText, "\n"), "\n") {
			solution = append(solution, truncate(styleMuted().Render(ln), paneW))
		}
	}
	solPane := lipgloss.NewStyle().Width(paneW).Render(strings.Join(solution, "\n"))
	if !doc.HasStarter() {
		return solPane
	}

	starter := []string{truncate(styleTitle(focusTray == model.TrayStarter).Render("Drag from here"), paneW)}
	starter = append(starter, m.trayRows(model.TrayStarter, paneW)...)
	starterPane := lipgloss.NewStyle().Width(paneW).Render(strings.Join(starter, "\n"))

	if m.geo.Format == config.FormatBottom {
		return lipgloss.JoinVertical(lipgloss.Left, starterPane, solPane)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, starterPane, solPane)
}

func (m screenModel) trayRows(tray model.TrayID, width int) []string {
	doc := m.sess.Document()
	lines := doc.LinesOf(tray)
	if len(lines) == 0 {
		return []string{styleMuted().Render("  (empty)")}
	}
	focus := m.sess.Focused()
	unit := doc.Settings().IndentUnitChars
	rows := make([]string, 0, len(lines))
	for _, l := range lines {
		var b strings.Builder
		b.WriteString("  ")
		b.WriteString(guides(l.Indent(), unit))
		segs := l.Segments()
		vals := l.BlankValues()
		for i, seg := range segs {
			b.WriteString(seg)
			if i >= len(vals) {
				continue
			}
			if focus.Kind == nav.FocusBlank && focus.LineID == l.ID && focus.Blank == i {
				b.WriteString(m.input.View())
				continue
			}
			b.WriteString(renderBlank(vals[i]))
		}
		row := truncate(b.String(), width)
		if focus.Kind != nav.FocusNone && focus.LineID == l.ID && focus.Kind == nav.FocusCodeline {
			row = styleFocusedLine().Render(row)
		}
		rows = append(rows, row)
	}
	return rows
}

// guides draws one vertical rule per indent unit.
func guides(level, unit int) string {
	if level <= 0 {
		return ""
	}
	pad := codec.Pad(1, unit)
	return strings.Repeat(styleGuide().Render("│"+pad[1:]), level)
}

func renderBlank(v string) string {
	if v == "" {
		return styleBlank().Render("____")
	}
	return styleBlank().Render(v)
}

func truncate(s string, w int) string {
	if w <= 0 || xansi.StringWidth(s) <= w {
		return s
	}
	return xansi.Truncate(s, w, "…")
}
