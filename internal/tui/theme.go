package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted      lipgloss.TerminalColor = ac("240", "243")
	colorGuide      lipgloss.TerminalColor = ac("250", "238")
	colorSelectedBg lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg lipgloss.TerminalColor = ac("235", "255")
	colorAccent     lipgloss.TerminalColor = ac("27", "62")
	colorBlankFg    lipgloss.TerminalColor = ac("27", "111")
	colorWarn       lipgloss.TerminalColor = ac("124", "203")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleGuide() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorGuide)
}

func styleTitle(active bool) lipgloss.Style {
	st := lipgloss.NewStyle().Bold(true)
	if active {
		return st.Foreground(colorAccent)
	}
	return st.Foreground(colorMuted)
}

func styleFocusedLine() lipgloss.Style {
	return lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorSelectedFg)
}

func styleBlank() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorBlankFg).Underline(true)
}

func styleWarn() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorWarn)
}

// applyColorProfilePreference sets Lip Gloss's color profile for the interactive TUI.
// Only NO_COLOR (or --no-color) disables color; otherwise the terminal's capabilities win.
func applyColorProfilePreference(noColor bool) {
	if noColor || strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	profile := termenv.ColorProfile()
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	switch {
	case strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit"):
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	case strings.Contains(term, "256color"):
		if profile == termenv.Ascii || profile == termenv.ANSI {
			profile = termenv.ANSI256
		}
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference picks the light/dark palette: PARSONS_TUI_THEME=light|dark, then the
// COLORFGBG heuristic.
func applyThemePreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("PARSONS_TUI_THEME"))) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}
