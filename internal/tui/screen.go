package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parsons-cli/internal/model"
	"parsons-cli/internal/nav"
	"parsons-cli/internal/reorder"
	"parsons-cli/internal/session"
)

const maxPromptRows = 8

type dragState struct {
	lineID string
	from   model.TrayID
	index  int
	x      int
}

type exportedMsg struct{ lines int }

// screenModel projects one session onto the terminal. The session is the source of truth;
// the model only keeps view state (sizes, the blank editor, an in-progress drag).
type screenModel struct {
	ctx  context.Context
	sess *session.Session
	geo  *Geometry

	keys   keyMap
	help   help.Model
	prompt viewport.Model
	input  textinput.Model

	width  int
	height int

	// lastFocus is the focus the blank editor was last synced to.
	lastFocus nav.Focus
	// resume is the line refocused by enter after escape cleared focus.
	resume string
	drag   *dragState
	status string
}

func newScreenModel(ctx context.Context, sess *session.Session, geo *Geometry) screenModel {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "…"
	m := screenModel{
		ctx:    ctx,
		sess:   sess,
		geo:    geo,
		keys:   defaultKeyMap(),
		help:   help.New(),
		prompt: viewport.New(80, 0),
		input:  in,
		width:  80,
		height: 24,
	}
	m.resize(80, 24)
	m.syncInput()
	return m
}

func (m screenModel) Init() tea.Cmd { return nil }

func (m *screenModel) resize(w, h int) {
	m.width, m.height = w, h
	m.help.Width = w
	text := renderPrompt(m.sess.Exercise.Prompt, w-2)
	rows := 0
	if text != "" {
		rows = lipgloss.Height(text)
		if rows > maxPromptRows {
			rows = maxPromptRows
		}
	}
	m.prompt.Width = w
	m.prompt.Height = rows
	m.prompt.SetContent(text)

	top := 0
	if title := m.sess.Exercise.Title; title != "" {
		top++
	}
	if rows > 0 {
		top += rows + 1
	}
	m.geo.Top = top
	m.geo.Width = w
}

// syncInput loads the focused blank into the editor when focus moved onto a new blank.
func (m *screenModel) syncInput() {
	f := m.sess.Focused()
	if f == m.lastFocus {
		return
	}
	m.lastFocus = f
	if f.Kind != nav.FocusBlank {
		m.input.Blur()
		return
	}
	l, ok := m.sess.Document().Line(f.LineID)
	if !ok {
		return
	}
	vals := l.BlankValues()
	if f.Blank < len(vals) {
		m.input.SetValue(vals[f.Blank])
	}
	m.input.CursorStart()
	m.input.Focus()
}

func (m *screenModel) cursor() nav.Cursor {
	if m.sess.Focused().Kind != nav.FocusBlank {
		return nav.Cursor{}
	}
	return nav.Cursor{Pos: m.input.Position(), Len: len([]rune(m.input.Value()))}
}

func (m *screenModel) report(err error) {
	switch {
	case err != nil:
		m.status = "error: " + err.Error()
	case len(m.sess.Warnings()) > 0:
		m.status = "warning: " + strings.Join(m.sess.Warnings(), "; ")
	default:
		m.status = ""
	}
}

func (m screenModel) editingBlank() bool {
	return m.sess.Focused().Kind == nav.FocusBlank
}

func (m screenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case exportedMsg:
		m.status = fmt.Sprintf("copied %d lines", msg.lines)
		return m, nil

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case tea.KeyMsg:
		switch {
		case msg.String() == "ctrl+c":
			return m, tea.Quit
		case key.Matches(msg, m.keys.Quit) && !m.editingBlank():
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help) && !m.editingBlank():
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Export):
			text := m.sess.Export()
			n := 0
			if text != "" {
				n = strings.Count(text, "\n") + 1
			}
			return m, func() tea.Msg { return exportedMsg{lines: n} }
		case key.Matches(msg, m.keys.Prompt):
			var cmd tea.Cmd
			m.prompt, cmd = m.prompt.Update(msg)
			return m, cmd
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m screenModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ev, isNav := navKey(msg)

	if m.sess.Focused().Kind == nav.FocusNone {
		if isNav && ev.Key == nav.KeyEnter {
			m.refocus()
		}
		return m, nil
	}
	if !isNav {
		if m.editingBlank() {
			return m.updateInput(msg)
		}
		return m, nil
	}

	if f := m.sess.Focused(); f.Kind != nav.FocusNone {
		m.resume = f.LineID
	}
	act, err := m.sess.HandleKey(m.ctx, ev, m.cursor())
	m.report(err)

	if act.Kind == nav.ActPassThrough && m.editingBlank() && (ev.Key == nav.KeyLeft || ev.Key == nav.KeyRight) {
		return m.updateInput(msg)
	}
	m.syncInput()
	if act.Kind == nav.ActFocusBlank && act.CursorAtEnd {
		m.input.CursorEnd()
	}
	return m, nil
}

// refocus is the deliberate re-entry after escape: the last focused line, else the first.
func (m *screenModel) refocus() {
	if m.resume != "" {
		if err := m.sess.Focus(nav.Codeline(m.resume)); err == nil {
			return
		}
	}
	if ls := m.sess.Document().Lines(); len(ls) > 0 {
		_ = m.sess.Focus(nav.Codeline(ls[0].ID))
	}
}

func (m screenModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		f := m.sess.Focused()
		m.report(m.sess.SetBlank(m.ctx, f.LineID, f.Blank, v))
	}
	return m, cmd
}

func (m screenModel) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	doc := m.sess.Document()
	switch msg.Action {
	case tea.MouseActionPress:
		l, ok := m.geo.LineAt(doc, msg.X, msg.Y)
		if !ok {
			return m, nil
		}
		_ = m.sess.Focus(nav.Codeline(l.ID))
		m.syncInput()
		m.drag = &dragState{lineID: l.ID, from: doc.TrayOf(l), index: doc.IndexOf(l), x: msg.X}
	case tea.MouseActionRelease:
		d := m.drag
		m.drag = nil
		if d == nil {
			return m, nil
		}
		to, at := m.geo.Hit(doc, msg.X, msg.Y)
		// Indent follows the horizontal displacement within the panes, not across them.
		dx := (msg.X - m.geo.left(doc, to)) - (d.x - m.geo.left(doc, d.from))
		if to == d.from && at == d.index && dx == 0 {
			return m, nil
		}
		_, err := m.sess.Drop(m.ctx, reorder.DragEvent{
			From:      d.from,
			FromIndex: d.index,
			To:        to,
			ToIndex:   at,
			OffsetPx:  float64(dx) * doc.Settings().CharWidthPx,
		})
		m.report(err)
		m.syncInput()
	}
	return m, nil
}
