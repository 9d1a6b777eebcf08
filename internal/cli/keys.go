package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"parsons-cli/internal/codec"
	"parsons-cli/internal/model"
	"parsons-cli/internal/nav"
	"parsons-cli/internal/reorder"
	"parsons-cli/internal/session"

	"github.com/spf13/cobra"
)

type keyStep struct {
	Input  string `json:"input"`
	Action string `json:"action"`
	Focus  string `json:"focus"`
}

type keysResult struct {
	SessionID string     `json:"sessionId"`
	Steps     []keyStep  `json:"steps"`
	Focus     string     `json:"focus"`
	Code      codec.Code `json:"code"`
	Warnings  []string   `json:"warnings,omitempty"`
}

func (r keysResult) Text() string { return r.Code.Solution }

func newKeysCmd(app *App) *cobra.Command {
	var focus string

	cmd := &cobra.Command{
		Use:   "keys <exercise> <input>...",
		Short: "Replay keyboard input against stored progress",
		Long: strings.TrimSpace(`
Replays inputs in order, exactly as the interactive editor would, and stores the result.

Inputs:
  tab, shift+tab, enter, shift+enter, esc
  up, down, left, right with any of alt+, ctrl+, meta+, shift+ (home/end = ctrl+up/down)
  type:<text>                       set the focused blank to <text>
  focus:<line-id>[#<blank>]         focus a line (or one of its blanks)
  drop:<line-id>:<tray>:<index>[:<px>]  drag a line to tray[index], <px> right`),
		Example: strings.TrimSpace(`
  parsons keys loops.yaml tab tab down tab
  parsons keys loops.yaml focus:1.0 enter type:total --format text`),
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := openWorkspace(ctx, app, args[0], false)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer ws.Close()

			sess, err := ws.session(ctx, session.WithClipboard(nil, nil))
			if err != nil {
				return writeErr(cmd, err)
			}
			if focus != "" {
				if err := applyInput(ctx, sess, "focus:"+focus, nil); err != nil {
					return writeErr(cmd, err)
				}
			}

			out := keysResult{SessionID: sess.ID, Steps: []keyStep{}}
			for _, in := range args[1:] {
				act := nav.Action{}
				if err := applyInput(ctx, sess, in, &act); err != nil {
					return writeErr(cmd, err)
				}
				out.Steps = append(out.Steps, keyStep{Input: in, Action: act.Kind.String(), Focus: sess.Focused().String()})
			}
			out.Focus = sess.Focused().String()
			out.Code = sess.Solution()
			out.Warnings = sess.Warnings()
			return writeOut(cmd, app, envelope{Data: out})
		},
	}
	cmd.Flags().StringVar(&focus, "focus", "", "Line id to focus before replaying (default: first line)")
	return cmd
}

// applyInput runs one scripted input. act receives the navigation action for key inputs.
func applyInput(ctx context.Context, sess *session.Session, in string, act *nav.Action) error {
	name, arg, hasArg := strings.Cut(in, ":")
	if !hasArg {
		ev, ok := nav.ParseKey(in)
		if !ok {
			return badKeyError{arg: in}
		}
		a, err := sess.HandleKey(ctx, ev, blankCursor(sess))
		if act != nil {
			*act = a
		}
		return err
	}

	switch name {
	case "type":
		f := sess.Focused()
		if f.Kind != nav.FocusBlank {
			return fmt.Errorf("type: no blank is focused (focus is %s)", f)
		}
		return sess.SetBlank(ctx, f.LineID, f.Blank, arg)
	case "focus":
		id, blank, isBlank := strings.Cut(arg, "#")
		if !isBlank {
			return sess.Focus(nav.Codeline(id))
		}
		i, err := strconv.Atoi(blank)
		if err != nil {
			return fmt.Errorf("focus: bad blank index %q", blank)
		}
		return sess.Focus(nav.BlankAt(id, i))
	case "drop":
		ev, err := parseDrop(sess.Document(), arg)
		if err != nil {
			return err
		}
		ok, err := sess.Drop(ctx, ev)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("drop: %s did not change anything", arg)
		}
		return nil
	default:
		return badKeyError{arg: in}
	}
}

// blankCursor puts the text cursor at the end of the focused blank, where typing leaves it.
func blankCursor(sess *session.Session) nav.Cursor {
	f := sess.Focused()
	if f.Kind != nav.FocusBlank {
		return nav.Cursor{}
	}
	l, ok := sess.Document().Line(f.LineID)
	if !ok {
		return nav.Cursor{}
	}
	vals := l.BlankValues()
	if f.Blank >= len(vals) {
		return nav.Cursor{}
	}
	n := len([]rune(vals[f.Blank]))
	return nav.Cursor{Pos: n, Len: n}
}

func parseDrop(doc *model.Document, arg string) (reorder.DragEvent, error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return reorder.DragEvent{}, fmt.Errorf("drop: want <line-id>:<tray>:<index>[:<px>], got %q", arg)
	}
	l, ok := doc.Line(parts[0])
	if !ok {
		return reorder.DragEvent{}, errNotFound("line", parts[0])
	}
	to := model.TrayID(parts[1])
	if to != model.TrayStarter && to != model.TraySolution {
		return reorder.DragEvent{}, fmt.Errorf("drop: unknown tray %q (want starter|solution)", parts[1])
	}
	at, err := strconv.Atoi(parts[2])
	if err != nil {
		return reorder.DragEvent{}, fmt.Errorf("drop: bad index %q", parts[2])
	}
	ev := reorder.DragEvent{From: doc.TrayOf(l), FromIndex: doc.IndexOf(l), To: to, ToIndex: at}
	if len(parts) == 4 {
		px, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return reorder.DragEvent{}, fmt.Errorf("drop: bad offset %q", parts[3])
		}
		ev.OffsetPx = px
	}
	return ev, nil
}
