package cli

import (
	"context"
	"fmt"
	"strings"

	"parsons-cli/internal/codec"
	"parsons-cli/internal/exercise"
	"parsons-cli/internal/session"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

// inspect opens the stored progress of one exercise without logging anything.
func inspect(ctx context.Context, app *App, path string) (*workspace, *session.Session, error) {
	ws, err := openWorkspace(ctx, app, path, false)
	if err != nil {
		return nil, nil, err
	}
	sess, err := ws.session(ctx, session.WithoutOpenedEntry(), session.WithClipboard(nil, nil))
	if err != nil {
		_ = ws.Close()
		return nil, nil, err
	}
	return ws, sess, nil
}

type renderResult struct {
	ExerciseID string              `json:"exerciseId"`
	Solution   string              `json:"solution"`
	Metadata   string              `json:"metadata"`
	Submission exercise.Submission `json:"submission"`
}

func (r renderResult) Text() string { return r.Solution }

func newRenderCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "render <exercise>",
		Short: "Print the stored solution, its metadata and the submission file entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, sess, err := inspect(cmd.Context(), app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			defer ws.Close()

			code := sess.Solution()
			return writeOut(cmd, app, envelope{Data: renderResult{
				ExerciseID: ws.ex.ID,
				Solution:   code.Solution,
				Metadata:   code.Metadata,
				Submission: ws.ex.Submission(code.Solution),
			}})
		},
	}
}

type exportResult []session.Exported

func (r exportResult) Text() string {
	texts := make([]string, 0, len(r))
	for _, e := range r {
		texts = append(texts, e.Text)
	}
	return strings.Join(texts, "\n\n")
}

func newExportCmd(app *App) *cobra.Command {
	var toClipboard bool

	cmd := &cobra.Command{
		Use:   "export <exercise>...",
		Short: "Print both trays as plaintext (optionally copy to the clipboard)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg := session.NewRegistry()
			for _, path := range args {
				ws, sess, err := inspect(ctx, app, path)
				if err != nil {
					return writeErr(cmd, err)
				}
				defer ws.Close()
				if err := reg.Add(sess); err != nil {
					return writeErr(cmd, err)
				}
			}

			out := exportResult(reg.ExportAll())
			var hints []string
			if toClipboard {
				if err := clipboard.WriteAll(out.Text()); err != nil {
					hints = append(hints, fmt.Sprintf("clipboard unavailable: %v", err))
				} else {
					hints = append(hints, "copied to clipboard")
				}
			}
			return writeOut(cmd, app, envelope{Data: out, Hints: hints})
		},
	}
	cmd.Flags().BoolVar(&toClipboard, "clipboard", false, "Also copy the plaintext to the system clipboard")
	return cmd
}

type progressResult struct {
	ExerciseID string             `json:"exerciseId"`
	Starter    []codec.Summary    `json:"starter"`
	Solution   []codec.Summary    `json:"solution"`
	MaxIndent  int                `json:"maxIndent"`
	Lines      []session.LineInfo `json:"lines"`
}

func (r progressResult) Text() string {
	var b strings.Builder
	for _, l := range r.Lines {
		filled := ""
		if n := len(l.Blanks); n > 0 {
			filled = fmt.Sprintf("  blanks %d/%d", l.Filled, n)
		}
		fmt.Fprintf(&b, "%-8s %2d  %-5s indent %d%s\n", l.Tray, l.Number, l.ID, l.Indent, filled)
	}
	return b.String()
}

func newProgressCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <exercise>",
		Short: "Show where every line currently sits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, sess, err := inspect(cmd.Context(), app, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			defer ws.Close()

			p := sess.Progress()
			out := progressResult{
				ExerciseID: ws.ex.ID,
				Starter:    nonNilSummaries(p.Starter),
				Solution:   nonNilSummaries(p.Solution),
				MaxIndent:  sess.MaxIndent(),
				Lines:      []session.LineInfo{},
			}
			for _, l := range sess.Document().Lines() {
				if info, ok := sess.Describe(l.ID); ok {
					out.Lines = append(out.Lines, info)
				}
			}
			return writeOut(cmd, app, envelope{Data: out})
		},
	}
}

func nonNilSummaries(xs []codec.Summary) []codec.Summary {
	if xs == nil {
		return []codec.Summary{}
	}
	return xs
}
