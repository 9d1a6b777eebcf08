package cli

import (
	"parsons-cli/internal/session"
	"parsons-cli/internal/tui"

	"github.com/spf13/cobra"
)

func newOpenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "open <exercise>",
		Short: "Work on an exercise in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ws, err := openWorkspace(ctx, app, args[0], true)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer ws.Close()

			geo := tui.NewGeometry(ws.ex)
			sess, err := ws.session(ctx, session.WithGeometry(geo))
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := tui.Run(ctx, sess, geo, tui.Options{NoColor: app.NoColor}); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
}
