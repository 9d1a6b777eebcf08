package cli

import (
	"fmt"
	"strings"

	"parsons-cli/internal/docs"

	"github.com/spf13/cobra"
)

type docsTopics struct {
	Topics []string `json:"topics"`
}

func (d docsTopics) Text() string { return strings.Join(d.Topics, "\n") }

type docsPage struct {
	Topic    string `json:"topic"`
	Markdown string `json:"markdown"`
}

func (d docsPage) Text() string { return d.Markdown }

func newDocsCmd(app *App) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show reference pages (exercise format, keys, config)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeOut(cmd, app, envelope{Data: docsTopics{Topics: docs.Topics()}})
			}

			topic := args[0]
			body, ok := docs.Get(topic)
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown docs topic: %q (run `parsons docs` to list topics)", topic))
			}
			if raw {
				_, err := fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			return writeOut(cmd, app, envelope{Data: docsPage{Topic: topic, Markdown: body}})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw markdown (no JSON envelope)")

	return cmd
}
