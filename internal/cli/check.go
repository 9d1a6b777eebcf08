package cli

import (
	"fmt"
	"strings"

	"parsons-cli/internal/config"
	"parsons-cli/internal/model"

	"github.com/spf13/cobra"
)

type checkResult struct {
	ExerciseID    string        `json:"exerciseId"`
	Title         string        `json:"title,omitempty"`
	FileName      string        `json:"fileName"`
	StarterLines  int           `json:"starterLines"`
	SolutionLines int           `json:"solutionLines"`
	Blanks        int           `json:"blanks"`
	Widget        config.Widget `json:"widget"`
}

func (r checkResult) Text() string {
	return fmt.Sprintf("%s: ok (%d starter, %d solution, %d blanks; format %s)",
		r.ExerciseID, r.StarterLines, r.SolutionLines, r.Blanks, r.Widget.Format)
}

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check <exercise>",
		Short: "Validate config and an exercise file without touching stored progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			ex, err := loadExercise(cfg, args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			doc, err := model.New(ex.Layout, ex.Widget)
			if err != nil {
				return writeErr(cmd, fmt.Errorf("%s: %w", args[0], err))
			}

			out := checkResult{
				ExerciseID:    ex.ID,
				Title:         ex.Title,
				FileName:      ex.FileName,
				StarterLines:  len(doc.LinesOf(model.TrayStarter)),
				SolutionLines: len(doc.LinesOf(model.TraySolution)),
				Blanks:        len(doc.AllBlanks()),
				Widget:        ex.Widget,
			}
			var hints []string
			if out.StarterLines == 0 && doc.HasStarter() {
				hints = append(hints, "every line is given; there is nothing to reorder")
			}
			if strings.TrimSpace(ex.Prompt) == "" {
				hints = append(hints, "no prompt")
			}
			return writeOut(cmd, app, envelope{Data: out, Hints: hints})
		},
	}
}
