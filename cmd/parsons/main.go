package main

import (
	"os"
	"path/filepath"
	"strings"

	"parsons-cli/internal/cli"
)

func isExercisePath(s string) bool {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(s))) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func rewriteExerciseShortcutArgs(argv []string) []string {
	// Convenience: `parsons <exercise.yaml>` works like `parsons open <exercise.yaml>`.
	//
	// Cobra treats the first non-flag token as a subcommand, so we rewrite argv before parsing.
	// Persistent flags may come first (e.g. `parsons --dir ... loops.yaml`), so we look for the
	// first positional token, not just argv[1].
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config":  true,
		"--dir":     true,
		"--backend": true,
		"--format":  true,
	}
	boolFlags := map[string]bool{
		"--pretty":   true,
		"--no-color": true,
	}

	insertOpen := func(i int) []string {
		out := make([]string, 0, len(argv)+1)
		out = append(out, argv[:i]...)
		out = append(out, "open")
		out = append(out, argv[i:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isExercisePath(argv[i+1]) {
				return insertOpen(i)
			}
			return argv
		}

		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") {
				continue
			}
			if boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
				continue
			}
			continue
		}

		if isExercisePath(a) {
			return insertOpen(i)
		}
		return argv
	}

	return argv
}

func main() {
	os.Args = rewriteExerciseShortcutArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
