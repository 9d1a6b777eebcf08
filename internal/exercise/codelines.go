package exercise

import (
	"regexp"
	"strconv"
	"strings"

	"parsons-cli/internal/codec"
	"parsons-cli/internal/model"
)

// specialComment matches the authoring comments that survive into the prompt: `#blank <value>`
// pre-fills the next blank, `#<n>given` places the line in the solution at indent n.
var specialComment = regexp.MustCompile(`#(blank[^#]*|\d+given)`)

var specialStart = regexp.MustCompile(`^#(blank|\d+given)`)

// ParsedLine is one authored code line.
type ParsedLine struct {
	Template model.LineTemplate
	Given    bool
}

// ParseLine splits a single authored line into its template and special comments.
// Leading whitespace is dropped; indent is structural.
func ParseLine(raw string) ParsedLine {
	text := strings.TrimSpace(raw)
	code, tail := text, ""
	for i := 0; i < len(text); i++ {
		if text[i] == '#' && specialStart.MatchString(text[i:]) {
			code, tail = strings.TrimRight(text[:i], " \t"), text[i:]
			break
		}
	}

	var out ParsedLine
	var prefill []string
	for _, m := range specialComment.FindAllStringSubmatch(tail, -1) {
		body := m[1]
		if strings.HasPrefix(body, "blank") {
			prefill = append(prefill, strings.TrimSpace(strings.TrimPrefix(body, "blank")))
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(body, "given"))
		if err != nil {
			continue
		}
		out.Given = true
		out.Template.Indent = n
	}

	out.Template.Segments = strings.Split(code, codec.BlankMarker)
	blanks := len(out.Template.Segments) - 1
	if blanks > 0 {
		out.Template.Prefill = make([]string, blanks)
		copy(out.Template.Prefill, prefill)
	}
	return out
}

// ParseCodeLines builds the document layout from the authored block. Given lines go to the
// solution tray in order; the rest start in the starter pool. Without a starter tray every
// line is placed in the solution.
func ParseCodeLines(src string, withStarter bool) model.Layout {
	starter := &model.TraySpec{}
	solution := &model.TraySpec{}
	for _, raw := range strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		pl := ParseLine(raw)
		if pl.Given || !withStarter {
			solution.Lines = append(solution.Lines, pl.Template)
			continue
		}
		starter.Lines = append(starter.Lines, pl.Template)
	}
	layout := model.Layout{Solution: solution}
	if withStarter {
		layout.Starter = starter
	}
	return layout
}
