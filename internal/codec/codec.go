package codec

import (
	"strings"

	"parsons-cli/internal/model"
)

const (
	// BlankMarker stands in for a blank in authored templates and in metadata lines.
	BlankMarker = "!BLANK"
	// ExportBlank stands in for a blank in the plaintext export.
	ExportBlank = "BLANK"

	originalFlag = "#!ORIGINAL"
	blankNote    = " #blank"
)

// Segments is the persisted form of a line's template split around its blanks.
// len(Segments) == len(BlankValues)+1.
type Segments struct {
	Segments    []string `json:"segments"`
	BlankValues []string `json:"blankValues"`
}

// Summary is the persisted-progress record for one line. Field names are a contract.
type Summary struct {
	Content  string   `json:"content"`
	Indent   int      `json:"indent"`
	Segments Segments `json:"segments"`
	ID       string   `json:"id"`
	Index    int      `json:"index"`
}

type Code struct {
	Solution string `json:"solution"`
	Metadata string `json:"metadata"`
}

func Pad(level, unitChars int) string {
	if level <= 0 || unitChars <= 0 {
		return ""
	}
	return strings.Repeat(" ", level*unitChars)
}

// Fill substitutes values into the gaps between segments and trims trailing whitespace.
// Missing values are treated as empty.
func Fill(segments, values []string) string {
	var b strings.Builder
	for i, s := range segments {
		if i > 0 && i-1 < len(values) {
			b.WriteString(values[i-1])
		}
		b.WriteString(s)
	}
	return strings.TrimRight(b.String(), " \t\r\n")
}

func joinWith(segments []string, marker string) string {
	return strings.TrimRight(strings.Join(segments, marker), " \t\r\n")
}

// TextOf renders a line as graded text: blanks filled, trailing whitespace trimmed, indent padded.
func TextOf(l *model.CodeLine, unitChars int) string {
	return Pad(l.Indent(), unitChars) + Fill(l.Segments(), l.BlankValues())
}

func SegmentsOf(l *model.CodeLine) Segments {
	return Segments{Segments: l.Segments(), BlankValues: l.BlankValues()}
}

func SummaryOf(l *model.CodeLine, index, unitChars int) Summary {
	return Summary{
		Content:  TextOf(l, unitChars),
		Indent:   l.Indent(),
		Segments: SegmentsOf(l),
		ID:       l.ID,
		Index:    index,
	}
}

// Summaries returns the summaries of a tray in order; absent trays yield an empty slice.
func Summaries(d *model.Document, tray model.TrayID) []Summary {
	unit := d.Settings().IndentUnitChars
	lines := d.LinesOf(tray)
	out := make([]Summary, 0, len(lines))
	for i, l := range lines {
		out = append(out, SummaryOf(l, i, unit))
	}
	return out
}

// Summarize is SummaryOf at the line's current position.
func Summarize(d *model.Document, l *model.CodeLine) Summary {
	return SummaryOf(l, d.IndexOf(l), d.Settings().IndentUnitChars)
}

// MetadataLine annotates a line for partial-credit tooling. The line is flagged with
// #!ORIGINAL when its template (blanks shown as markers) differs from the filled text.
func MetadataLine(l *model.CodeLine, unitChars int) string {
	segs := l.Segments()
	values := l.BlankValues()
	marked := joinWith(segs, BlankMarker)

	var b strings.Builder
	if marked != Fill(segs, values) {
		b.WriteString(originalFlag)
	}
	b.WriteString(Pad(l.Indent(), unitChars))
	b.WriteString(marked)
	for _, v := range values {
		b.WriteString(blankNote)
		b.WriteString(v)
	}
	return b.String()
}

func SolutionCode(d *model.Document) Code {
	unit := d.Settings().IndentUnitChars
	var sol, meta strings.Builder
	for _, l := range d.LinesOf(model.TraySolution) {
		sol.WriteString(TextOf(l, unit))
		sol.WriteByte('\n')
		meta.WriteString(MetadataLine(l, unit))
		meta.WriteByte('\n')
	}
	return Code{Solution: sol.String(), Metadata: meta.String()}
}

var hashCommentLanguages = map[string]bool{
	"java":       true,
	"c":          true,
	"c++":        true,
	"c#":         true,
	"js":         true,
	"javascript": true,
	"ts":         true,
	"typescript": true,
}

// CommentPrefix is the prefix put before starter-tray lines in the plaintext export.
func CommentPrefix(language string) string {
	if hashCommentLanguages[strings.ToLower(strings.TrimSpace(language))] {
		return "# "
	}
	return "// "
}

// Plaintext is the export view: unplaced lines commented out, then the solution tray, with
// blanks shown as BLANK rather than their values.
func Plaintext(d *model.Document) string {
	settings := d.Settings()
	prefix := CommentPrefix(settings.Language)
	var out []string
	for _, l := range d.LinesOf(model.TrayStarter) {
		out = append(out, prefix+joinWith(l.Segments(), ExportBlank))
	}
	for _, l := range d.LinesOf(model.TraySolution) {
		out = append(out, Pad(l.Indent(), settings.IndentUnitChars)+joinWith(l.Segments(), ExportBlank))
	}
	return strings.Join(out, "\n")
}
