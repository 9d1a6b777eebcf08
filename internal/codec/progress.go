package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"parsons-cli/internal/model"
)

// Progress is the persisted arrangement: both trays' summaries in order.
type Progress struct {
	Starter  []Summary `json:"starter"`
	Solution []Summary `json:"solution"`
}

func Snapshot(d *model.Document) Progress {
	return Progress{
		Starter:  Summaries(d, model.TrayStarter),
		Solution: Summaries(d, model.TraySolution),
	}
}

func EncodeSummaries(xs []Summary) (string, error) {
	if xs == nil {
		xs = []Summary{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeSummaries parses a slot value. An empty value decodes to no summaries.
func DecodeSummaries(s string) ([]Summary, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []Summary
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("decode summaries: %w", err)
	}
	return out, nil
}

// Restore rearranges d to match p. Lines are matched by logging id; unknown ids are skipped
// and lines missing from p keep their tray. It returns how many lines were placed.
func Restore(d *model.Document, p Progress) int {
	placed := 0
	apply := func(tray model.TrayID, xs []Summary) {
		if tray == model.TrayStarter && !d.HasStarter() {
			return
		}
		pos := 0
		for _, s := range xs {
			l, ok := d.Line(s.ID)
			if !ok {
				continue
			}
			d.Move(l, tray, pos)
			pos++
			placed++
			d.SetIndent(l, s.Indent)
			vals := s.Segments.BlankValues
			for i := 0; i < l.BlankCount() && i < len(vals); i++ {
				d.SetBlank(l, i, vals[i])
			}
		}
	}
	apply(model.TrayStarter, p.Starter)
	apply(model.TraySolution, p.Solution)
	return placed
}
