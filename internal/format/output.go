package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

const (
	JSON = "json"
	EDN  = "edn"
	Text = "text"
)

// Texter is implemented by results with a human rendering for --format text.
type Texter interface {
	Text() string
}

// Write encodes v for the CLI. json is the default; text falls back to json for values
// without a Texter rendering.
func Write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", JSON:
		return WriteJSON(w, v, pretty)
	case EDN:
		return WriteEDN(w, v, pretty)
	case Text:
		return WriteText(w, v, pretty)
	default:
		return fmt.Errorf("unknown format: %s (want json|edn|text)", format)
	}
}

func WriteJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func WriteText(w io.Writer, v any, pretty bool) error {
	var s string
	switch t := v.(type) {
	case Texter:
		s = t.Text()
	case string:
		s = t
	default:
		return WriteJSON(w, v, pretty)
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	_, err := io.WriteString(w, s)
	return err
}
