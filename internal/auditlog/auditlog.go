package auditlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"parsons-cli/internal/store"
)

const (
	TagProblemOpened = "problemOpened"
	TagMoveInput     = "moveInput"
	TagMoveOutput    = "moveOutput"
	TagAddOutput     = "addOutput"
	TagRemoveOutput  = "removeOutput"
	TagEditBlank     = "editBlank"
	TagReindent      = "reindent"
)

type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Tag       string    `json:"tag"`
	Data      any       `json:"data"`
}

// Log appends entries to a single storage slot holding a JSON array. Mirrors receive a copy
// of every entry; they never feed back into the slot.
type Log struct {
	slot      *store.Slot
	sessionID string
	mirrors   []store.EntryMirror
	now       func() time.Time
}

func New(slot *store.Slot, sessionID string, mirrors ...store.EntryMirror) *Log {
	var ms []store.EntryMirror
	for _, m := range mirrors {
		if m != nil {
			ms = append(ms, m)
		}
	}
	return &Log{slot: slot, sessionID: sessionID, mirrors: ms, now: time.Now}
}

// SetClock replaces the timestamp source (tests).
func (l *Log) SetClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// Append records one entry. The prior slot value is read, coerced into a sequence and
// rewritten with the entry at the end; existing items are never dropped or reordered.
func (l *Log) Append(ctx context.Context, tag string, data any) (Entry, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return Entry{}, fmt.Errorf("auditlog: missing tag")
	}
	e := Entry{Timestamp: l.now().UTC(), Tag: tag, Data: data}

	var slotErr error
	prior, _, err := l.slot.Get(ctx)
	if err != nil {
		slotErr = err
	} else {
		items := Coerce(prior)
		b, err := json.Marshal(e)
		if err != nil {
			return e, err
		}
		items = append(items, json.RawMessage(b))
		out, err := json.Marshal(items)
		if err != nil {
			return e, err
		}
		slotErr = l.slot.Set(ctx, string(out))
	}

	for _, m := range l.mirrors {
		if err := m.AppendEntry(ctx, l.sessionID, e.Timestamp, e.Tag, e.Data); err != nil && slotErr == nil {
			slotErr = fmt.Errorf("auditlog mirror: %w", err)
		}
	}
	return e, slotErr
}

// Coerce turns a prior slot value into a sequence: empty (or null) becomes empty, an array is
// kept as-is, any other JSON value or unparsable text becomes a one-element sequence.
func Coerce(prior string) []json.RawMessage {
	trimmed := bytes.TrimSpace([]byte(prior))
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []json.RawMessage{}
	}
	if json.Valid(trimmed) {
		if trimmed[0] == '[' {
			var items []json.RawMessage
			if err := json.Unmarshal(trimmed, &items); err == nil {
				if items == nil {
					items = []json.RawMessage{}
				}
				return items
			}
		}
		return []json.RawMessage{json.RawMessage(trimmed)}
	}
	raw, _ := json.Marshal(prior)
	return []json.RawMessage{json.RawMessage(raw)}
}

// Entries decodes the slot's log. Items that are not entries (coerced prior values) are
// returned with an empty tag and the raw item as data.
func (l *Log) Entries(ctx context.Context) ([]Entry, error) {
	prior, _, err := l.slot.Get(ctx)
	if err != nil {
		return nil, err
	}
	return Decode(prior), nil
}

func Decode(value string) []Entry {
	items := Coerce(value)
	out := make([]Entry, 0, len(items))
	for _, it := range items {
		var wire struct {
			Timestamp *time.Time      `json:"timestamp"`
			Tag       string          `json:"tag"`
			Data      json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(it, &wire); err != nil || wire.Tag == "" {
			out = append(out, Entry{Data: it})
			continue
		}
		e := Entry{Tag: wire.Tag, Data: wire.Data}
		if wire.Timestamp != nil {
			e.Timestamp = *wire.Timestamp
		}
		out = append(out, e)
	}
	return out
}
