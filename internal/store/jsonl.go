package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// JSONL mirrors audit log entries into an append-only events.jsonl file, one object per line.
type JSONL struct {
	Path string
}

func NewJSONL(dir string) *JSONL {
	return &JSONL{Path: filepath.Join(dir, "events.jsonl")}
}

func (j *JSONL) AppendEntry(_ context.Context, sessionID string, ts time.Time, tag string, data any) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return errors.New("jsonl: missing tag")
	}
	pb, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(j.Path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(j.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(MirroredEntry{
		SessionID: sessionID,
		Timestamp: ts.UTC(),
		Tag:       tag,
		Data:      json.RawMessage(pb),
	})
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}

// Entries reads every mirrored line, oldest-first. A missing file yields no entries.
func (j *JSONL) Entries(_ context.Context, sessionID string, limit int) ([]MirroredEntry, error) {
	b, err := os.ReadFile(j.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []MirroredEntry{}, nil
		}
		return nil, err
	}
	out := []MirroredEntry{}
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e MirroredEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", j.Path, n, err)
		}
		if sessionID != "" && e.SessionID != sessionID {
			continue
		}
		e.Seq = int64(n)
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, sc.Err()
}

// EntryMirror receives a copy of every audit log entry.
type EntryMirror interface {
	AppendEntry(ctx context.Context, sessionID string, ts time.Time, tag string, data any) error
}

// EntryReader lists mirrored entries.
type EntryReader interface {
	Entries(ctx context.Context, sessionID string, limit int) ([]MirroredEntry, error)
}
