package store

import (
	"context"
	"fmt"
	"strings"

	"parsons-cli/internal/config"
)

// Opened is a ready backend plus its log mirror (nil for the memory backend).
type Opened struct {
	Backend Backend
	Mirror  EntryMirror
	Reader  EntryReader
}

func (o Opened) Close() error {
	if o.Backend == nil {
		return nil
	}
	return o.Backend.Close()
}

// Open builds the backend selected by cfg. The file backend mirrors the log into events.jsonl;
// the sqlite backend mirrors it into its own log_entries table.
func Open(ctx context.Context, cfg config.Storage, dir string) (Opened, error) {
	switch strings.TrimSpace(cfg.Backend) {
	case config.BackendMemory:
		return Opened{Backend: NewMemory()}, nil
	case config.BackendFile:
		f, err := NewFiles(dir)
		if err != nil {
			return Opened{}, err
		}
		j := NewJSONL(dir)
		return Opened{Backend: f, Mirror: j, Reader: j}, nil
	case config.BackendSQLite, "":
		s, err := OpenSQLite(ctx, dir)
		if err != nil {
			return Opened{}, err
		}
		return Opened{Backend: s, Mirror: s, Reader: s}, nil
	default:
		return Opened{}, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
