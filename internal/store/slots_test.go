package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"parsons-cli/internal/config"
)

func TestSlotKey(t *testing.T) {
	if got := SlotKey("", SlotLog); got != "parsons-log" {
		t.Fatalf("got %q", got)
	}
	if got := SlotKey(" q1 ", SlotSolution); got != "q1-student-parsons-solution" {
		t.Fatalf("got %q", got)
	}
}

func TestSlot_MissingBackend(t *testing.T) {
	var s *Slot
	if err := s.Set(context.Background(), "x"); !errors.Is(err, ErrSlotMissing) {
		t.Fatalf("expected ErrSlotMissing, got %v", err)
	}
	s = &Slot{Key: "k"}
	_, _, err := s.Get(context.Background())
	var sme SlotMissingError
	if !errors.As(err, &sme) || sme.Slot != "k" {
		t.Fatalf("expected SlotMissingError for k, got %v", err)
	}
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	ctx := context.Background()
	f, err := NewFiles(filepath.Join(t.TempDir(), "files"))
	if err != nil {
		t.Fatalf("NewFiles: %v", err)
	}
	s, err := OpenSQLite(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return map[string]Backend{"memory": NewMemory(), "file": f, "sqlite": s}
}

func TestBackends_GetPut(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := b.Get(ctx, "parsons-log"); err != nil || ok {
				t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
			}
			if err := b.Put(ctx, "parsons-log", "[]"); err != nil {
				t.Fatalf("Put: %v", err)
			}
			if err := b.Put(ctx, "parsons-log", `[{"tag":"x"}]`); err != nil {
				t.Fatalf("Put overwrite: %v", err)
			}
			v, ok, err := b.Get(ctx, "parsons-log")
			if err != nil || !ok || v != `[{"tag":"x"}]` {
				t.Fatalf("Get: v=%q ok=%v err=%v", v, ok, err)
			}
		})
	}
}

func TestFiles_RejectsPathKeys(t *testing.T) {
	f, err := NewFiles(t.TempDir())
	if err != nil {
		t.Fatalf("NewFiles: %v", err)
	}
	if err := f.Put(context.Background(), "../escape", "x"); err == nil {
		t.Fatalf("expected error for path-like key")
	}
}

func TestFiles_RemovedDirIsMissingSlot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "p")
	f, err := NewFiles(dir)
	if err != nil {
		t.Fatalf("NewFiles: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := f.Put(context.Background(), "k", "v"); !errors.Is(err, ErrSlotMissing) {
		t.Fatalf("expected ErrSlotMissing, got %v", err)
	}
}

func TestMirrors_AppendAndList(t *testing.T) {
	ctx := context.Background()
	sq, err := OpenSQLite(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer sq.Close()
	j := NewJSONL(filepath.Join(t.TempDir(), "nested"))

	type mirror interface {
		EntryMirror
		EntryReader
	}
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for name, m := range map[string]mirror{"sqlite": sq, "jsonl": j} {
		t.Run(name, func(t *testing.T) {
			if err := m.AppendEntry(ctx, "s1", ts, "moveOutput", map[string]any{"id": "0.1"}); err != nil {
				t.Fatalf("AppendEntry: %v", err)
			}
			if err := m.AppendEntry(ctx, "s2", ts.Add(time.Second), "reindent", []any{}); err != nil {
				t.Fatalf("AppendEntry: %v", err)
			}
			all, err := m.Entries(ctx, "", 0)
			if err != nil || len(all) != 2 {
				t.Fatalf("Entries: %v len=%d", err, len(all))
			}
			if all[0].Tag != "moveOutput" || !all[0].Timestamp.Equal(ts) {
				t.Fatalf("unexpected first entry %+v", all[0])
			}
			one, err := m.Entries(ctx, "s2", 0)
			if err != nil || len(one) != 1 || one[0].Tag != "reindent" {
				t.Fatalf("filtered Entries: %v %+v", err, one)
			}
		})
	}
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		backend    string
		wantMirror bool
	}{
		{config.BackendMemory, false},
		{config.BackendFile, true},
		{config.BackendSQLite, true},
	}
	for _, tc := range cases {
		t.Run(tc.backend, func(t *testing.T) {
			o, err := Open(ctx, config.Storage{Backend: tc.backend}, t.TempDir())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer o.Close()
			if (o.Mirror != nil) != tc.wantMirror {
				t.Fatalf("mirror presence: got %v want %v", o.Mirror != nil, tc.wantMirror)
			}
		})
	}
	if _, err := Open(ctx, config.Storage{Backend: "redis"}, t.TempDir()); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
}
