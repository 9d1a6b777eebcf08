package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Files keeps one file per slot under Dir/<exercise>/.
type Files struct {
	Dir string
}

func NewFiles(dir string) (*Files, error) {
	dir = filepath.Clean(strings.TrimSpace(dir))
	if dir == "" || dir == "." {
		return nil, errors.New("file store: missing dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Files{Dir: dir}, nil
}

func (f *Files) path(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("file store: invalid key %q", key)
	}
	return filepath.Join(f.Dir, key+".txt"), nil
}

func (f *Files) Get(_ context.Context, key string) (string, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(b), true, nil
}

func (f *Files) Put(_ context.Context, key, value string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(f.Dir); err != nil {
		// The directory disappeared underneath us; the sink is gone until it is recreated.
		if errors.Is(err, os.ErrNotExist) {
			return SlotMissingError{Slot: key}
		}
		return err
	}
	return atomicWriteFile(f.Dir, ".slot-*.tmp", p, []byte(value), 0o644)
}

func (f *Files) Close() error { return nil }

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	tf, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := tf.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := tf.Write(b); err != nil {
		_ = tf.Close()
		return err
	}
	if err := tf.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}
