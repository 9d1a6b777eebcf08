package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Slot names, as used by the original page element. Several widgets sharing one store are
// kept apart with an answers-name prefix.
const (
	SlotStarterOrder  = "starter-code-order"
	SlotSolutionOrder = "parsons-solution-order"
	SlotSolution      = "student-parsons-solution"
	SlotMetadata      = "parsons-metadata"
	SlotLog           = "parsons-log"
)

// ErrSlotMissing marks a write or read whose target slot does not exist.
var ErrSlotMissing = errors.New("storage slot missing")

type SlotMissingError struct {
	Slot string
}

func (e SlotMissingError) Error() string {
	return fmt.Sprintf("storage slot missing: %s", e.Slot)
}

func (e SlotMissingError) Unwrap() error { return ErrSlotMissing }

// Backend is a flat key/value store of plain strings.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Close() error
}

// Slot is one named value in a backend.
type Slot struct {
	Backend Backend
	Key     string
}

func (s *Slot) Name() string {
	if s == nil {
		return ""
	}
	return s.Key
}

func (s *Slot) Get(ctx context.Context) (string, bool, error) {
	if s == nil || s.Backend == nil {
		return "", false, SlotMissingError{Slot: s.Name()}
	}
	return s.Backend.Get(ctx, s.Key)
}

func (s *Slot) Set(ctx context.Context, value string) error {
	if s == nil || s.Backend == nil {
		return SlotMissingError{Slot: s.Name()}
	}
	return s.Backend.Put(ctx, s.Key, value)
}

// SlotKey applies the answers-name namespace to a slot name.
func SlotKey(answersName, name string) string {
	answersName = strings.TrimSpace(answersName)
	if answersName == "" {
		return name
	}
	return answersName + "-" + name
}

// Sinks are the slots a session writes on every mutating action. A nil slot is a missing sink.
type Sinks struct {
	StarterOrder  *Slot
	SolutionOrder *Slot
	Solution      *Slot
	Metadata      *Slot
	Log           *Slot
}

// NewSinks binds every standard slot to b under the given namespace.
func NewSinks(b Backend, answersName string) Sinks {
	slot := func(name string) *Slot { return &Slot{Backend: b, Key: SlotKey(answersName, name)} }
	return Sinks{
		StarterOrder:  slot(SlotStarterOrder),
		SolutionOrder: slot(SlotSolutionOrder),
		Solution:      slot(SlotSolution),
		Metadata:      slot(SlotMetadata),
		Log:           slot(SlotLog),
	}
}

// Memory is an in-process backend.
type Memory struct {
	values map[string]string
}

func NewMemory() *Memory { return &Memory{values: map[string]string{}} }

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Put(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func (m *Memory) Close() error { return nil }

// Keys returns the stored keys (unordered).
func (m *Memory) Keys() []string {
	out := make([]string, 0, len(m.values))
	for k := range m.values {
		out = append(out, k)
	}
	return out
}
