package session

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the directory of open sessions, keyed by session id. The host creates one and
// passes it to whatever needs to find sessions (export, log tooling).
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opened   map[string]int
	seq      int
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*Session{}, opened: map[string]int{}}
}

func (r *Registry) Add(s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("registry: session without id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID]; ok {
		return fmt.Errorf("registry: duplicate session %s", s.ID)
	}
	r.seq++
	r.sessions[s.ID] = s
	r.opened[s.ID] = r.seq
	return nil
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	delete(r.opened, id)
}

// IDs returns session ids in the order they were added.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return r.opened[ids[i]] < r.opened[ids[j]] })
	return ids
}

// Exported is one session's plaintext export.
type Exported struct {
	SessionID  string `json:"sessionId"`
	ExerciseID string `json:"exerciseId"`
	Text       string `json:"text"`
}

// ExportAll renders every open session's plaintext, in the order sessions were added.
// Nothing is written to the clipboard.
func (r *Registry) ExportAll() []Exported {
	var out []Exported
	for _, id := range r.IDs() {
		s, ok := r.Get(id)
		if !ok {
			continue
		}
		out = append(out, Exported{SessionID: id, ExerciseID: s.Exercise.ID, Text: s.Plaintext()})
	}
	return out
}
