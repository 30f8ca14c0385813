package session

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry routes chunks to per-origin state. Origins are created on first
// use and never removed, so identities survive reconnects.
type Registry struct {
	opts Options

	mu     sync.RWMutex
	states map[string]*State
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:   opts,
		states: make(map[string]*State),
	}
}

// State returns the origin's state, creating it if needed.
func (r *Registry) State(origin string) *State {
	key := strings.TrimSpace(origin)
	r.mu.RLock()
	st, ok := r.states[key]
	r.mu.RUnlock()
	if ok {
		return st
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[key]; ok {
		return st
	}
	st = NewState(key, r.opts)
	r.states[key] = st
	return st
}

func (r *Registry) Lookup(origin string) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.states[strings.TrimSpace(origin)]
	return st, ok
}

// List returns every known origin's state ordered by origin.
func (r *Registry) List() []*State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*State, 0, len(r.states))
	for _, st := range r.states {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].origin < out[j].origin
	})
	return out
}

// Decode feeds chunk to origin's state.
func (r *Registry) Decode(chunk []byte, origin string, captureTime time.Time) Result {
	return r.State(origin).Decode(chunk, captureTime)
}

// ResetStream drops any partial frame held for origin.
func (r *Registry) ResetStream(origin string) {
	if st, ok := r.Lookup(origin); ok {
		st.ResetStream()
	}
}
