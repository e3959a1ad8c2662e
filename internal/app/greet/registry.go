package greet

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hanna-voice/agent/internal/domain"
)

// Registry tracks per-identity greeting state for the current session.
// An identity is keyed by its stable identity string, not its connection
// id, so a disconnect followed by a reconnect is one fresh episode.
//
// Invariant: an identity is never in greeted and inflight at the same time.
type Registry struct {
	mu       sync.Mutex
	greeted  map[domain.Identity]struct{}
	inflight map[domain.Identity]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		greeted:  make(map[domain.Identity]struct{}),
		inflight: make(map[domain.Identity]struct{}),
	}
}

// Begin marks the identity in-flight. It returns false when the identity is
// already greeted or already has an initialization running, serializing
// connect-triggered work per identity.
func (r *Registry) Begin(id domain.Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.greeted[id]; ok {
		return false
	}
	if _, ok := r.inflight[id]; ok {
		return false
	}
	r.inflight[id] = struct{}{}
	log.Debug().Str("module", "greet.registry").Str("identity", string(id)).Msg("initialization started")
	return true
}

// Finish concludes an initialization. The greeted flag only sticks when the
// identity is still in-flight, so a disconnect that raced the task does not
// resurrect the entry.
func (r *Registry) Finish(id domain.Identity, greeted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, active := r.inflight[id]
	delete(r.inflight, id)
	if greeted && active {
		r.greeted[id] = struct{}{}
		log.Info().Str("module", "greet.registry").Str("identity", string(id)).Msg("participant greeted")
	}
}

// Drop removes every trace of the identity, on disconnect.
func (r *Registry) Drop(id domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.greeted, id)
	delete(r.inflight, id)
}

func (r *Registry) Greeted(id domain.Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.greeted[id]
	return ok
}

// Known reports whether the identity is greeted or in-flight; the
// reconciliation sweep skips known identities.
func (r *Registry) Known(id domain.Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.greeted[id]; ok {
		return true
	}
	_, ok := r.inflight[id]
	return ok
}
