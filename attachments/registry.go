// Package attachments keeps the evidence captured while checks run, scoped by check identity.
//
// A scope is opened when a check starts (or is skipped), collects evidence in the order it
// was added, and is drained into the check's result record when the check finishes.
// Evidence added for an identity without an open scope cannot be attributed and is
// dropped with a warning. This includes evidence added after EndScope.
package attachments

import (
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/yamf-go/op-marker/metrics"
	"github.com/yamf-go/op-marker/types"
)

// Registry maps check identities to their open evidence scopes.
// The map lock is only held to find or replace a scope; each scope has its own lock,
// so work on different identities does not serialize.
type Registry struct {
	log    log.Logger
	mu     sync.RWMutex
	scopes map[types.CheckID]*scope
}

type scope struct {
	mu     sync.Mutex
	closed bool
	items  []types.Attachment
}

// NewRegistry creates an empty registry
func NewRegistry(logger log.Logger) *Registry {
	if logger == nil {
		logger = log.Root()
	}
	return &Registry{
		log:    logger,
		scopes: make(map[types.CheckID]*scope),
	}
}

// Reset discards every scope and the evidence in it
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.scopes {
		s.mu.Lock()
		s.closed = true
		s.items = nil
		s.mu.Unlock()
	}
	r.scopes = make(map[types.CheckID]*scope)
}

// StartScope opens an empty scope for id. Starting an already open scope keeps its evidence.
func (r *Registry) StartScope(id types.CheckID) {
	if s := r.lookup(id); s != nil && s.isOpen() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.scopes[id]; ok && s.isOpen() {
		return
	}
	r.scopes[id] = &scope{}
}

// EndScope closes the scope for id. Evidence still in it is discarded.
func (r *Registry) EndScope(id types.CheckID) {
	r.mu.Lock()
	s, ok := r.scopes[id]
	delete(r.scopes, id)
	r.mu.Unlock()

	if !ok {
		return
	}
	s.mu.Lock()
	s.closed = true
	if len(s.items) > 0 {
		r.log.Debug("Discarding undrained evidence", "check", id, "count", len(s.items))
	}
	s.items = nil
	s.mu.Unlock()
}

// Add appends item to the open scope for id. It returns false, and logs a warning,
// when no scope is open for id.
func (r *Registry) Add(id types.CheckID, item types.Attachment) bool {
	if s := r.lookup(id); s != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.closed {
			s.items = append(s.items, item)
			return true
		}
	}
	r.log.Warn("Dropping evidence produced outside of a check scope", "check", id, "name", item.Name, "path", item.Path)
	metrics.RecordEvidenceDropped()
	return false
}

// Drain returns the evidence collected for id, in the order it was added, and empties the scope.
// The scope stays open.
func (r *Registry) Drain(id types.CheckID) []types.Attachment {
	s := r.lookup(id)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items
	s.items = nil
	return items
}

// IsOpen reports whether a scope is open for id
func (r *Registry) IsOpen(id types.CheckID) bool {
	s := r.lookup(id)
	return s != nil && s.isOpen()
}

// OpenScopes returns the number of open scopes
func (r *Registry) OpenScopes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scopes)
}

// Evidence returns a copy of the evidence currently held in every open scope
func (r *Registry) Evidence() map[types.CheckID][]types.Attachment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[types.CheckID][]types.Attachment, len(r.scopes))
	for id, s := range r.scopes {
		s.mu.Lock()
		if len(s.items) > 0 {
			out[id] = append([]types.Attachment(nil), s.items...)
		}
		s.mu.Unlock()
	}
	return out
}

// For returns a handle that can only add evidence to id's scope
func (r *Registry) For(id types.CheckID) Handle {
	return Handle{registry: r, id: id}
}

func (r *Registry) lookup(id types.CheckID) *scope {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scopes[id]
}

func (s *scope) isOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}
