package quiz

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("quiz session not found")

type entry struct {
	mu      sync.Mutex
	session Session
	touched time.Time
}

// Registry holds server-side sessions keyed by ID. Transitions on one
// session are serialised by a per-session lock; different sessions proceed
// independently.
type Registry struct {
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
}

// NewRegistry creates a registry that expires sessions idle longer than ttl.
// A zero ttl disables expiry.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create stores a session and returns its new ID.
func (r *Registry) Create(s Session) string {
	id := generateID()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &entry{session: s, touched: r.now()}
	return id
}

// Get returns a snapshot of the session.
func (r *Registry) Get(id string) (Session, error) {
	e, err := r.lookup(id)
	if err != nil {
		return Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, nil
}

// Update applies fn under the session's lock and stores the result. It
// returns the session before and after the transition.
func (r *Registry) Update(id string, fn func(Session) Session) (before, after Session, err error) {
	e, err := r.lookup(id)
	if err != nil {
		return Session{}, Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	before = e.session
	after = fn(before)
	e.session = after
	e.touched = r.now()
	return before, after, nil
}

// Delete drops a session. Deleting an unknown ID is not an error.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.entries {
		e.mu.Lock()
		idle := e.touched.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				slog.Info("expired quiz sessions removed", "count", n)
			}
		}
	}
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
