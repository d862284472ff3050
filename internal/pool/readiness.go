package pool

import "sync"

// Readiness records whether the credential pool has been loaded since the
// last invalidating event. It is an explicit, injectable state object rather
// than a package global so cache-hit and cache-miss paths stay testable.
// It is not persisted across process restarts.
type Readiness struct {
	mu     sync.RWMutex
	loaded bool
}

// NewReadiness returns a cold flag.
func NewReadiness() *Readiness {
	return &Readiness{}
}

// Ready reports whether the pool is considered loaded.
func (r *Readiness) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// MarkLoaded records a successful pool load.
func (r *Readiness) MarkLoaded() {
	r.mu.Lock()
	r.loaded = true
	r.mu.Unlock()
}

// Invalidate forces the next provisioning request to reload the pool.
func (r *Readiness) Invalidate() {
	r.mu.Lock()
	r.loaded = false
	r.mu.Unlock()
}
