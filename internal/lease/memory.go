package lease

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/magicianlee007/tpn-subnet/internal/pool"
)

type activeLease struct {
	leaseID   string
	expiresAt time.Time
}

// MemoryStore implements Store with an in-process map. It backs deployments
// without Redis and the provisioner tests. Semantics mirror RedisStore:
// active leases survive a pool rewrite.
type MemoryStore struct {
	mu     sync.Mutex
	creds  map[string]pool.Credential
	leases map[string]activeLease
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory lease store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds:  make(map[string]pool.Credential),
		leases: make(map[string]activeLease),
		now:    time.Now,
	}
}

// Initialize is a no-op.
func (s *MemoryStore) Initialize(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// Health is a no-op.
func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) leasedLocked(username string) bool {
	l, ok := s.leases[username]
	if !ok {
		return false
	}
	if s.now().After(l.expiresAt) {
		delete(s.leases, username)
		return false
	}
	return true
}

// CountAvailable counts credentials marked available with no active lease.
func (s *MemoryStore) CountAvailable(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for username, c := range s.creds {
		if c.Available && !s.leasedLocked(username) {
			n++
		}
	}
	return n, nil
}

// RegisterLease grants the first available credential in username order.
func (s *MemoryStore) RegisterLease(_ context.Context, expiresAt time.Time) (*Grant, error) {
	if !expiresAt.After(s.now()) {
		return nil, fmt.Errorf("lease expiry %s is in the past", expiresAt.Format(time.RFC3339))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	usernames := make([]string, 0, len(s.creds))
	for username := range s.creds {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	for _, username := range usernames {
		c := s.creds[username]
		if !c.Available || s.leasedLocked(username) {
			continue
		}
		leaseID := uuid.NewString()
		s.leases[username] = activeLease{leaseID: leaseID, expiresAt: expiresAt}
		return &Grant{
			LeaseID:   leaseID,
			Username:  c.Username,
			Password:  c.Password,
			IPAddress: c.IPAddress,
			Port:      c.Port,
			ExpiresAt: expiresAt.UnixMilli(),
		}, nil
	}
	return nil, ErrNoCredentials
}

// BulkWrite replaces the stored pool wholesale.
func (s *MemoryStore) BulkWrite(_ context.Context, creds []pool.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = make(map[string]pool.Credential, len(creds))
	for _, c := range creds {
		s.creds[c.Username] = c
	}
	return nil
}
