// Package lease persists the credential pool and hands out time-bounded,
// mutually exclusive grants of individual credentials.
package lease

import (
	"context"
	"errors"
	"time"

	"github.com/magicianlee007/tpn-subnet/internal/pool"
)

// ErrNoCredentials is returned by RegisterLease when no credential is
// available to grant.
var ErrNoCredentials = errors.New("no available credentials")

// Grant is a time-bounded allocation of one credential to a caller.
type Grant struct {
	LeaseID   string `json:"lease_id"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	IPAddress string `json:"ip_address"`
	Port      int    `json:"port"`
	// ExpiresAt is epoch milliseconds.
	ExpiresAt int64 `json:"expires_at"`
}

// Store is the lease store contract. Implementations own the
// at-most-one-active-lease-per-credential invariant; callers treat every
// operation as atomic.
type Store interface {
	// Initialize prepares the backend (connectivity check, schema, etc.).
	Initialize(ctx context.Context) error
	// Close releases backend resources.
	Close() error
	// Health reports backend availability.
	Health(ctx context.Context) error

	// CountAvailable returns the number of credentials that are marked
	// available and not under an active lease.
	CountAvailable(ctx context.Context) (int, error)
	// RegisterLease grants one available credential until expiresAt.
	// Returns ErrNoCredentials when the pool is exhausted.
	RegisterLease(ctx context.Context, expiresAt time.Time) (*Grant, error)
	// BulkWrite replaces the stored pool wholesale. Active leases survive a
	// rewrite: a credential under lease is not available even if the new
	// snapshot says so.
	BulkWrite(ctx context.Context, creds []pool.Credential) error
}
