// Package provision composes the probe, the pool loader, the restart
// orchestrator and the lease store into the single use case callers see:
// "give me one valid, unused credential with an expiry".
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/magicianlee007/tpn-subnet/internal/lease"
	"github.com/magicianlee007/tpn-subnet/internal/pool"
)

// ErrPoolExhausted is returned when no credential is available even after a
// recovery restart. Terminal for the request; callers decide whether to retry.
var ErrPoolExhausted = errors.New("no available credentials after proxy restart")

// DefaultRecheckWait bounds the best-effort reachability check after a
// recovery restart.
const DefaultRecheckWait = 30 * time.Second

type reachabilityProbe interface {
	WaitUntilReachable(ctx context.Context, maxWait time.Duration) bool
}

type poolLoader interface {
	LoadPool(ctx context.Context) ([]pool.Credential, error)
}

type restarter interface {
	RestartService(ctx context.Context)
}

// Provisioner hands out credential leases, recovering pool exhaustion by
// restarting the proxy service once per request.
type Provisioner struct {
	probe     reachabilityProbe
	loader    poolLoader
	restarter restarter
	store     lease.Store
	readiness *pool.Readiness

	// RecheckWait bounds the post-restart reachability probe. Exported so
	// tests can shrink it.
	RecheckWait time.Duration
}

// New wires a provisioner from its collaborators.
func New(probe reachabilityProbe, loader poolLoader, restarter restarter, store lease.Store, readiness *pool.Readiness) *Provisioner {
	return &Provisioner{
		probe:       probe,
		loader:      loader,
		restarter:   restarter,
		store:       store,
		readiness:   readiness,
		RecheckWait: DefaultRecheckWait,
	}
}

// Acquire blocks until the endpoint is reachable, loads the pool if the
// readiness flag is cold, and registers a lease expiring after leaseDuration.
// A zero availability count triggers exactly one recovery restart; if the
// pool is still empty afterwards the request fails with ErrPoolExhausted.
func (p *Provisioner) Acquire(ctx context.Context, leaseDuration time.Duration) (*lease.Grant, error) {
	// Unbounded wait: the design assumes the endpoint eventually comes up.
	// Only context cancellation gets us out of here without reachability.
	if !p.probe.WaitUntilReachable(ctx, -1) {
		return nil, fmt.Errorf("waiting for proxy endpoint: %w", ctx.Err())
	}

	if !p.readiness.Ready() {
		// A failed load is not fatal here: if the pool really is unusable
		// the availability check below surfaces it.
		if _, err := p.loader.LoadPool(ctx); err != nil {
			log.WithError(err).Warn("credential pool load failed, continuing with stored state")
		}
	}

	expiresAt := time.Now().Add(leaseDuration)

	available, err := p.store.CountAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("count available credentials: %w", err)
	}

	if available == 0 {
		log.Warn("credential pool exhausted, restarting proxy service")
		p.restarter.RestartService(ctx)
		// Best effort: the outcome does not gate the re-check.
		p.probe.WaitUntilReachable(ctx, p.RecheckWait)

		available, err = p.store.CountAvailable(ctx)
		if err != nil {
			return nil, fmt.Errorf("count available credentials after restart: %w", err)
		}
		if available == 0 {
			return nil, ErrPoolExhausted
		}
	}

	grant, err := p.store.RegisterLease(ctx, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("register lease: %w", err)
	}

	log.WithFields(log.Fields{
		"username":   grant.Username,
		"expires_at": grant.ExpiresAt,
	}).Info("credential leased")
	return grant, nil
}
