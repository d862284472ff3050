package provision

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/magicianlee007/tpn-subnet/internal/lease"
	"github.com/magicianlee007/tpn-subnet/internal/pool"
)

type stubProbe struct {
	mu        sync.Mutex
	reachable bool
	waits     []time.Duration
}

func (s *stubProbe) WaitUntilReachable(_ context.Context, maxWait time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits = append(s.waits, maxWait)
	return s.reachable
}

type stubLoader struct {
	creds []pool.Credential
	err   error
	store lease.Store
	ready *pool.Readiness
	calls int
}

func (s *stubLoader) LoadPool(ctx context.Context) ([]pool.Credential, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.store != nil {
		if err := s.store.BulkWrite(ctx, s.creds); err != nil {
			return nil, err
		}
	}
	if s.ready != nil {
		s.ready.MarkLoaded()
	}
	return s.creds, nil
}

type stubRestarter struct {
	calls int
	ready *pool.Readiness
	// refill, when set, simulates a restart that regenerates credential files
	// and a concurrent reload repopulating the store.
	refill func()
}

func (s *stubRestarter) RestartService(context.Context) {
	s.calls++
	if s.ready != nil {
		s.ready.Invalidate()
	}
	if s.refill != nil {
		s.refill()
	}
}

// countingStore wraps a MemoryStore to count RegisterLease invocations.
type countingStore struct {
	lease.Store
	mu        sync.Mutex
	registers int
}

func (c *countingStore) RegisterLease(ctx context.Context, expiresAt time.Time) (*lease.Grant, error) {
	c.mu.Lock()
	c.registers++
	c.mu.Unlock()
	return c.Store.RegisterLease(ctx, expiresAt)
}

func availablePool(n int) []pool.Credential {
	names := []string{"alice", "bob", "carol", "dave"}
	creds := make([]pool.Credential, 0, n)
	for i := 0; i < n; i++ {
		creds = append(creds, pool.Credential{
			Username:  names[i],
			Password:  "pw-" + names[i],
			IPAddress: "203.0.113.7",
			Port:      1080,
			Available: true,
		})
	}
	return creds
}

func newProvisioner(probe *stubProbe, loader *stubLoader, restarter *stubRestarter, store lease.Store, ready *pool.Readiness) *Provisioner {
	p := New(probe, loader, restarter, store, ready)
	p.RecheckWait = 0
	return p
}

func TestAcquireHappyPathNoRestart(t *testing.T) {
	t.Parallel()

	ready := pool.NewReadiness()
	store := &countingStore{Store: lease.NewMemoryStore()}
	loader := &stubLoader{creds: availablePool(3), store: store, ready: ready}
	restarter := &stubRestarter{ready: ready}
	probe := &stubProbe{reachable: true}

	p := newProvisioner(probe, loader, restarter, store, ready)

	before := time.Now()
	grant, err := p.Acquire(context.Background(), 30*time.Minute)
	require.NoError(t, err)

	require.Zero(t, restarter.calls, "restart must not trigger with credentials available")
	require.Equal(t, 1, store.registers)

	wantExpiry := before.Add(30 * time.Minute).UnixMilli()
	require.InDelta(t, wantExpiry, grant.ExpiresAt, float64(2*time.Second/time.Millisecond))
	require.Equal(t, "alice", grant.Username)
	require.Equal(t, "203.0.113.7", grant.IPAddress)
	require.Equal(t, 1080, grant.Port)
}

func TestAcquireExhaustedAfterRestartFails(t *testing.T) {
	t.Parallel()

	ready := pool.NewReadiness()
	store := &countingStore{Store: lease.NewMemoryStore()}
	loader := &stubLoader{creds: nil, store: store, ready: ready}
	restarter := &stubRestarter{ready: ready}
	probe := &stubProbe{reachable: true}

	p := newProvisioner(probe, loader, restarter, store, ready)

	_, err := p.Acquire(context.Background(), time.Minute)
	require.ErrorIs(t, err, ErrPoolExhausted)
	require.Equal(t, 1, restarter.calls)
	require.Zero(t, store.registers, "RegisterLease must never run on an exhausted pool")
}

func TestAcquireRestartRecoversPool(t *testing.T) {
	t.Parallel()

	ready := pool.NewReadiness()
	store := &countingStore{Store: lease.NewMemoryStore()}
	loader := &stubLoader{creds: nil, store: store, ready: ready}
	restarter := &stubRestarter{ready: ready}
	restarter.refill = func() {
		_ = store.BulkWrite(context.Background(), availablePool(2))
	}
	probe := &stubProbe{reachable: true}

	p := newProvisioner(probe, loader, restarter, store, ready)

	grant, err := p.Acquire(context.Background(), time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, restarter.calls)
	require.Equal(t, "alice", grant.Username)

	// The post-restart probe is bounded, unlike the initial wait.
	require.Equal(t, []time.Duration{-1, 0}, probe.waits)
}

func TestAcquireSkipsLoadWhenWarm(t *testing.T) {
	t.Parallel()

	ready := pool.NewReadiness()
	ready.MarkLoaded()
	store := &countingStore{Store: lease.NewMemoryStore()}
	require.NoError(t, store.BulkWrite(context.Background(), availablePool(1)))
	loader := &stubLoader{creds: availablePool(1), store: store, ready: ready}

	p := newProvisioner(&stubProbe{reachable: true}, loader, &stubRestarter{ready: ready}, store, ready)

	_, err := p.Acquire(context.Background(), time.Minute)
	require.NoError(t, err)
	require.Zero(t, loader.calls, "warm readiness flag must skip the pool load")
}

func TestAcquireLoadFailureNotImmediatelyFatal(t *testing.T) {
	t.Parallel()

	ready := pool.NewReadiness()
	store := &countingStore{Store: lease.NewMemoryStore()}
	require.NoError(t, store.BulkWrite(context.Background(), availablePool(1)))
	loader := &stubLoader{err: errors.New("disk unreadable")}

	p := newProvisioner(&stubProbe{reachable: true}, loader, &stubRestarter{ready: ready}, store, ready)

	// Stored state still has an available credential, so the request succeeds.
	grant, err := p.Acquire(context.Background(), time.Minute)
	require.NoError(t, err)
	require.Equal(t, "alice", grant.Username)
	require.Equal(t, 1, loader.calls)
}

func TestAcquireUnreachableEndpointHonorsCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ready := pool.NewReadiness()
	store := &countingStore{Store: lease.NewMemoryStore()}

	p := newProvisioner(&stubProbe{reachable: false}, &stubLoader{}, &stubRestarter{}, store, ready)

	_, err := p.Acquire(ctx, time.Minute)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
