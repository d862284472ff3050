package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/magicianlee007/tpn-subnet/internal/config"
	"github.com/magicianlee007/tpn-subnet/internal/lease"
	"github.com/magicianlee007/tpn-subnet/internal/provision"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAcquirer struct {
	grant    *lease.Grant
	err      error
	duration time.Duration
	calls    int
}

func (s *stubAcquirer) Acquire(_ context.Context, leaseDuration time.Duration) (*lease.Grant, error) {
	s.calls++
	s.duration = leaseDuration
	return s.grant, s.err
}

type stubChecker struct{ reachable bool }

func (s stubChecker) IsReachable(context.Context, time.Duration) bool { return s.reachable }

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Endpoint.Host = "203.0.113.7"
	return cfg
}

func buildTestEngine(acq *stubAcquirer, reachable bool) *gin.Engine {
	store := lease.NewMemoryStore()
	return BuildEngine(testConfig(), Dependencies{
		Provisioner: acq,
		Store:       store,
		Probe:       stubChecker{reachable: reachable},
	})
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestNewConfigReturnsGrant(t *testing.T) {
	t.Parallel()

	grant := &lease.Grant{
		LeaseID:   "lease-1",
		Username:  "alice",
		Password:  "pw",
		IPAddress: "203.0.113.7",
		Port:      1080,
		ExpiresAt: time.Now().Add(time.Hour).UnixMilli(),
	}
	acq := &stubAcquirer{grant: grant}
	engine := buildTestEngine(acq, true)

	w := get(engine, "/api/config/new?lease_minutes=15")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 15*time.Minute, acq.duration)

	var got lease.Grant
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, *grant, got)
}

func TestNewConfigDefaultLease(t *testing.T) {
	t.Parallel()

	acq := &stubAcquirer{grant: &lease.Grant{Username: "alice"}}
	engine := buildTestEngine(acq, true)

	w := get(engine, "/api/config/new")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 30*time.Minute, acq.duration)
}

func TestNewConfigRejectsBadLeaseMinutes(t *testing.T) {
	t.Parallel()

	acq := &stubAcquirer{grant: &lease.Grant{}}
	engine := buildTestEngine(acq, true)

	for _, q := range []string{"0", "-5", "abc", "99999"} {
		w := get(engine, "/api/config/new?lease_minutes="+q)
		require.Equal(t, http.StatusBadRequest, w.Code, "lease_minutes=%s", q)
	}
	require.Zero(t, acq.calls)
}

func TestNewConfigPoolExhaustedMapsTo503(t *testing.T) {
	t.Parallel()

	acq := &stubAcquirer{err: provision.ErrPoolExhausted}
	engine := buildTestEngine(acq, true)

	w := get(engine, "/api/config/new")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "no available credentials")
}

func TestNewConfigOtherErrorsMapTo500(t *testing.T) {
	t.Parallel()

	acq := &stubAcquirer{err: errors.New("register lease: redis down")}
	engine := buildTestEngine(acq, true)

	w := get(engine, "/api/config/new")
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	engine := buildTestEngine(&stubAcquirer{grant: &lease.Grant{}}, true)
	w := get(engine, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	engine = buildTestEngine(&stubAcquirer{grant: &lease.Grant{}}, false)
	w = get(engine, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"endpoint_reachable":false`)
}
