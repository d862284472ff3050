// Package probe answers "is the SOCKS5 endpoint accepting connections" by
// driving netcat through the injected command runner.
package probe

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/magicianlee007/tpn-subnet/internal/execx"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultProbeTimeout bounds a single connection attempt.
	DefaultProbeTimeout = 5 * time.Second
	// DefaultRetryInterval is the fixed delay between attempts in the wait
	// loop. Fixed interval, not backoff: deterministic latency matters more
	// here than request amplification against our own endpoint.
	DefaultRetryInterval = 5 * time.Second
)

// successTokens are the markers the netcat variants print on a successful
// connect. Their presence, not a zero exit status alone, signals reachability.
var successTokens = []string{"succeeded", "open"}

// Probe checks TCP reachability of a single host:port.
type Probe struct {
	runner execx.Runner
	host   string
	port   int

	// ProbeTimeout and RetryInterval are exported so tests can tighten them.
	ProbeTimeout  time.Duration
	RetryInterval time.Duration
}

// New builds a probe for the given endpoint.
func New(runner execx.Runner, host string, port int) *Probe {
	return &Probe{
		runner:        runner,
		host:          host,
		port:          port,
		ProbeTimeout:  DefaultProbeTimeout,
		RetryInterval: DefaultRetryInterval,
	}
}

// IsReachable issues one connection attempt bounded by timeout. It returns
// true only when the tool output contains a success token; errors, timeouts
// and ambiguous output all normalize to false and are never propagated.
func (p *Probe) IsReachable(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = p.ProbeTimeout
	}
	secs := int(timeout / time.Second)
	if secs < 1 {
		secs = 1
	}

	ctx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	res, err := p.runner.Run(ctx, "nc", "-z", "-v", "-w", strconv.Itoa(secs), p.host, strconv.Itoa(p.port))
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"host": p.host,
			"port": p.port,
		}).Debug("reachability probe failed")
		return false
	}
	return containsSuccessToken(res.Combined())
}

// WaitUntilReachable polls IsReachable at a fixed interval until the endpoint
// answers or maxWait elapses. A negative maxWait waits indefinitely; a zero
// maxWait makes exactly one attempt and returns without a retry delay.
// Context cancellation ends the wait early with false.
func (p *Probe) WaitUntilReachable(ctx context.Context, maxWait time.Duration) bool {
	start := time.Now()
	attempt := 0

	for {
		attempt++
		if p.IsReachable(ctx, p.ProbeTimeout) {
			if attempt > 1 {
				log.WithFields(log.Fields{
					"host":     p.host,
					"port":     p.port,
					"attempts": attempt,
				}).Info("endpoint became reachable")
			}
			return true
		}
		if maxWait >= 0 && time.Since(start) >= maxWait {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(p.RetryInterval):
		}
	}
}

func containsSuccessToken(output string) bool {
	lowered := strings.ToLower(output)
	for _, token := range successTokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}
