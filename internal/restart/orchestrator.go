// Package restart recovers the credential pool by restarting the proxy
// service through an ordered chain of strategies.
package restart

import (
	"context"

	"github.com/magicianlee007/tpn-subnet/internal/execx"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Invalidator is the slice of the readiness flag the orchestrator needs.
type Invalidator interface {
	Invalidate()
}

// Strategy is one way of restarting the proxy service. Strategies are tried
// in order; the first success wins.
type Strategy struct {
	Name string
	Argv []string
	// Tolerate, when set, may reclassify a failed invocation as a success.
	// It receives the combined command output and the invocation error.
	Tolerate func(output string, err error) bool
}

// Options configures the default strategy chain.
type Options struct {
	ComposeFiles  []string
	ServiceName   string
	ContainerName string
}

// Orchestrator issues best-effort restarts of the proxy service.
type Orchestrator struct {
	runner     execx.Runner
	readiness  Invalidator
	strategies []Strategy
	container  string
}

// NewOrchestrator builds an orchestrator with the default strategy chain:
// one compose restart per configured definition file, then a direct
// `docker restart` fallback with benign-failure tolerance.
func NewOrchestrator(runner execx.Runner, readiness Invalidator, opts Options) *Orchestrator {
	return &Orchestrator{
		runner:     runner,
		readiness:  readiness,
		strategies: defaultStrategies(opts),
		container:  opts.ContainerName,
	}
}

func defaultStrategies(opts Options) []Strategy {
	var strategies []Strategy
	for _, file := range opts.ComposeFiles {
		strategies = append(strategies, Strategy{
			Name: "compose:" + file,
			Argv: []string{"docker", "compose", "-f", file, "restart", opts.ServiceName},
		})
	}
	strategies = append(strategies, Strategy{
		Name: "direct",
		Argv: []string{"docker", "restart", opts.ContainerName},
		Tolerate: func(output string, err error) bool {
			if Classify(output) == SeverityBenign {
				log.WithError(err).Warn("direct restart reported a version mismatch; assuming the restart went through")
				return true
			}
			log.WithError(err).WithField("output", output).Error("direct proxy restart failed")
			return false
		},
	})
	return strategies
}

// RestartService walks the strategy chain until one succeeds. It never
// returns an error: a failed restart only matters if the pool stays empty,
// which the caller detects on its next availability check. The readiness
// flag is invalidated regardless of outcome, because credential files on
// disk may have changed.
func (o *Orchestrator) RestartService(ctx context.Context) {
	defer o.readiness.Invalidate()

	for _, s := range o.strategies {
		if o.attempt(ctx, s) {
			log.WithField("strategy", s.Name).Info("proxy service restart issued")
			o.verify(ctx)
			return
		}
	}
	log.Error("all proxy restart strategies failed")
}

func (o *Orchestrator) attempt(ctx context.Context, s Strategy) bool {
	res, err := o.runner.Run(ctx, s.Argv[0], s.Argv[1:]...)
	if err == nil {
		return true
	}

	output := res.Combined()
	if output == "" {
		output = err.Error()
	} else {
		output += "\n" + err.Error()
	}

	if s.Tolerate != nil {
		return s.Tolerate(output, err)
	}
	log.WithError(err).WithField("strategy", s.Name).Debug("restart strategy failed, trying next")
	return false
}

// verify confirms the container reports Running after a restart. Purely
// informational; a proxy that takes a moment to come up is normal.
func (o *Orchestrator) verify(ctx context.Context) {
	if o.container == "" {
		return
	}
	res, err := o.runner.Run(ctx, "docker", "inspect", o.container)
	if err != nil {
		log.WithError(err).Debug("post-restart inspect failed")
		return
	}
	running := gjson.Get(res.Stdout, "0.State.Running")
	if running.Exists() && !running.Bool() {
		log.WithField("container", o.container).Warn("container not reported running after restart")
	}
}
