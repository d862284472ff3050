package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/magicianlee007/tpn-subnet/internal/config"
	"github.com/magicianlee007/tpn-subnet/internal/execx"
	"github.com/magicianlee007/tpn-subnet/internal/lease"
	"github.com/magicianlee007/tpn-subnet/internal/logging"
	"github.com/magicianlee007/tpn-subnet/internal/pool"
	"github.com/magicianlee007/tpn-subnet/internal/probe"
	"github.com/magicianlee007/tpn-subnet/internal/provision"
	"github.com/magicianlee007/tpn-subnet/internal/restart"
	srv "github.com/magicianlee007/tpn-subnet/internal/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if *debug {
		cfg.Security.Debug = true
	}
	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}

	log.WithFields(log.Fields{
		"endpoint": cfg.Endpoint.Host,
		"port":     cfg.Endpoint.Port,
	}).Info("starting TPN endpoint control plane")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := buildStore(ctx, cfg)
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("failed to close lease store")
		}
	}()

	runner := execx.NewRunner()
	readiness := pool.NewReadiness()
	endpointProbe := probe.New(runner, cfg.Endpoint.Host, cfg.Endpoint.Port)
	loader := pool.NewLoader(cfg.Pool.PasswordDir, cfg.Endpoint.Host, cfg.Endpoint.Port, store, readiness)
	orchestrator := restart.NewOrchestrator(runner, readiness, restart.Options{
		ComposeFiles:  cfg.Restart.ComposeFiles,
		ServiceName:   cfg.Restart.ServiceName,
		ContainerName: cfg.Restart.ContainerName,
	})
	provisioner := provision.New(endpointProbe, loader, orchestrator, store, readiness)

	watcher := pool.NewWatcher(cfg.Pool.PasswordDir, readiness)
	if err := watcher.Start(ctx); err != nil {
		log.WithError(err).Warn("password directory watcher unavailable; pool reloads only on restart events")
	}

	engine := srv.BuildEngine(cfg, srv.Dependencies{
		Provisioner: provisioner,
		Store:       store,
		Probe:       endpointProbe,
	})

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: engine,
	}

	go func() {
		log.WithField("addr", httpServer.Addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server shutdown incomplete")
	}
}

// buildStore selects the Redis lease store when an address is configured and
// falls back to the in-process store otherwise.
func buildStore(ctx context.Context, cfg *config.Config) lease.Store {
	if cfg.Storage.RedisAddr == "" {
		log.Info("no Redis address configured; using in-memory lease store")
		return lease.NewMemoryStore()
	}

	store := lease.NewRedisStore(cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB, cfg.Storage.KeyPrefix)
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.Initialize(initCtx); err != nil {
		log.WithError(err).Warn("Redis unavailable; falling back to in-memory lease store")
		_ = store.Close()
		return lease.NewMemoryStore()
	}
	log.WithField("addr", cfg.Storage.RedisAddr).Info("Redis lease store initialized")
	return store
}
