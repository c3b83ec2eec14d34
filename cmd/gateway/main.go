// Command gateway runs the reactive API gateway: it terminates HTTP
// requests, bridges them to downstream services over the message broker,
// and bridges the eventual replies back, per spec.md's overview.
//
// Configuration Loading Strategy:
//  1. Command line argument: uses the specified config file path
//  2. Default file: attempts to load config/gateway.yaml
//  3. Defaults + environment overrides, if neither is present
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dev-kitchen/api-gateway/internal/amqpbroker"
	"github.com/dev-kitchen/api-gateway/internal/auth"
	"github.com/dev-kitchen/api-gateway/internal/bridge"
	"github.com/dev-kitchen/api-gateway/internal/config"
	"github.com/dev-kitchen/api-gateway/internal/logging"
	"github.com/dev-kitchen/api-gateway/internal/metrics"
	"github.com/dev-kitchen/api-gateway/internal/registry"
	"github.com/dev-kitchen/api-gateway/internal/router"
	"github.com/dev-kitchen/api-gateway/internal/wire"
)

func main() {
	cfg, source := loadConfig()

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		log.Fatalf("gateway: could not build logger: %v", err)
	}
	defer logger.Sync()

	logger.Infow("starting gateway", "configSource", source, "instanceId", cfg.InstanceID, "debug", cfg.Debug)

	m := metrics.New(prometheus.DefaultRegisterer)
	reg := registry.New(m)
	verifier := auth.NewVerifier(cfg.JWT.Secret)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !cfg.Broker.Enabled {
		logger.Fatalw("broker.enabled is false; the gateway has nothing to bridge to")
	}

	b, err := amqpbroker.Dial(cfg.Broker.URL, cfg.Broker.ServicesExchange, cfg.Broker.PublishChannels)
	if err != nil {
		logger.Fatalw("could not connect to broker", "error", err)
	}
	defer b.Close()

	replyQueue := cfg.Broker.ReplyQueueName(cfg.InstanceID)
	listener, err := amqpbroker.NewListener(b, replyQueue, replyQueue, cfg.Broker.ListenerWorkers,
		func(correlationID string, env wire.ResponseEnvelope) {
			switch reg.Complete(correlationID, env) {
			case registry.Orphan:
				logger.Warnw("orphan reply", "correlationId", correlationID)
			case registry.LateCompletion:
				logger.Warnw("late completion", "correlationId", correlationID)
			}
		},
		func(err error) {
			logger.Errorw("reply listener error", "error", err)
		},
	)
	if err != nil {
		logger.Fatalw("could not start reply listener", "error", err)
	}

	// The listener gets its own context so it keeps consuming replies while
	// the HTTP server drains in-flight requests after the shutdown signal.
	listenerCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()

	go func() {
		if err := listener.Run(listenerCtx); err != nil && listenerCtx.Err() == nil {
			logger.Errorw("reply listener stopped unexpectedly", "error", err)
		}
	}()

	gw := &bridge.Bridge{
		Publisher:    b,
		Registry:     reg,
		Routes:       router.DefaultTable(),
		ReplyTo:      listener.QueueName(),
		Timeout:      cfg.Request.Timeout(),
		MaxBodyBytes: cfg.Request.MaxBodyBytes,
		MaxInFlight:  cfg.Request.MaxInFlight,
		Metrics:      m,
	}

	handler := router.New(cfg.CORS, verifier, gw)
	server := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler.ServeHTTP(w, r.WithContext(logging.WithLogger(r.Context(), logger)))
		}),
	}

	go func() {
		logger.Infow("http server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Infow("shutdown signal received, draining in-flight requests")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("http server shutdown did not complete cleanly", "error", err)
	}
	stopListener()

	logger.Infow("gateway stopped")
}

// loadConfig mirrors cellorg's orchestrator priority hierarchy: an explicit path
// argument, then the conventional default file, then built-in defaults
// layered with environment overrides (config.Load always applies both).
func loadConfig() (*config.Config, string) {
	if len(os.Args) >= 2 {
		path := os.Args[1]
		cfg, err := config.Load(path)
		if err != nil {
			log.Fatalf("gateway: failed to load config from %s: %v", path, err)
		}
		return cfg, fmt.Sprintf("config file: %s", path)
	}

	if _, err := os.Stat("config/gateway.yaml"); err == nil {
		cfg, err := config.Load("config/gateway.yaml")
		if err != nil {
			log.Fatalf("gateway: config/gateway.yaml exists but failed to load: %v", err)
		}
		return cfg, "config/gateway.yaml (default)"
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("gateway: failed to build default configuration: %v", err)
	}
	return cfg, "defaults + environment overrides"
}
