package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/routecore/router/internal/config"
	"github.com/routecore/router/internal/grouping"
	"github.com/routecore/router/internal/logging"
	"github.com/routecore/router/internal/metadata"
	"github.com/routecore/router/internal/metadata/oxia"
	"github.com/routecore/router/internal/metrics"
	"github.com/routecore/router/internal/routing"
	"github.com/routecore/router/internal/server"

	"github.com/google/uuid"
)

// DaemonOptions contains the configuration for creating a Daemon.
type DaemonOptions struct {
	Config    *config.Config
	Logger    *logging.Logger
	Version   string
	GitCommit string
	BuildTime string
}

// Daemon wires the ambient stack (metadata store, metrics, health) and
// the metadata-backed grouping handler around the bindings table core.
// It owns no wire protocol of its own; route demo traffic is driven
// through the route subcommand rather than a listening socket.
type Daemon struct {
	opts   DaemonOptions
	logger *logging.Logger

	metaStore       metadata.MetadataStore
	groupingHandler routing.GroupingHandler
	routingMetrics  *metrics.RoutingMetrics

	healthServer  *server.HealthServer
	metricsServer *metrics.Server

	mu      sync.Mutex
	started bool
}

// NewDaemon creates a Daemon instance but does not start it.
func NewDaemon(opts DaemonOptions) (*Daemon, error) {
	if opts.Logger == nil {
		opts.Logger = logging.DefaultLogger()
	}
	return &Daemon{opts: opts, logger: opts.Logger}, nil
}

// Start initializes and starts all daemon components.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return fmt.Errorf("daemon already started")
	}
	d.started = true
	d.mu.Unlock()

	cfg := d.opts.Config
	if cfg.Broker.BrokerID == "" {
		cfg.Broker.BrokerID = uuid.New().String()
	}

	d.logger.Infof("starting router daemon", map[string]any{
		"clusterId": cfg.Broker.ClusterID,
		"brokerId":  cfg.Broker.BrokerID,
		"version":   d.opts.Version,
	})

	metaStore, err := newMetadataStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize metadata store: %w", err)
	}
	d.metaStore = metadata.NewInstrumentedStore(metaStore, metrics.NewOxiaMetrics())

	if cfg.Routing.GroupingEnabled {
		d.groupingHandler = grouping.NewHandler(d.metaStore, cfg.Broker.ClusterID)
	} else {
		d.groupingHandler = grouping.NewInMemoryHandler()
	}

	d.routingMetrics = metrics.NewRoutingMetrics()

	d.healthServer = server.NewHealthServer(cfg.Observability.HealthAddr, d.logger)
	d.healthServer.RegisterReadinessCheck(metadataReadinessCheck{store: d.metaStore})
	if err := d.healthServer.Start(); err != nil {
		return fmt.Errorf("failed to start health server: %w", err)
	}
	d.logger.Infof("health server started", map[string]any{"addr": d.healthServer.Addr()})

	d.metricsServer = metrics.NewServer(cfg.Observability.MetricsAddr)
	if err := d.metricsServer.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}
	d.logger.Infof("metrics server started", map[string]any{"addr": d.metricsServer.Addr()})

	<-ctx.Done()
	return nil
}

// Shutdown gracefully stops the daemon.
func (d *Daemon) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	d.logger.Info("shutting down router daemon")

	if d.healthServer != nil {
		d.healthServer.SetShuttingDown()
		if err := d.healthServer.Close(); err != nil {
			d.logger.Warnf("error closing health server", map[string]any{"error": err.Error()})
		}
	}

	if d.metricsServer != nil {
		if err := d.metricsServer.Close(); err != nil {
			d.logger.Warnf("error closing metrics server", map[string]any{"error": err.Error()})
		}
	}

	if d.metaStore != nil {
		if err := d.metaStore.Close(); err != nil {
			d.logger.Warnf("error closing metadata store", map[string]any{"error": err.Error()})
		}
	}

	d.logger.Info("router daemon shutdown complete")
	return nil
}

// metadataReadinessCheck reports ready once the metadata store answers
// a lookup without a store-closed error.
type metadataReadinessCheck struct {
	store metadata.MetadataStore
}

func (c metadataReadinessCheck) Name() string { return "metadata-store" }

func (c metadataReadinessCheck) CheckReady(ctx context.Context) error {
	_, err := c.store.Get(ctx, "/router/v1/ping")
	if err != nil && err != metadata.ErrKeyNotFound {
		return err
	}
	return nil
}

// newMetadataStore connects to Oxia when an endpoint is configured,
// falling back to the in-process mock store otherwise.
func newMetadataStore(ctx context.Context, cfg *config.Config) (metadata.MetadataStore, error) {
	if cfg.Metadata.OxiaEndpoint == "" {
		return metadata.NewMockStore(), nil
	}

	namespace := cfg.Metadata.Namespace
	if namespace == "" {
		namespace = "router"
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return oxia.New(connectCtx, oxia.Config{
		ServiceAddress: cfg.Metadata.OxiaEndpoint,
		Namespace:      namespace,
		RequestTimeout: 30 * time.Second,
		SessionTimeout: 15 * time.Second,
	})
}
