// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mashup provides the context-aware aggregation service.
//
// This package contains the main service type that coordinates all
// components of the pipeline: HTTP routing, the MongoDB descriptor
// store, the Badger session cache, upstream bridges, and observability
// infrastructure.
//
// # Usage
//
//	cfg := mashup.Config{Port: 12220, MongoURI: "mongodb://localhost:27017"}
//	svc, err := mashup.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package mashup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/AleutianMashup/services/mashup/aggregator"
	"github.com/AleutianAI/AleutianMashup/services/mashup/bridges"
	"github.com/AleutianAI/AleutianMashup/services/mashup/cache"
	"github.com/AleutianAI/AleutianMashup/services/mashup/decorator"
	"github.com/AleutianAI/AleutianMashup/services/mashup/execution"
	"github.com/AleutianAI/AleutianMashup/services/mashup/observability"
	"github.com/AleutianAI/AleutianMashup/services/mashup/parser"
	"github.com/AleutianAI/AleutianMashup/services/mashup/provider"
	"github.com/AleutianAI/AleutianMashup/services/mashup/queryhandler"
	"github.com/AleutianAI/AleutianMashup/services/mashup/routes"
	"github.com/AleutianAI/AleutianMashup/services/mashup/selection"
	"github.com/AleutianAI/AleutianMashup/services/mashup/session"
	"github.com/AleutianAI/AleutianMashup/services/mashup/users"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the mashup service.
//
// # Description
//
// Service abstracts the service lifecycle, enabling testing and
// alternative implementations. Run() blocks and should only be called
// once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds mashup service configuration options.
//
// # Description
//
// Config centralizes all configuration for the mashup service. Values
// can be populated from environment variables, config files, or
// programmatically for testing. All fields have sensible defaults
// applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 12220
	Port int

	// MongoURI is the MongoDB connection string.
	// Default: "mongodb://localhost:27017"
	MongoURI string

	// MongoDatabase is the schema and descriptor database name.
	// Default: "mashup"
	MongoDatabase string

	// CachePath is the Badger cache directory. When empty the cache
	// runs in memory, which is appropriate for tests and single-run
	// deployments.
	CachePath string

	// SessionTTL is how long a cached session stays valid.
	// Default: 30 minutes
	SessionTTL time.Duration

	// ResponseCacheTTL is how long an upstream response stays valid
	// for its composed address. Default: 30 minutes
	ResponseCacheTTL time.Duration

	// BridgeTimeout bounds each upstream request. Default: 3 seconds
	BridgeTimeout time.Duration

	// PageSize is the default result page size. Default: 10
	PageSize int

	// SearchRadiusKm bounds geographic proximity searches.
	// Default: 1500
	SearchRadiusKm float64

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "aleutian-otel-collector:4317"
	OTelEndpoint string

	// EnableMetrics enables the Prometheus metrics endpoint.
	// Default: true
	EnableMetrics bool
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	cacheStore    *cache.BadgerStore
	store         *provider.MongoStore
	engine        *execution.Engine
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a mashup Service with the given configuration.
//
// # Description
//
// New initializes all pipeline components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Opens the Badger session cache
//  5. Connects to the MongoDB descriptor store
//  6. Wires the decoration, selection, query and aggregation pipeline
//  7. Sets up HTTP routes
//
// # Outputs
//
//   - Service: Ready-to-run mashup service
//   - error: Non-nil if initialization fails
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if s.config.EnableMetrics {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for the mashup pipeline")
	}

	if err := s.initCache(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to open the session cache: %w", err)
	}

	if err := s.initProvider(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to connect to the descriptor store: %w", err)
	}

	if err := s.initPipeline(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to wire the pipeline: %w", err)
	}

	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting mashup server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12220
	}
	if cfg.MongoURI == "" {
		cfg.MongoURI = "mongodb://localhost:27017"
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "mashup"
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.ResponseCacheTTL == 0 {
		cfg.ResponseCacheTTL = 30 * time.Minute
	}
	if cfg.BridgeTimeout == 0 {
		cfg.BridgeTimeout = 3 * time.Second
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 10
	}
	if cfg.SearchRadiusKm == 0 {
		cfg.SearchRadiusKm = 1500
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "aleutian-otel-collector:4317"
	}
	cfg.EnableMetrics = true

	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Limitations
//
//   - Uses insecure gRPC connection (appropriate for internal networks)
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("mashup-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initCache opens the Badger store backing sessions and upstream
// response caching.
func (s *service) initCache() error {
	var err error
	if s.config.CachePath == "" {
		slog.Info("Cache path not configured, running the cache in memory")
		s.cacheStore, err = cache.OpenInMemory()
		return err
	}
	s.cacheStore, err = cache.Open(cache.DefaultConfig(s.config.CachePath))
	return err
}

// initProvider connects to the MongoDB schema and descriptor store.
func (s *service) initProvider() error {
	cfg := provider.DefaultConfig(s.config.MongoURI, s.config.MongoDatabase)
	cfg.SearchRadiusKm = s.config.SearchRadiusKm

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	store, err := provider.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	s.store = store
	slog.Info("Connected to the descriptor store", "database", s.config.MongoDatabase)
	return nil
}

// initPipeline wires the decoration, selection, query and aggregation
// components into the execution engine.
func (s *service) initPipeline() error {
	dec := decorator.New(s.store, nil)
	p := parser.New(nil)
	agg := aggregator.New(aggregator.DefaultThreshold, nil)

	restCfg := bridges.DefaultRestConfig()
	restCfg.Timeout = s.config.BridgeTimeout
	restCfg.CacheTTL = s.config.ResponseCacheTTL
	restCfg.Cache = s.cacheStore

	registry := bridges.NewRegistry()
	if err := registry.Register(bridges.RestBridgeName, bridges.NewRestBridge(restCfg)); err != nil {
		return err
	}

	queries := queryhandler.New(s.store, registry, p, nil)
	primary := selection.NewPrimary(s.store, selection.DefaultPrimaryConfig(), nil)
	support := selection.NewSupport(s.store, nil)

	sessionCfg := session.Config{
		TTL:             s.config.SessionTTL,
		DefaultPageSize: s.config.PageSize,
	}
	sessions := session.NewManager(s.cacheStore, primary, queries, agg, sessionCfg, nil)

	accounts := users.New(s.store, nil)

	s.engine = execution.New(dec, sessions, support, accounts, nil)
	return nil
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("mashup-service"))

	routes.SetupRoutes(s.router, s.engine)
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.store.Close(ctx); err != nil {
			slog.Warn("Descriptor store close error", "error", err)
		}
		cancel()
	}

	if s.cacheStore != nil {
		if err := s.cacheStore.Close(); err != nil {
			slog.Warn("Session cache close error", "error", err)
		}
	}

	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
