// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator wires the grounded answer service together:
// constitution loading, model client, streaming engine, session manager,
// HTTP routing, and observability infrastructure.
//
// # Usage
//
//	cfg := orchestrator.Config{Port: 12310, ConstitutionPath: "constitution.json"}
//	svc, err := orchestrator.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
//
// Passing a non-nil llm.StreamClient to New substitutes the model backend,
// which is how integration tests run without a provider.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
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

	"github.com/AleutianAI/groundline/services/llm"
	"github.com/AleutianAI/groundline/services/orchestrator/observability"
	"github.com/AleutianAI/groundline/services/orchestrator/routes"
	"github.com/AleutianAI/groundline/services/orchestrator/ttl"
	"github.com/AleutianAI/groundline/services/qa"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the answer service lifecycle.
//
// # Description
//
// Service abstracts the service lifecycle, enabling testing and
// alternative implementations. Only essential lifecycle methods are
// exposed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
//
// # Assumptions
//
//   - Service is fully initialized before Run() is called.
//   - Run() is called at most once per Service instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	//
	// # Limitations
	//
	//   - Should not be used to modify routes after construction.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds answer service configuration options.
//
// # Description
//
// Centralizes all configuration. Values can be populated from the config
// file, environment variables, or programmatically for testing. All
// fields are optional except ConstitutionPath; defaults are applied by
// New().
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// ConstitutionPath is the path to the axiom constitution JSON file.
	// Required.
	ConstitutionPath string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "groundline-otel-collector:4317"
	OTelEndpoint string

	// EnableTracing controls OTLP trace export. When false the global
	// no-op tracer is used. Default: false (collectors are optional in
	// single-node deployments).
	EnableTracing bool

	// DisableMetrics turns off the Prometheus /metrics endpoint.
	// Metrics are on by default.
	DisableMetrics bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// DisableSessionSweep turns off the background idle-session sweeper.
	// Sweeping is on by default; disabling it restores unbounded session
	// retention, so every session id keeps its thread for the process
	// lifetime at the cost of unbounded map growth.
	DisableSessionSweep bool

	// SessionSweepInterval is how often the sweeper runs. Default: 15m
	SessionSweepInterval time.Duration

	// SessionIdleTTL is how long a session may sit unused before its
	// thread mapping is discarded. Default: 24h
	SessionIdleTTL time.Duration
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Fields
//
//   - config: Service configuration.
//   - router: Gin HTTP engine.
//   - engine: Streaming answer engine (owns axioms and sessions).
//   - sweeper: Idle-session sweeper (may be nil when disabled).
//   - tracerCleanup: Shuts down the OTLP exporter on exit (may be nil).
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	engine        *qa.Engine
	sweeper       *ttl.Sweeper
	sweeperCancel context.CancelFunc
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new answer service with the given configuration.
//
// # Description
//
// New initializes all components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing (when enabled)
//  3. Initializes Prometheus metrics
//  4. Loads the axiom constitution from disk
//  5. Creates the model client (unless one is injected)
//  6. Builds the streaming engine and session manager
//  7. Starts the idle-session sweeper
//  8. Sets up HTTP routes
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//   - client: Model client override. Pass nil for the OpenAI backend.
//
// # Outputs
//
//   - Service: Ready-to-run answer service.
//   - error: Non-nil if initialization fails.
//
// # Assumptions
//
//   - OPENAI_API_KEY is available when client is nil.
//   - ConstitutionPath points at a readable axiom JSON file.
func New(cfg Config, client llm.StreamClient) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if s.config.EnableTracing {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	if !s.config.DisableMetrics {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for streaming")
	}

	axioms, err := s.loadConstitution()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to load constitution: %w", err)
	}

	if client == nil {
		client, err = llm.NewOpenAIClient(qa.SystemPrompt)
		if err != nil {
			s.cleanup()
			return nil, fmt.Errorf("failed to initialize model client: %w", err)
		}
		slog.Info("Using OpenAI model backend")
	}

	s.engine = qa.NewEngine(client, axioms, qa.NewSessionManager(), llm.GenerationParams{})

	if !s.config.DisableSessionSweep {
		s.initSweeper()
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
	slog.Info("Starting answer service", "port", s.config.Port)

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
		cfg.Port = 12310
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "groundline-otel-collector:4317"
	}
	if cfg.SessionSweepInterval == 0 {
		cfg.SessionSweepInterval = 15 * time.Minute
	}
	if cfg.SessionIdleTTL == 0 {
		cfg.SessionIdleTTL = 24 * time.Hour
	}
	return cfg
}

// loadConstitution reads and parses the axiom file.
func (s *service) loadConstitution() (*qa.AxiomStore, error) {
	if s.config.ConstitutionPath == "" {
		return nil, fmt.Errorf("ConstitutionPath is required")
	}
	data, err := os.ReadFile(s.config.ConstitutionPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.config.ConstitutionPath, err)
	}
	axioms, err := qa.LoadAxioms(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.config.ConstitutionPath, err)
	}
	slog.Info("Loaded constitution",
		"path", s.config.ConstitutionPath,
		"axioms", axioms.Len(),
	)
	return axioms, nil
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Description
//
// Sets up an OTLP trace exporter sending spans to the configured
// collector over insecure gRPC (appropriate for internal networks).
//
// # Outputs
//
//   - func(context.Context): Cleanup function to call on shutdown.
//   - error: Non-nil if tracer setup fails.
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
		resource.WithAttributes(semconv.ServiceNameKey.String("groundline-answer-service")))
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

// initSweeper starts the background idle-session sweeper.
func (s *service) initSweeper() {
	s.sweeper = ttl.NewSweeper(s.engine.Sessions(), nil, ttl.SweeperConfig{
		Interval: s.config.SessionSweepInterval,
		IdleTTL:  s.config.SessionIdleTTL,
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.sweeperCancel = cancel
	if err := s.sweeper.Start(ctx); err != nil {
		slog.Warn("Idle-session sweeper failed to start", "error", err)
		return
	}

	slog.Info("Idle-session sweeper started",
		"interval", s.config.SessionSweepInterval.String(),
		"idle_ttl", s.config.SessionIdleTTL.String(),
	)
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("groundline-answer-service"))

	routes.SetupRoutes(s.router, s.engine, !s.config.DisableMetrics)
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.sweeper != nil {
		s.sweeper.Stop()
	}
	if s.sweeperCancel != nil {
		s.sweeperCancel()
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
