// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gateway provides the document retrieval service for DergiChat.
//
// This package contains the main Gateway type that coordinates HTTP
// routing, the S3-backed object store, and observability infrastructure.
//
// # Usage
//
//	cfg := gateway.Config{
//	    Port:            12220,
//	    Region:          "eu-central-1",
//	    AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
//	    SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
//	}
//	svc, err := gateway.New(context.Background(), cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/DergiChat/services/gateway/observability"
	"github.com/AleutianAI/DergiChat/services/gateway/routes"
	"github.com/AleutianAI/DergiChat/services/gateway/storage"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the gateway service.
//
// # Description
//
// Service abstracts the gateway lifecycle, enabling testing and
// alternative implementations. Run() blocks and should only be called
// once per instance.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use after construction.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds gateway configuration options.
//
// # Description
//
// Config centralizes all configuration for the gateway. Values are
// typically populated from environment variables by cmd/gateway, or
// programmatically for testing.
//
// # Required Fields
//
// Region, AccessKeyID, and SecretAccessKey are required for the object
// store. When any are missing the gateway still starts, but the
// retrieval endpoints answer 500 enumerating the missing names so a
// misdeployment is diagnosable from a single request.
type Config struct {
	// Port is the HTTP server port. Default: 12220
	Port int

	// Region is the AWS region of the bucket.
	Region string

	// AccessKeyID is the AWS access key.
	AccessKeyID string

	// SecretAccessKey is the AWS secret key.
	SecretAccessKey string

	// Bucket is the S3 bucket name. Default: "leveldergi"
	Bucket string

	// ObjectPrefix is prepended to every requested filename.
	// Default: "halkla"
	ObjectPrefix string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Tracing is disabled when empty.
	OTelEndpoint string

	// EnableMetrics enables the Prometheus /metrics endpoint.
	EnableMetrics bool

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string
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
	store         storage.ObjectStore
	missingConfig []string
	metrics       *observability.GatewayMetrics
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a gateway Service with the given configuration.
//
// # Description
//
// New applies defaults, validates the store configuration, initializes
// tracing and metrics when enabled, constructs the S3 store, and sets
// up the HTTP router. An incomplete store configuration is not fatal:
// the service starts and reports the missing variables per request.
//
// # Inputs
//
//   - ctx: Context for AWS configuration loading.
//   - cfg: Service configuration. Zero values use defaults.
//
// # Outputs
//
//   - Service: Ready-to-run gateway service.
//   - error: Non-nil if initialization fails.
func New(ctx context.Context, cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	if s.config.OTelEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	if s.config.EnableMetrics {
		s.metrics = observability.NewGatewayMetrics(prometheus.DefaultRegisterer)
		slog.Info("Initialized Prometheus metrics for the gateway")
	}

	s.missingConfig = MissingStoreConfig(s.config)
	if len(s.missingConfig) > 0 {
		slog.Warn("Object store not configured, retrieval endpoints will fail",
			"missing", s.missingConfig)
	} else {
		store, err := storage.NewS3Store(ctx, storage.Config{
			Region:          s.config.Region,
			AccessKeyID:     s.config.AccessKeyID,
			SecretAccessKey: s.config.SecretAccessKey,
			Bucket:          s.config.Bucket,
		})
		if err != nil {
			s.cleanup()
			return nil, fmt.Errorf("failed to initialize object store: %w", err)
		}
		s.store = store
		slog.Info("Object store initialized",
			"bucket", s.config.Bucket,
			"prefix", s.config.ObjectPrefix,
			"region", s.config.Region)
	}

	s.initRouter()

	return s, nil
}

// MissingStoreConfig returns the environment variable names whose
// values are absent from cfg, in a fixed order. Empty when the object
// store can be constructed.
func MissingStoreConfig(cfg Config) []string {
	var missing []string
	if cfg.Region == "" {
		missing = append(missing, "AWS_REGION")
	}
	if cfg.AccessKeyID == "" {
		missing = append(missing, "AWS_ACCESS_KEY_ID")
	}
	if cfg.SecretAccessKey == "" {
		missing = append(missing, "AWS_SECRET_ACCESS_KEY")
	}
	return missing
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting gateway server", "port", s.config.Port)

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
	if cfg.Bucket == "" {
		cfg.Bucket = "leveldergi"
	}
	if cfg.ObjectPrefix == "" {
		cfg.ObjectPrefix = "halkla"
	}
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// Uses an insecure gRPC connection, appropriate for internal networks.
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
		resource.WithAttributes(semconv.ServiceNameKey.String("dergichat-gateway")))
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

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	s.router = gin.Default()

	if s.config.OTelEndpoint != "" {
		s.router.Use(otelgin.Middleware("dergichat-gateway"))
	}

	routes.SetupRoutes(s.router, s.store, s.config.ObjectPrefix,
		s.missingConfig, s.metrics)

	if s.config.EnableMetrics {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// cleanup releases all resources held by the service.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
