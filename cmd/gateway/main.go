// Copyright (C) 2026 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command gateway starts the DergiChat document retrieval server.
//
// This is the main entry point for the containerized gateway service.
// It reads configuration from environment variables (optionally via a
// .env file) and starts the server.
//
// # Environment Variables
//
//   - GATEWAY_PORT: HTTP server port (default: 12220)
//   - AWS_REGION: Region of the archive bucket (required)
//   - AWS_ACCESS_KEY_ID: AWS access key (required)
//   - AWS_SECRET_ACCESS_KEY: AWS secret key (required)
//   - AWS_BUCKET_NAME: Bucket name (default: leveldergi)
//   - GATEWAY_OBJECT_PREFIX: Key prefix for cited files (default: halkla)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional)
//   - GATEWAY_ENABLE_METRICS: Expose /metrics (default: true)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//
// # Usage
//
//	go build -o gateway ./cmd/gateway
//	./gateway
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/AleutianAI/DergiChat/pkg/logging"
	"github.com/AleutianAI/DergiChat/services/gateway"
)

func main() {
	// A .env file is optional; real deployments use the environment.
	_ = godotenv.Load()

	logger := logging.New(logging.Config{
		Level:   getEnvString("LOG_LEVEL", "info"),
		Format:  "json",
		Service: "gateway",
	})
	slog.SetDefault(logger)

	cfg := gateway.Config{
		Port:            getEnvInt("GATEWAY_PORT", 12220),
		Region:          os.Getenv("AWS_REGION"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Bucket:          getEnvString("AWS_BUCKET_NAME", "leveldergi"),
		ObjectPrefix:    getEnvString("GATEWAY_OBJECT_PREFIX", "halkla"),
		OTelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		EnableMetrics:   getEnvBool("GATEWAY_ENABLE_METRICS", true),
	}

	if missing := gateway.MissingStoreConfig(cfg); len(missing) > 0 {
		slog.Warn("Incomplete object store configuration",
			"missing", missing)
	}

	slog.Info("Starting gateway",
		"port", cfg.Port,
		"bucket", cfg.Bucket,
		"prefix", cfg.ObjectPrefix,
		"region", cfg.Region,
	)

	svc, err := gateway.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Gateway error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
