// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command mashup starts the context-aware aggregation HTTP server.
//
// This is the main entry point for the containerized mashup service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - MASHUP_PORT: HTTP server port (default: 12220)
//   - MONGO_URI: MongoDB connection string (default: mongodb://localhost:27017)
//   - MONGO_DATABASE: Schema and descriptor database (default: mashup)
//   - CACHE_PATH: Badger cache directory (default: in-memory)
//   - SESSION_TTL_MINUTES: Session lifetime in minutes (default: 30)
//   - BRIDGE_TIMEOUT_SECONDS: Upstream request timeout in seconds (default: 3)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: aleutian-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o mashup ./cmd/mashup
//
//	# Run
//	./mashup
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianMashup/services/mashup"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables
	cfg := mashup.Config{
		Port:          getEnvInt("MASHUP_PORT", 12220),
		MongoURI:      getEnvString("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnvString("MONGO_DATABASE", "mashup"),
		CachePath:     os.Getenv("CACHE_PATH"),
		SessionTTL:    time.Duration(getEnvInt("SESSION_TTL_MINUTES", 30)) * time.Minute,
		BridgeTimeout: time.Duration(getEnvInt("BRIDGE_TIMEOUT_SECONDS", 3)) * time.Second,
		OTelEndpoint:  getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "aleutian-otel-collector:4317"),
	}

	slog.Info("Starting mashup",
		"port", cfg.Port,
		"mongo_database", cfg.MongoDatabase,
		"cache_path", cfg.CachePath,
	)

	svc, err := mashup.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create mashup service: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Mashup service error: %v", err)
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
