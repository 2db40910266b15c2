// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/groundline/pkg/logging"
	"github.com/AleutianAI/groundline/services/orchestrator"
)

// FileConfig mirrors the optional config.yaml layout.
type FileConfig struct {
	Port             int    `yaml:"port"`
	ConstitutionPath string `yaml:"constitution_path"`
	OTelEndpoint     string `yaml:"otel_endpoint"`
	EnableTracing    bool   `yaml:"enable_tracing"`
	DisableMetrics   bool   `yaml:"disable_metrics"`
	GinMode          string `yaml:"gin_mode"`
	LogLevel         string `yaml:"log_level"`
	LogJSON          bool   `yaml:"log_json"`
	Session          struct {
		DisableSweep  bool          `yaml:"disable_sweep"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
		IdleTTL       time.Duration `yaml:"idle_ttl"`
	} `yaml:"session"`
}

var (
	fileConfig FileConfig

	configPath       string
	flagPort         int
	flagConstitution string

	rootCmd = &cobra.Command{
		Use:   "groundline",
		Short: "Constitutionally grounded question answering service",
		Long: `Groundline serves streaming answers grounded in a fixed constitution
of axioms and per-request reality statements, with inline citations
resolved to their full definitions on the wire.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the answer service HTTP server",
		Long: `Starts the HTTP server exposing the streaming generate endpoint,
session administration, health, and Prometheus metrics.`,
		Run: runServeCommand,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the Groundline version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("groundline", version)
		},
	}
)

// version is stamped at build time via -ldflags.
var version = "dev"

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml",
		"path to the YAML config file (optional)")
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "HTTP server port")
	serveCmd.Flags().StringVar(&flagConstitution, "constitution", "",
		"path to the axiom constitution JSON file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(configPath)
		if err != nil {
			// The config file is optional; env vars and flags still apply.
			if !os.IsNotExist(err) {
				log.Fatalf("Error reading %s: %v", configPath, err)
			}
			return
		}
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Println("Configuration loaded successfully.")
	}
}

// runServeCommand assembles the layered configuration and runs the server.
func runServeCommand(cmd *cobra.Command, args []string) {
	logging.Setup(logging.Config{
		Level:   logging.ParseLevel(getEnvString("GROUNDLINE_LOG_LEVEL", fileConfig.LogLevel)),
		Service: "answer-service",
		JSON:    fileConfig.LogJSON,
	})

	cfg := orchestrator.Config{
		Port:                 fileConfig.Port,
		ConstitutionPath:     fileConfig.ConstitutionPath,
		OTelEndpoint:         fileConfig.OTelEndpoint,
		EnableTracing:        fileConfig.EnableTracing,
		DisableMetrics:       fileConfig.DisableMetrics,
		GinMode:              fileConfig.GinMode,
		DisableSessionSweep:  fileConfig.Session.DisableSweep,
		SessionSweepInterval: fileConfig.Session.SweepInterval,
		SessionIdleTTL:       fileConfig.Session.IdleTTL,
	}

	// Env vars override the file.
	cfg.Port = getEnvInt("GROUNDLINE_PORT", cfg.Port)
	cfg.ConstitutionPath = getEnvString("GROUNDLINE_CONSTITUTION", cfg.ConstitutionPath)
	cfg.OTelEndpoint = getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTelEndpoint)
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		cfg.EnableTracing = true
	}

	// Flags override everything.
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagConstitution != "" {
		cfg.ConstitutionPath = flagConstitution
	}

	slog.Info("Starting Groundline",
		"port", cfg.Port,
		"constitution", cfg.ConstitutionPath,
		"tracing", cfg.EnableTracing,
	)

	svc, err := orchestrator.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create answer service: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("Answer service error: %v", err)
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
