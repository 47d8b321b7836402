// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/location_publisher/internal/app"
	"github.com/relabs-tech/location_publisher/internal/config"
)

func main() {
	configPath := flag.String("config", "./location_publisher.toml", "path to configuration file")
	flag.Parse()

	log.Info("starting location publisher (GPS → MQTT)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	if err := app.SetupLogging(cfg.LogLevel); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunPublisher(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
