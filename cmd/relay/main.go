// Package main runs the shared broadcast relay. Every table node connects
// here; any message a node sends is re-broadcast to every connected node.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/greatwound/internal/channel"
	"github.com/cory-johannsen/greatwound/internal/config"
	"github.com/cory-johannsen/greatwound/internal/observability"
	"github.com/cory-johannsen/greatwound/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/relay.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting relay",
		zap.String("addr", cfg.Relay.Addr()),
	)

	relay := channel.NewRelay(cfg.Relay, logger)

	lc := server.NewLifecycle(logger)
	lc.Add("relay", relay)

	if err := lc.Run(context.Background()); err != nil {
		logger.Fatal("relay exited", zap.Error(err))
	}

	logger.Info("relay stopped",
		zap.Duration("uptime", time.Since(start)),
	)
}
