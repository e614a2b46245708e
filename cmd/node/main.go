// Package main runs a table node: it connects to the relay, watches actor
// mutations posted to its local API, and resolves great wounds it holds
// authority over.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/greatwound/internal/actor"
	"github.com/cory-johannsen/greatwound/internal/api"
	"github.com/cory-johannsen/greatwound/internal/channel"
	"github.com/cory-johannsen/greatwound/internal/config"
	"github.com/cory-johannsen/greatwound/internal/dice"
	"github.com/cory-johannsen/greatwound/internal/notify"
	"github.com/cory-johannsen/greatwound/internal/observability"
	"github.com/cory-johannsen/greatwound/internal/scripting"
	"github.com/cory-johannsen/greatwound/internal/server"
	"github.com/cory-johannsen/greatwound/internal/settings"
	"github.com/cory-johannsen/greatwound/internal/storage/postgres"
	"github.com/cory-johannsen/greatwound/internal/tables"
	"github.com/cory-johannsen/greatwound/internal/wound"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/node.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	role, err := actor.ParseRole(cfg.Node.Role)
	if err != nil {
		logger.Fatal("parsing node role", zap.Error(err))
	}

	logger.Info("starting node",
		zap.String("user_id", cfg.Node.UserID),
		zap.String("role", string(role)),
		zap.String("listen_addr", cfg.Node.ListenAddr),
	)

	cryptoSrc := dice.NewCryptoSource()
	roller := dice.NewLoggedRoller(cryptoSrc, logger)

	// World settings
	settingsStore, err := settings.NewRedisStore(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("connecting to settings store", zap.Error(err))
	}
	defer settingsStore.Close()

	// Actor store
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	repo := postgres.NewActorRepository(pool.DB())

	// Roll tables
	registry, err := tables.NewRegistryFromDir(cfg.Content.TablesDir)
	if err != nil {
		logger.Fatal("loading roll tables", zap.Error(err))
	}
	logger.Info("roll tables loaded",
		zap.String("dir", cfg.Content.TablesDir),
		zap.Int("count", registry.Len()),
	)

	// Shared broadcast channel
	client, err := channel.Dial(ctx, cfg.Relay.URL(), cfg.Relay.WriteTimeout, logger)
	if err != nil {
		logger.Fatal("connecting to relay", zap.Error(err))
	}
	logger.Info("relay connected", zap.String("url", cfg.Relay.URL()))

	notifier := notify.NewChannelNotifier(cfg.Node.Name, client, logger)
	queues := actor.NewQueueSet(16)

	// Optional Lua outcome hooks
	var hook wound.OutcomeHook
	if cfg.Content.ScriptsDir != "" {
		hooks := scripting.NewHooks(roller, logger)
		if err := hooks.Load(cfg.Content.ScriptsDir, cfg.Content.ScriptInstructionLimit); err != nil {
			logger.Fatal("loading outcome hooks", zap.Error(err))
		}
		defer hooks.Close()
		hook = hooks
		logger.Info("outcome hooks loaded", zap.String("dir", cfg.Content.ScriptsDir))
	}

	masters := make(map[string]bool, len(cfg.Node.GameMasters))
	for _, id := range cfg.Node.GameMasters {
		masters[id] = true
	}
	identity := wound.Context{
		UserID: cfg.Node.UserID,
		Role:   role,
		RoleOf: func(userID string) actor.Role {
			if masters[userID] {
				return actor.RoleGameMaster
			}
			return actor.RolePlayer
		},
	}

	applier := wound.NewApplier(wound.ApplierConfig{
		Settings: settingsStore,
		Tables:   registry,
		Roller:   roller,
		Queues:   queues,
		Store:    repo,
		Notifier: notifier,
		Logger:   logger,
	})
	svc := wound.NewService(wound.ServiceConfig{
		Identity:  identity,
		Settings:  settingsStore,
		Resolver:  wound.NewSaveResolver(settingsStore, roller),
		Applier:   applier,
		Messenger: client,
		Prompter:  wound.AcceptAll(),
		Actors:    repo,
		Hook:      hook,
		Logger:    logger,
	})
	svc.Start()

	apiServer := api.NewServer(cfg.Node.ListenAddr, repo, svc, queues, logger)

	// The relay link has no serve loop of its own; surface a dropped
	// connection as a service failure so the node shuts down cleanly.
	var closing atomic.Bool
	relayLink := &server.FuncService{
		StartFn: func() error {
			<-client.Done()
			if closing.Load() {
				return nil
			}
			return errors.New("relay connection closed")
		},
		StopFn: func() {
			closing.Store(true)
			_ = client.Close()
		},
	}

	lc := server.NewLifecycle(logger)
	lc.Add("api", apiServer)
	lc.Add("relay-link", relayLink)

	if err := lc.Run(ctx); err != nil {
		logger.Fatal("node exited", zap.Error(err))
	}

	// Let in-flight resolutions finish, then drain the actor queues.
	svc.Wait()
	queues.Close()

	logger.Info("node stopped",
		zap.Duration("uptime", time.Since(start)),
	)
}
