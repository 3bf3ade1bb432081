package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/helixchain/realtime/internal/chain"
	"github.com/helixchain/realtime/internal/emitter"
	"github.com/helixchain/realtime/internal/presence"
	"github.com/helixchain/realtime/internal/proofqueue"
	"github.com/helixchain/realtime/internal/router"
	"github.com/helixchain/realtime/internal/server"
	"github.com/helixchain/realtime/pkg/auth"
	"github.com/helixchain/realtime/pkg/config"
	"github.com/helixchain/realtime/pkg/logging"
	"github.com/helixchain/realtime/pkg/state/registry"
	"github.com/helixchain/realtime/pkg/store"
)

func main() {
	logger := logging.New(logging.LevelInfo)
	slog.SetDefault(logger)

	cfg, err := config.Load(logger, "config")
	if err != nil {
		logger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger = logging.New(logging.ParseLevel(cfg.Log.Level))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Job store: postgres when a DSN is configured, in-memory otherwise.
	var jobs store.JobStore
	if cfg.Database.DSN != "" {
		db, err := store.Open(cfg.Database.DSN)
		if err != nil {
			logger.Error("Failed to open job store", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
		jobs = store.NewJobs(db)
	} else {
		logger.Warn("No database DSN configured, failed jobs will not survive restarts")
		jobs = store.NewMemoryJobs()
	}

	reg := registry.NewInMemoryManager(logger)
	em := emitter.New(logger, reg)

	status := presence.NewStatusStore(cfg.Status.TTL)
	defer status.Stop()

	queue := proofqueue.New(logger, jobs,
		&proofqueue.LocalGenerator{StageDelay: 200 * time.Millisecond},
		proofqueue.NewNotifier(logger, em),
		proofqueue.Config{
			Concurrency:    cfg.Queue.Concurrency,
			MaxAttempts:    cfg.Queue.MaxAttempts,
			InitialBackoff: cfg.Queue.InitialBackoff,
			StallTimeout:   cfg.Queue.StallTimeout,
		},
	)

	chainSource := chain.NewChannelSource(0)
	bridge := chain.NewBridge(logger, em, chainSource)

	var sigVerifier auth.SignatureVerifier
	if cfg.Server.Auth.RequireWalletSignature {
		sigVerifier = auth.NewHMACSignatureVerifier(cfg.Server.Auth.JWTSecret)
	}

	app := server.NewApp(ctx, server.Options{
		Logger:            logger,
		Config:            cfg,
		Registry:          reg,
		Emitter:           em,
		Router:            router.New(logger, reg, em, status),
		TokenVerifier:     auth.NewJWTVerifier(cfg.Server.Auth.JWTSecret),
		SignatureVerifier: sigVerifier,
		Queue:             queue,
		ChainSink:         chainSource,
	})

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return queue.Run(runCtx) })
	g.Go(func() error { return bridge.Run(runCtx) })
	g.Go(func() error { return app.Run() })

	if err := g.Wait(); err != nil {
		logger.Error("Application run failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down successfully.")
}
