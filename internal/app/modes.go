package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/suibid/internal/pipeline"
	"github.com/alanyoungcy/suibid/internal/server"
	"github.com/alanyoungcy/suibid/internal/server/handler"
	"github.com/alanyoungcy/suibid/internal/server/ws"
)

// buildOrchestrator assembles the indexer and, when object storage is wired,
// the journal archiver.
func (a *App) buildOrchestrator(deps *Dependencies) *pipeline.Orchestrator {
	indexer := pipeline.NewIndexer(
		pipeline.IndexerDeps{
			Source:   deps.SuiClient,
			Objects:  deps.SuiClient,
			Store:    deps.Store,
			Cursors:  deps.Cursors,
			Journal:  deps.Journal,
			Bus:      deps.Bus,
			Registry: deps.Registry,
			Board:    deps.Board,
			Locks:    deps.Locks,
			Notifier: deps.Notifier,
		},
		pipeline.IndexerConfig{
			PollInterval: a.cfg.Indexer.PollInterval.Duration,
			PageSize:     a.cfg.Indexer.PageSize,
			LockTTL:      a.cfg.Indexer.LockTTL.Duration,
		},
		a.logger.With("component", "indexer"),
	)

	var archiver *pipeline.JournalArchiver
	if deps.BlobWriter != nil {
		archiver = pipeline.NewJournalArchiver(
			deps.Journal,
			deps.BlobWriter,
			a.logger.With("component", "archiver"),
		)
	}

	return pipeline.NewOrchestrator(indexer, archiver, a.logger.With("component", "pipeline"))
}

// buildServer assembles the HTTP server and its WebSocket hub.
func (a *App) buildServer(deps *Dependencies) (*server.Server, *ws.Hub) {
	hub := ws.NewHub(deps.Bus, deps.Store, a.logger.With("component", "ws"))

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(a.logger),
		Auctions:    handler.NewAuctionHandler(deps.Store, deps.Registry, a.logger),
		Trades:      handler.NewTradeHandler(deps.Store, deps.Registry, a.logger),
		Leaderboard: handler.NewLeaderboardHandler(deps.Board, a.logger),
		Intents:     handler.NewIntentHandler(deps.Store, deps.TxBuilder, a.logger),
	}

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  a.cfg.Server.RateWindow.Duration,
		},
		handlers,
		hub,
		deps.RateLimiter,
		a.logger.With("component", "server"),
	)
	return srv, hub
}

// runServer starts the hub and the HTTP server, and shuts the server down
// gracefully when the context is cancelled.
func (a *App) runServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	srv, hub := a.buildServer(deps)

	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// IndexerMode runs only the event pipeline: ledger polling, projection
// updates, and journal archiving.
func (a *App) IndexerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting indexer mode")
	return a.buildOrchestrator(deps).Run(ctx)
}

// ServerMode runs only the API surface: the HTTP endpoints and the realtime
// gateway, against projections maintained by an indexer running elsewhere.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.runServer(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the pipeline and the API surface in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	orch := a.buildOrchestrator(deps)
	g.Go(func() error {
		err := orch.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})

	if a.cfg.Server.Enabled {
		a.runServer(ctx, g, deps)
	}

	return g.Wait()
}
