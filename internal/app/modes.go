package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/nftmarket/internal/engine"
	"github.com/alanyoungcy/nftmarket/internal/server"
	"github.com/alanyoungcy/nftmarket/internal/server/handler"
	"github.com/alanyoungcy/nftmarket/internal/server/ws"
	"github.com/alanyoungcy/nftmarket/internal/service"
)

// ServeMode restores the market engine from the journal and runs the HTTP
// and WebSocket API until the context is cancelled.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	if err := a.startMarket(ctx, g, deps); err != nil {
		return fmt.Errorf("serve mode: %w", err)
	}

	return g.Wait()
}

// ArchiveMode drains the event journal into object storage on a fixed
// interval. It runs no market engine and accepts no API traffic.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	g, ctx := errgroup.WithContext(ctx)

	if err := a.startArchiver(ctx, g, deps); err != nil {
		return fmt.Errorf("archive mode: %w", err)
	}

	return g.Wait()
}

// FullMode runs the market engine, the API server, and the journal archiver
// in a single process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	if err := a.startMarket(ctx, g, deps); err != nil {
		return fmt.Errorf("full mode: %w", err)
	}
	if err := a.startArchiver(ctx, g, deps); err != nil {
		return fmt.Errorf("full mode: %w", err)
	}

	return g.Wait()
}

// startMarket builds the engine, journal, and market service, restores state
// from the record stores, and adds the HTTP server and WebSocket hub to the
// errgroup.
func (a *App) startMarket(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	if deps.Registry == nil || deps.Ledger == nil {
		return fmt.Errorf("market requires a chain connection")
	}

	beneficiary := common.HexToAddress(a.cfg.Engine.Beneficiary)

	journal := service.NewJournal(service.JournalDeps{
		Events:      deps.EventStore,
		Items:       deps.ItemStore,
		Auctions:    deps.AuctionStore,
		Fees:        deps.FeeStore,
		Bus:         deps.EventBus,
		Notifier:    deps.Notifier,
		Beneficiary: beneficiary,
	}, a.logger)

	eng := engine.New(engine.Config{
		FeeBps:      a.cfg.Engine.FeeBps,
		Beneficiary: beneficiary,
		Custodian:   deps.Chain.Custodian(),
	}, deps.Registry, deps.Ledger,
		engine.WithSink(journal),
		engine.WithLogger(a.logger),
	)

	market := service.NewMarketService(service.MarketServiceDeps{
		Engine:     eng,
		Items:      deps.ItemStore,
		Auctions:   deps.AuctionStore,
		Events:     deps.EventStore,
		Fees:       deps.FeeStore,
		Locks:      deps.LockManager,
		Limiter:    deps.RateLimiter,
		Inspector:  deps.Inspector,
		Custodian:  deps.Chain.Custodian(),
		RateLimit:  a.cfg.Server.MutateRateLimit,
		RateWindow: a.cfg.Server.RateWindow.Duration,
	}, a.logger)

	// Replay persisted records before taking any traffic so counters and
	// live listings match the journal.
	if err := market.Restore(ctx); err != nil {
		return err
	}
	items, auctions, err := market.Counts(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "record counts unavailable", slog.String("error", err.Error()))
	} else {
		a.logger.InfoContext(ctx, "market state restored",
			slog.Int64("items", items),
			slog.Int64("auctions", auctions),
		)
	}

	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "server.enabled is false; engine restored but no API is exposed")
		return nil
	}

	hub := ws.NewHub(deps.EventBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(a.logger),
		Items:    handler.NewItemHandler(market, a.logger),
		Auctions: handler.NewAuctionHandler(market, a.logger),
		Fees:     handler.NewFeeHandler(market, a.logger),
		Events:   handler.NewEventHandler(market, a.logger),
		Status:   handler.NewStatusHandler(market, time.Now().UTC(), a.logger),
	}
	if deps.BlobReader != nil {
		handlers.Archives = handler.NewArchiveHandler(deps.BlobReader, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
		Limiter:     deps.RateLimiter,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return nil
}

// startArchiver adds the journal archiver loop to the errgroup. The cursor
// is resumed from the bucket listing so a restart picks up after the last
// uploaded range instead of re-archiving from sequence zero.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	if deps.Archiver == nil {
		return fmt.Errorf("archiver requires object storage")
	}

	if deps.BlobReader != nil {
		if err := deps.Archiver.Resume(ctx, deps.BlobReader); err != nil {
			return fmt.Errorf("archiver resume: %w", err)
		}
	}

	interval := a.cfg.S3.ArchiveInterval.Duration
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	g.Go(func() error {
		err := deps.Archiver.Run(ctx, interval)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	a.logger.InfoContext(ctx, "archiver started",
		slog.Duration("interval", interval),
		slog.String("bucket", a.cfg.S3.Bucket),
	)
	return nil
}
