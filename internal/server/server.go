// Package server hosts the HTTP and WebSocket API for the marketplace.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/server/handler"
	"github.com/alanyoungcy/nftmarket/internal/server/middleware"
	"github.com/alanyoungcy/nftmarket/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// Per-IP request limit applied across the whole API. Disabled when
	// Limiter is nil or RateLimit is zero.
	RateLimit  int
	RateWindow time.Duration
	Limiter    domain.RateLimiter
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health   *handler.HealthHandler
	Items    *handler.ItemHandler
	Auctions *handler.AuctionHandler
	Fees     *handler.FeeHandler
	Events   *handler.EventHandler
	Status   *handler.StatusHandler

	// Archives is optional: only modes that mount cold storage set it.
	Archives *handler.ArchiveHandler
}

// Server is the headless HTTP + WebSocket API server for the marketplace.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (rate limiting, logging, CORS, auth) and attaches
// the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required, registered outside the chain below).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Status snapshot.
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Fixed-price listing endpoints.
	mux.HandleFunc("GET /api/items", handlers.Items.ListItems)
	mux.HandleFunc("POST /api/items", handlers.Items.CreateListing)
	mux.HandleFunc("GET /api/items/{id}", handlers.Items.GetItem)
	mux.HandleFunc("POST /api/items/{id}/buy", handlers.Items.BuyItem)
	mux.HandleFunc("GET /api/items/{id}/custody", handlers.Items.GetCustody)
	mux.HandleFunc("DELETE /api/items/{id}", handlers.Items.CancelListing)

	// Auction endpoints.
	mux.HandleFunc("GET /api/auctions", handlers.Auctions.ListAuctions)
	mux.HandleFunc("POST /api/auctions", handlers.Auctions.CreateAuction)
	mux.HandleFunc("GET /api/auctions/{id}", handlers.Auctions.GetAuction)
	mux.HandleFunc("POST /api/auctions/{id}/bids", handlers.Auctions.PlaceBid)
	mux.HandleFunc("POST /api/auctions/{id}/conclude", handlers.Auctions.ConcludeAuction)
	mux.HandleFunc("DELETE /api/auctions/{id}", handlers.Auctions.CancelAuction)

	// Fee policy endpoints.
	mux.HandleFunc("GET /api/fees", handlers.Fees.GetFeePolicy)
	mux.HandleFunc("PUT /api/fees", handlers.Fees.UpdateFee)

	// Notification feed catch-up.
	mux.HandleFunc("GET /api/events", handlers.Events.ListEvents)

	// Cold-storage archive browsing, when the mode mounts a blob reader.
	if handlers.Archives != nil {
		mux.HandleFunc("GET /api/archives", handlers.Archives.ListArchives)
		mux.HandleFunc("GET /api/archives/{path...}", handlers.Archives.GetArchive)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-IP rate limiting when a limiter is configured.
	if cfg.Limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(cfg.Limiter, cfg.RateLimit, cfg.RateWindow)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
