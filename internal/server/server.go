// Package server is the HTTP and WebSocket API surface: read-only projection
// endpoints, tx intent building, the leaderboard, and the realtime gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/suibid/internal/domain"
	"github.com/alanyoungcy/suibid/internal/server/handler"
	"github.com/alanyoungcy/suibid/internal/server/middleware"
	"github.com/alanyoungcy/suibid/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit requests per client IP per RateWindow. Zero disables
	// rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Auctions    *handler.AuctionHandler
	Trades      *handler.TradeHandler
	Leaderboard *handler.LeaderboardHandler
	Intents     *handler.IntentHandler
}

// Server is the headless HTTP + WebSocket API server for the marketplace.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. Pass a nil limiter to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Auction endpoints.
	mux.HandleFunc("GET /api/auctions", handlers.Auctions.ListAuctions)
	mux.HandleFunc("GET /api/auctions/{id}", handlers.Auctions.GetAuction)
	mux.HandleFunc("GET /api/auctions/{id}/position", handlers.Auctions.GetPosition)
	mux.HandleFunc("GET /api/auctions/{id}/positions", handlers.Auctions.ListPositions)

	// Trade endpoints.
	mux.HandleFunc("GET /api/trades", handlers.Trades.ListTrades)
	mux.HandleFunc("GET /api/trades/{id}", handlers.Trades.GetTrade)

	// Leaderboard endpoints.
	mux.HandleFunc("GET /api/leaderboard", handlers.Leaderboard.Top)
	mux.HandleFunc("GET /api/leaderboard/{address}", handlers.Leaderboard.Stats)

	// Tx intent endpoints.
	mux.HandleFunc("POST /api/auctions/intents/create", handlers.Intents.CreateAuctionIntent)
	mux.HandleFunc("POST /api/auctions/{id}/intents/bid", handlers.Intents.BidIntent)
	mux.HandleFunc("POST /api/auctions/{id}/intents/end", handlers.Intents.EndAuctionIntent)
	mux.HandleFunc("POST /api/auctions/{id}/intents/claim", handlers.Intents.ClaimIntent)
	mux.HandleFunc("POST /api/auctions/{id}/intents/withdraw", handlers.Intents.WithdrawIntent)
	mux.HandleFunc("POST /api/trades/intents/create", handlers.Intents.CreateTradeIntent)
	mux.HandleFunc("POST /api/trades/{id}/intents/offer", handlers.Intents.OfferIntent)
	mux.HandleFunc("POST /api/trades/{id}/intents/accept", handlers.Intents.AcceptOfferIntent)
	mux.HandleFunc("POST /api/trades/{id}/intents/cancel", handlers.Intents.CancelTradeIntent)
	mux.HandleFunc("POST /api/trades/{id}/intents/withdraw", handlers.Intents.WithdrawOfferIntent)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-IP rate limiting.
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
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
