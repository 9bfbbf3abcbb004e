package handler

import (
	"errors"
	"log/slog"
	"net/http"

	cacheredis "github.com/alanyoungcy/suibid/internal/cache/redis"
	"github.com/alanyoungcy/suibid/internal/domain"
)

// TradeHandler serves trade projection endpoints.
type TradeHandler struct {
	store    domain.ProjectionStore
	registry domain.EntityRegistry
	logger   *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(store domain.ProjectionStore, registry domain.EntityRegistry, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		store:    store,
		registry: registry,
		logger:   logger,
	}
}

// listTradesResponse wraps the list endpoint output.
type listTradesResponse struct {
	Trades []domain.TradeProjection `json:"trades"`
	Total  int                      `json:"total"`
}

// ListTrades returns the projections of all registered trades.
// GET /api/trades?limit=50
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 500)

	ids, err := h.registry.List(r.Context(), cacheredis.TradesSet)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}

	trades := make([]domain.TradeProjection, 0, len(ids))
	for _, id := range ids {
		if len(trades) >= limit {
			break
		}
		t, err := h.store.GetTrade(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			h.logger.ErrorContext(r.Context(), "handler: load trade failed",
				slog.String("trade_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to load trades")
			return
		}
		trades = append(trades, t)
	}

	writeJSON(w, http.StatusOK, listTradesResponse{
		Trades: trades,
		Total:  len(ids),
	})
}

// GetTrade returns a single trade projection by id.
// GET /api/trades/{id}
func (h *TradeHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing trade id")
		return
	}

	t, err := h.store.GetTrade(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trade not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get trade failed",
			slog.String("trade_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get trade")
		return
	}

	writeJSON(w, http.StatusOK, t)
}
