package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/suibid/internal/domain"
)

// LeaderboardHandler serves the points leaderboard endpoints.
type LeaderboardHandler struct {
	board  domain.Leaderboard
	logger *slog.Logger
}

// NewLeaderboardHandler creates a LeaderboardHandler.
func NewLeaderboardHandler(board domain.Leaderboard, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		board:  board,
		logger: logger,
	}
}

// Top returns the highest ranked addresses by points.
// GET /api/leaderboard?limit=10
func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 10, 100)

	entries, err := h.board.Top(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: leaderboard top failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

// Stats returns the points and item stats for a single address.
// GET /api/leaderboard/{address}
func (h *LeaderboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	address := pathParam(r, "address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing address")
		return
	}

	entry, err := h.board.Stats(r.Context(), address)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "address has no stats")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: leaderboard stats failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}
