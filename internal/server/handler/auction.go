package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/suibid/internal/auction"
	cacheredis "github.com/alanyoungcy/suibid/internal/cache/redis"
	"github.com/alanyoungcy/suibid/internal/domain"
)

// AuctionHandler serves auction projection endpoints.
type AuctionHandler struct {
	store    domain.ProjectionStore
	registry domain.EntityRegistry
	logger   *slog.Logger
}

// NewAuctionHandler creates an AuctionHandler.
func NewAuctionHandler(store domain.ProjectionStore, registry domain.EntityRegistry, logger *slog.Logger) *AuctionHandler {
	return &AuctionHandler{
		store:    store,
		registry: registry,
		logger:   logger,
	}
}

// listAuctionsResponse wraps the list endpoint output.
type listAuctionsResponse struct {
	Auctions []domain.AuctionProjection `json:"auctions"`
	Total    int                        `json:"total"`
}

// ListAuctions returns the projections of all registered auctions.
// GET /api/auctions?limit=50
func (h *AuctionHandler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 500)

	ids, err := h.registry.List(r.Context(), cacheredis.AuctionsSet)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list auctions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list auctions")
		return
	}

	auctions := make([]domain.AuctionProjection, 0, len(ids))
	for _, id := range ids {
		if len(auctions) >= limit {
			break
		}
		a, err := h.store.GetAuction(r.Context(), id)
		if err != nil {
			// A registered id without a projection means the indexer has not
			// caught up yet; skip it.
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			h.logger.ErrorContext(r.Context(), "handler: load auction failed",
				slog.String("auction_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to load auctions")
			return
		}
		auctions = append(auctions, a)
	}

	writeJSON(w, http.StatusOK, listAuctionsResponse{
		Auctions: auctions,
		Total:    len(ids),
	})
}

// GetAuction returns a single auction projection by id.
// GET /api/auctions/{id}
func (h *AuctionHandler) GetAuction(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing auction id")
		return
	}

	a, err := h.store.GetAuction(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "auction not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get auction failed",
			slog.String("auction_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get auction")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// positionResponse is the viewer-relative standing for one auction.
type positionResponse struct {
	AuctionID string `json:"auction_id"`
	Viewer    string `json:"viewer,omitempty"`
	Standing  string `json:"standing"`
	Delta     int64  `json:"delta,omitempty"`
}

// GetPosition resolves the viewer's standing relative to an auction.
// GET /api/auctions/{id}/position?viewer=0x...
func (h *AuctionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing auction id")
		return
	}
	viewer := r.URL.Query().Get("viewer")

	a, err := h.store.GetAuction(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "auction not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get auction failed",
			slog.String("auction_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get auction")
		return
	}

	var pos domain.BidderPosition
	if viewer != "" {
		pos, err = h.store.GetPosition(r.Context(), id, viewer)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			h.logger.ErrorContext(r.Context(), "handler: get position failed",
				slog.String("auction_id", id),
				slog.String("viewer", viewer),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to get position")
			return
		}
	}

	resolved := auction.Resolve(a, pos, viewer)
	writeJSON(w, http.StatusOK, positionResponse{
		AuctionID: id,
		Viewer:    viewer,
		Standing:  resolved.Standing.String(),
		Delta:     resolved.Delta,
	})
}

// ListPositions returns every bidder position recorded for an auction.
// GET /api/auctions/{id}/positions
func (h *AuctionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing auction id")
		return
	}

	positions, err := h.store.ListPositions(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("auction_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"auction_id": id,
		"positions":  positions,
	})
}
