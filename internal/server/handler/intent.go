package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/suibid/internal/auction"
	"github.com/alanyoungcy/suibid/internal/domain"
	"github.com/alanyoungcy/suibid/internal/platform/sui"
	"github.com/alanyoungcy/suibid/internal/trade"
)

// IntentHandler builds unsigned Move-call intents. Each endpoint validates
// the requested operation against the current projection and returns either
// the call for the client to sign and submit, or the rejection the chain
// would produce. Validation here is advisory: the chain remains the
// authority, so a race between projection and ledger only costs the caller
// a failed transaction, never a wrong state.
type IntentHandler struct {
	store   domain.ProjectionStore
	builder *sui.TxBuilder
	logger  *slog.Logger
}

// NewIntentHandler creates an IntentHandler.
func NewIntentHandler(store domain.ProjectionStore, builder *sui.TxBuilder, logger *slog.Logger) *IntentHandler {
	return &IntentHandler{
		store:   store,
		builder: builder,
		logger:  logger,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeMachineError maps a state-machine error to an HTTP response.
func (h *IntentHandler) writeMachineError(w http.ResponseWriter, r *http.Request, err error) {
	if rej, ok := domain.AsRejection(err); ok {
		writeRejection(w, rej)
		return
	}
	h.logger.ErrorContext(r.Context(), "handler: intent validation failed",
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "failed to validate intent")
}

// loadAuction fetches the auction projection, handling the missing case.
func (h *IntentHandler) loadAuction(w http.ResponseWriter, r *http.Request, id string) (domain.AuctionProjection, bool) {
	a, err := h.store.GetAuction(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "auction not found")
		} else {
			h.logger.ErrorContext(r.Context(), "handler: get auction failed",
				slog.String("auction_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to get auction")
		}
		return domain.AuctionProjection{}, false
	}
	return a, true
}

// loadTrade fetches the trade projection, handling the missing case.
func (h *IntentHandler) loadTrade(w http.ResponseWriter, r *http.Request, id string) (domain.TradeProjection, bool) {
	t, err := h.store.GetTrade(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trade not found")
		} else {
			h.logger.ErrorContext(r.Context(), "handler: get trade failed",
				slog.String("trade_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to get trade")
		}
		return domain.TradeProjection{}, false
	}
	return t, true
}

// loadPosition fetches the bidder's position, treating missing as zero.
func (h *IntentHandler) loadPosition(w http.ResponseWriter, r *http.Request, auctionID, bidder string) (domain.BidderPosition, bool) {
	pos, err := h.store.GetPosition(r.Context(), auctionID, bidder)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		h.logger.ErrorContext(r.Context(), "handler: get position failed",
			slog.String("auction_id", auctionID),
			slog.String("bidder", bidder),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get position")
		return domain.BidderPosition{}, false
	}
	return pos, true
}

// CreateAuctionIntent builds the call that lists an item for auction.
// POST /api/auctions/intents/create
func (h *IntentHandler) CreateAuctionIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID     string `json:"item_id"`
		ItemType   string `json:"item_type"`
		MinBid     int64  `json:"min_bid"`
		DurationMs int64  `json:"duration_ms"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ItemID == "" || req.ItemType == "" || req.MinBid <= 0 || req.DurationMs <= 0 {
		writeError(w, http.StatusBadRequest, "item_id, item_type, min_bid, and duration_ms are required")
		return
	}

	writeJSON(w, http.StatusOK, h.builder.CreateAuction(req.ItemID, req.ItemType, req.MinBid, req.DurationMs))
}

// BidIntent builds the call that places a bid, after checking it against the
// current projection.
// POST /api/auctions/{id}/intents/bid
func (h *IntentHandler) BidIntent(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req struct {
		Bidder   string `json:"bidder"`
		Amount   int64  `json:"amount"`
		ItemType string `json:"item_type"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Bidder == "" || req.ItemType == "" {
		writeError(w, http.StatusBadRequest, "bidder and item_type are required")
		return
	}

	a, ok := h.loadAuction(w, r, id)
	if !ok {
		return
	}
	pos, ok := h.loadPosition(w, r, id, req.Bidder)
	if !ok {
		return
	}

	if _, err := auction.PlaceBid(a, pos, req.Bidder, req.Amount, time.Now().UTC()); err != nil {
		h.writeMachineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.builder.PlaceBid(id, req.ItemType, req.Amount))
}

// EndAuctionIntent builds the seller's settlement call.
// POST /api/auctions/{id}/intents/end
func (h *IntentHandler) EndAuctionIntent(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req struct {
		Caller   string `json:"caller"`
		ItemType string `json:"item_type"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Caller == "" || req.ItemType == "" {
		writeError(w, http.StatusBadRequest, "caller and item_type are required")
		return
	}

	a, ok := h.loadAuction(w, r, id)
	if !ok {
		return
	}
	if _, err := auction.EndAuction(a, req.Caller, time.Now().UTC()); err != nil {
		h.writeMachineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.builder.EndAuction(id, req.ItemType))
}

// ClaimIntent builds the call that claims a settled auction's item.
// POST /api/auctions/{id}/intents/claim
func (h *IntentHandler) ClaimIntent(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req struct {
		Caller   string `json:"caller"`
		ItemType string `json:"item_type"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Caller == "" || req.ItemType == "" {
		writeError(w, http.StatusBadRequest, "caller and item_type are required")
		return
	}

	a, ok := h.loadAuction(w, r, id)
	if !ok {
		return
	}
	if err := auction.Claim(a, req.Caller); err != nil {
		h.writeMachineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.builder.Claim(id, req.ItemType))
}

// WithdrawIntent builds the call that returns a losing bidder's funds.
// POST /api/auctions/{id}/intents/withdraw
func (h *IntentHandler) WithdrawIntent(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req struct {
		Caller   string `json:"caller"`
		ItemType string `json:"item_type"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Caller == "" || req.ItemType == "" {
		writeError(w, http.StatusBadRequest, "caller and item_type are required")
		return
	}

	a, ok := h.loadAuction(w, r, id)
	if !ok {
		return
	}
	pos, ok := h.loadPosition(w, r, id, req.Caller)
	if !ok {
		return
	}
	if _, err := auction.Withdraw(a, pos, req.Caller, time.Now().UTC()); err != nil {
		h.writeMachineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.builder.Withdraw(id, req.ItemType))
}

// CreateTradeIntent builds the call that opens a trade listing.
// POST /api/trades/intents/create
func (h *IntentHandler) CreateTradeIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EndTimeMs int64 `json:"end_time_ms"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.EndTimeMs <= 0 {
		writeError(w, http.StatusBadRequest, "end_time_ms is required")
		return
	}

	writeJSON(w, http.StatusOK, h.builder.CreateTrade(req.EndTimeMs))
}

// OfferIntent builds the call that places an offer on a trade.
// POST /api/trades/{id}/intents/offer
func (h *IntentHandler) OfferIntent(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req struct {
		Buyer string   `json:"buyer"`
		Items []string `json:"items"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Buyer == "" {
		writeError(w, http.StatusBadRequest, "buyer is required")
		return
	}

	t, ok := h.loadTrade(w, r, id)
	if !ok {
		return
	}
	if _, _, err := trade.PlaceOffer(t, req.Buyer, req.Items, time.Now().UTC()); err != nil {
		h.writeMachineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.builder.PlaceOffer(id))
}

// AcceptOfferIntent builds the seller's acceptance call.
// POST /api/trades/{id}/intents/accept
func (h *IntentHandler) AcceptOfferIntent(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req struct {
		Caller         string `json:"caller"`
		OfferIndex     int64  `json:"offer_index"`
		SellerItemType string `json:"seller_item_type"`
		BuyerItemType  string `json:"buyer_item_type"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Caller == "" || req.SellerItemType == "" || req.BuyerItemType == "" {
		writeError(w, http.StatusBadRequest, "caller, seller_item_type, and buyer_item_type are required")
		return
	}

	t, ok := h.loadTrade(w, r, id)
	if !ok {
		return
	}
	if _, err := trade.AcceptOffer(t, req.Caller, req.OfferIndex, time.Now().UTC()); err != nil {
		h.writeMachineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.builder.AcceptOffer(id, req.OfferIndex, req.SellerItemType, req.BuyerItemType))
}

// CancelTradeIntent builds the seller's cancellation call.
// POST /api/trades/{id}/intents/cancel
func (h *IntentHandler) CancelTradeIntent(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req struct {
		Caller         string `json:"caller"`
		SellerItemType string `json:"seller_item_type"`
		BuyerItemType  string `json:"buyer_item_type"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Caller == "" || req.SellerItemType == "" || req.BuyerItemType == "" {
		writeError(w, http.StatusBadRequest, "caller, seller_item_type, and buyer_item_type are required")
		return
	}

	t, ok := h.loadTrade(w, r, id)
	if !ok {
		return
	}
	if _, err := trade.Cancel(t, req.Caller, time.Now().UTC()); err != nil {
		h.writeMachineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.builder.CancelTrade(id, req.SellerItemType, req.BuyerItemType))
}

// WithdrawOfferIntent builds the buyer's offer-withdrawal call.
// POST /api/trades/{id}/intents/withdraw
func (h *IntentHandler) WithdrawOfferIntent(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	var req struct {
		Caller     string `json:"caller"`
		OfferIndex int64  `json:"offer_index"`
		ItemType   string `json:"item_type"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Caller == "" || req.ItemType == "" {
		writeError(w, http.StatusBadRequest, "caller and item_type are required")
		return
	}

	t, ok := h.loadTrade(w, r, id)
	if !ok {
		return
	}
	if _, err := trade.WithdrawOffer(t, req.Caller, req.OfferIndex, time.Now().UTC()); err != nil {
		h.writeMachineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.builder.WithdrawOffer(id, req.OfferIndex, req.ItemType))
}
