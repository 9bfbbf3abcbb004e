package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/suibid/internal/domain"
	"github.com/alanyoungcy/suibid/internal/platform/sui"
)

func seededIntentHandler() (*IntentHandler, *fakeStore) {
	store := newFakeStore()
	store.auctions["0xa1"] = domain.AuctionProjection{
		ID:            "0xa1",
		Seller:        "0xseller",
		MinBid:        100,
		HighestBid:    150,
		HighestBidder: "0xalice",
		EndTime:       time.Now().UTC().Add(time.Hour),
		Active:        true,
	}
	store.trades["0xt1"] = domain.TradeProjection{
		ID:     "0xt1",
		Seller: "0xseller",
		Active: true,
	}
	builder := sui.NewTxBuilder("0xpkg")
	return NewIntentHandler(store, builder, testLogger()), store
}

func postWithID(h http.HandlerFunc, target, id, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	if id != "" {
		req.SetPathValue("id", id)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestBidIntentReturnsMoveCall(t *testing.T) {
	h, _ := seededIntentHandler()

	rec := postWithID(h.BidIntent, "/api/auctions/0xa1/intents/bid", "0xa1",
		`{"bidder": "0xbob", "amount": 160, "item_type": "0xpkg::items::Sword"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var call sui.MoveCall
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &call))
	assert.Equal(t, "0xpkg::auction::place_bid", call.Target)
	assert.Equal(t, []string{"0xpkg::items::Sword"}, call.TypeArgs)
}

func TestBidIntentRejectsLowBidWithShortfall(t *testing.T) {
	h, _ := seededIntentHandler()

	rec := postWithID(h.BidIntent, "/api/auctions/0xa1/intents/bid", "0xa1",
		`{"bidder": "0xbob", "amount": 140, "item_type": "0xpkg::items::Sword"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp rejectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(domain.RejectBidTooLow), resp.Reason)
	assert.Equal(t, int64(11), resp.Shortfall)
	assert.Equal(t, int64(151), resp.Required)
}

func TestBidIntentUnknownAuction(t *testing.T) {
	h, _ := seededIntentHandler()

	rec := postWithID(h.BidIntent, "/api/auctions/0xmissing/intents/bid", "0xmissing",
		`{"bidder": "0xbob", "amount": 160, "item_type": "0xpkg::items::Sword"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBidIntentBadBody(t *testing.T) {
	h, _ := seededIntentHandler()

	rec := postWithID(h.BidIntent, "/api/auctions/0xa1/intents/bid", "0xa1", `{broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postWithID(h.BidIntent, "/api/auctions/0xa1/intents/bid", "0xa1", `{"amount": 160}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOfferIntentRejectsSelfOffer(t *testing.T) {
	h, _ := seededIntentHandler()

	rec := postWithID(h.OfferIntent, "/api/trades/0xt1/intents/offer", "0xt1",
		`{"buyer": "0xseller", "items": ["0xshield"]}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp rejectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(domain.RejectSelfOffer), resp.Reason)
}

func TestAcceptOfferIntentOnResolvedTrade(t *testing.T) {
	h, store := seededIntentHandler()
	tr := store.trades["0xt1"]
	tr.Active = false
	store.trades["0xt1"] = tr

	rec := postWithID(h.AcceptOfferIntent, "/api/trades/0xt1/intents/accept", "0xt1",
		`{"caller": "0xseller", "offer_index": 0, "seller_item_type": "0xpkg::items::Sword", "buyer_item_type": "0xpkg::items::Shield"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp rejectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(domain.RejectTradeResolved), resp.Reason)
}

func TestCreateAuctionIntent(t *testing.T) {
	h, _ := seededIntentHandler()

	rec := postWithID(h.CreateAuctionIntent, "/api/auctions/intents/create", "",
		`{"item_id": "0xitem", "item_type": "0xpkg::items::Sword", "min_bid": 100, "duration_ms": 3600000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var call sui.MoveCall
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &call))
	assert.Equal(t, "0xpkg::auction::create_auction", call.Target)
}
