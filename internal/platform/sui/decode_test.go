package sui

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/suibid/internal/domain"
)

const eventTypePrefix = "0xpkg::auction::"

func rawBidEvent(payload string) RawEvent {
	return RawEvent{
		ID:          EventID{TxDigest: "9uHq", EventSeq: "0"},
		Module:      "auction",
		Sender:      "0xalice",
		Type:        eventTypePrefix + "BidPlaced",
		ParsedJSON:  json.RawMessage(payload),
		TimestampMs: "1748779200000",
	}
}

func TestDecodeEventBidPlacedCurrentSchema(t *testing.T) {
	raw := rawBidEvent(`{
		"auction_id": "0xa1",
		"bidder": "0xalice",
		"bid_amount": "20",
		"total_position": "170"
	}`)

	ev, err := DecodeEvent(raw)
	require.NoError(t, err)

	bid, ok := ev.(domain.BidPlaced)
	require.True(t, ok)
	assert.Equal(t, "0xa1", bid.EntityID)
	assert.Equal(t, "0xalice", bid.Bidder)
	assert.Equal(t, int64(20), bid.Amount)
	assert.Equal(t, int64(170), bid.TotalPosition)
	assert.Equal(t, "9uHq:0", bid.TxDigest)
	assert.Equal(t, time.UnixMilli(1748779200000).UTC(), bid.Timestamp)
}

func TestDecodeEventBidPlacedLegacyAmountOnly(t *testing.T) {
	// Early contract revisions published a single "amount" that was already
	// the cumulative total.
	raw := rawBidEvent(`{"auctionId": "0xa1", "bidder": "0xalice", "amount": 150}`)

	ev, err := DecodeEvent(raw)
	require.NoError(t, err)

	bid := ev.(domain.BidPlaced)
	assert.Equal(t, int64(150), bid.Amount)
	assert.Equal(t, int64(150), bid.TotalPosition)
}

func TestDecodeEventU64AcceptsStringAndNumber(t *testing.T) {
	asString := rawBidEvent(`{"auction_id": "0xa1", "bidder": "0xb", "total_position": "150"}`)
	asNumber := rawBidEvent(`{"auction_id": "0xa1", "bidder": "0xb", "total_position": 150}`)

	evS, err := DecodeEvent(asString)
	require.NoError(t, err)
	evN, err := DecodeEvent(asNumber)
	require.NoError(t, err)

	assert.Equal(t, int64(150), evS.(domain.BidPlaced).TotalPosition)
	assert.Equal(t, int64(150), evN.(domain.BidPlaced).TotalPosition)
}

func TestDecodeEventAuctionEndedAliases(t *testing.T) {
	for _, name := range []string{"AuctionEnded", "AuctionSettled"} {
		raw := RawEvent{
			ID:         EventID{TxDigest: "9uHq", EventSeq: "1"},
			Type:       eventTypePrefix + name,
			ParsedJSON: json.RawMessage(`{"auction_id": "0xa1", "ended_by": "0xseller"}`),
		}
		ev, err := DecodeEvent(raw)
		require.NoError(t, err, name)

		ended, ok := ev.(domain.AuctionEnded)
		require.True(t, ok, name)
		assert.Equal(t, "0xa1", ended.EntityID)
		assert.Equal(t, "0xseller", ended.EndedBy)
	}
}

func TestDecodeEventTradeVariants(t *testing.T) {
	base := RawEvent{
		ID:     EventID{TxDigest: "9uHq", EventSeq: "0"},
		Module: "trade",
		Sender: "0xsender",
	}

	t.Run("TradeCreated falls back to sender for seller", func(t *testing.T) {
		raw := base
		raw.Type = "0xpkg::trade::TradeCreated"
		raw.ParsedJSON = json.RawMessage(`{"trade_id": "0xt1", "end_time": "1748865600000"}`)

		ev, err := DecodeEvent(raw)
		require.NoError(t, err)
		created := ev.(domain.TradeCreated)
		assert.Equal(t, "0xt1", created.EntityID)
		assert.Equal(t, "0xsender", created.Seller)
		assert.Equal(t, time.UnixMilli(1748865600000).UTC(), created.EndTime)
	})

	t.Run("OfferPlaced", func(t *testing.T) {
		raw := base
		raw.Type = "0xpkg::trade::OfferPlaced"
		raw.ParsedJSON = json.RawMessage(`{"trade_id": "0xt1", "offer_index": "1", "buyer": "0xbob"}`)

		ev, err := DecodeEvent(raw)
		require.NoError(t, err)
		placed := ev.(domain.OfferPlaced)
		assert.Equal(t, int64(1), placed.OfferIndex)
		assert.Equal(t, "0xbob", placed.Buyer)
	})

	t.Run("TradeCancelled single-l alias", func(t *testing.T) {
		raw := base
		raw.Type = "0xpkg::trade::TradeCanceled"
		raw.ParsedJSON = json.RawMessage(`{"trade_id": "0xt1"}`)

		ev, err := DecodeEvent(raw)
		require.NoError(t, err)
		_, ok := ev.(domain.TradeCancelled)
		assert.True(t, ok)
	})

	t.Run("OfferWithdrawn", func(t *testing.T) {
		raw := base
		raw.Type = "0xpkg::trade::OfferWithdrawn"
		raw.ParsedJSON = json.RawMessage(`{"trade_id": "0xt1", "offer_index": "0"}`)

		ev, err := DecodeEvent(raw)
		require.NoError(t, err)
		withdrawn := ev.(domain.OfferWithdrawn)
		assert.Equal(t, int64(0), withdrawn.OfferIndex)
	})
}

func TestDecodeEventErrors(t *testing.T) {
	t.Run("unknown type", func(t *testing.T) {
		raw := rawBidEvent(`{}`)
		raw.Type = "0xpkg::auction::ItemClaimed"
		_, err := DecodeEvent(raw)
		assert.Error(t, err)
	})

	t.Run("missing required field", func(t *testing.T) {
		_, err := DecodeEvent(rawBidEvent(`{"bidder": "0xalice", "amount": "150"}`))
		assert.Error(t, err)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := DecodeEvent(rawBidEvent(`{broken`))
		assert.Error(t, err)
	})
}

func TestDecodeEventSyntheticDigest(t *testing.T) {
	raw := rawBidEvent(`{"auction_id": "0xa1", "bidder": "0xalice", "amount": "150"}`)
	raw.ID.TxDigest = ""
	raw.ID.EventSeq = "2"

	ev, err := DecodeEvent(raw)
	require.NoError(t, err)

	tx := ev.Tx()
	assert.True(t, strings.HasPrefix(tx, "synthetic:"))
	assert.True(t, strings.HasSuffix(tx, ":2"))

	// Stable across retries of the same payload.
	again, err := DecodeEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, tx, again.Tx())
}

func TestParseEventIDRoundTrip(t *testing.T) {
	id := EventID{TxDigest: "9uHqWvUy", EventSeq: "3"}

	parsed, err := ParseEventID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseEventID("no-separator")
	assert.Error(t, err)
}
