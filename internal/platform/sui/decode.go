package sui

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/alanyoungcy/suibid/internal/domain"
)

// Module names of the marketplace package whose events we index.
const (
	AuctionModule = "auction"
	TradeModule   = "trade"
)

// WatchedModules lists every module the indexer polls.
var WatchedModules = []string{AuctionModule, TradeModule}

// DecodeEvent converts a raw fullnode event into a variant of the domain
// event union. Unknown event types and malformed payloads return an error;
// the caller drops and logs them, they are never fatal.
//
// The payload schema drifted across contract revisions (a bid's "amount"
// became "bid_amount"+"total_position", entity ids appear in snake and camel
// case), so every field read goes through the tolerant eventFields lookup
// instead of a fixed struct.
func DecodeEvent(raw RawEvent) (domain.Event, error) {
	kind := raw.Type
	if i := strings.LastIndex(kind, "::"); i >= 0 {
		kind = kind[i+2:]
	}

	var fields eventFields
	if err := json.Unmarshal(raw.ParsedJSON, &fields); err != nil {
		return nil, fmt.Errorf("sui: parse %s payload: %w", kind, err)
	}

	ts := msToTime(raw.TimestampMs)
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	switch kind {
	case "BidPlaced":
		auctionID, ok := fields.str("auction_id", "auctionId")
		if !ok {
			return nil, fmt.Errorf("sui: BidPlaced missing auction id")
		}
		bidder, ok := fields.str("bidder")
		if !ok {
			return nil, fmt.Errorf("sui: BidPlaced missing bidder")
		}
		// Early revisions published only "amount", which was already the
		// bidder's cumulative total. Later ones split it into
		// "bid_amount" (increment) and "total_position".
		total, hasTotal := fields.u64("total_position", "totalPosition")
		amount, hasAmount := fields.u64("bid_amount", "bidAmount", "amount")
		if !hasTotal && !hasAmount {
			return nil, fmt.Errorf("sui: BidPlaced missing amount")
		}
		if !hasTotal {
			total = amount
		}
		return domain.BidPlaced{
			EventMeta:     meta(raw, auctionID, ts),
			Bidder:        bidder,
			Amount:        amount,
			TotalPosition: total,
		}, nil

	case "AuctionEnded", "AuctionSettled":
		auctionID, ok := fields.str("auction_id", "auctionId")
		if !ok {
			return nil, fmt.Errorf("sui: %s missing auction id", kind)
		}
		endedBy, _ := fields.str("ended_by", "endedBy", "seller")
		return domain.AuctionEnded{
			EventMeta: meta(raw, auctionID, ts),
			EndedBy:   endedBy,
		}, nil

	case "TradeCreated":
		tradeID, ok := fields.str("trade_id", "tradeId")
		if !ok {
			return nil, fmt.Errorf("sui: TradeCreated missing trade id")
		}
		seller, _ := fields.str("seller")
		if seller == "" {
			seller = raw.Sender
		}
		endMs, _ := fields.u64("end_time", "endTime")
		return domain.TradeCreated{
			EventMeta: meta(raw, tradeID, ts),
			Seller:    seller,
			EndTime:   time.UnixMilli(endMs).UTC(),
		}, nil

	case "OfferPlaced":
		tradeID, ok := fields.str("trade_id", "tradeId")
		if !ok {
			return nil, fmt.Errorf("sui: OfferPlaced missing trade id")
		}
		index, ok := fields.u64("offer_index", "offerIndex")
		if !ok {
			return nil, fmt.Errorf("sui: OfferPlaced missing offer index")
		}
		buyer, _ := fields.str("buyer")
		if buyer == "" {
			buyer = raw.Sender
		}
		return domain.OfferPlaced{
			EventMeta:  meta(raw, tradeID, ts),
			OfferIndex: index,
			Buyer:      buyer,
		}, nil

	case "OfferAccepted":
		tradeID, ok := fields.str("trade_id", "tradeId")
		if !ok {
			return nil, fmt.Errorf("sui: OfferAccepted missing trade id")
		}
		index, ok := fields.u64("offer_index", "offerIndex")
		if !ok {
			return nil, fmt.Errorf("sui: OfferAccepted missing offer index")
		}
		return domain.OfferAccepted{
			EventMeta:  meta(raw, tradeID, ts),
			OfferIndex: index,
		}, nil

	case "TradeCancelled", "TradeCanceled":
		tradeID, ok := fields.str("trade_id", "tradeId")
		if !ok {
			return nil, fmt.Errorf("sui: %s missing trade id", kind)
		}
		return domain.TradeCancelled{
			EventMeta: meta(raw, tradeID, ts),
		}, nil

	case "OfferWithdrawn":
		tradeID, ok := fields.str("trade_id", "tradeId")
		if !ok {
			return nil, fmt.Errorf("sui: OfferWithdrawn missing trade id")
		}
		index, ok := fields.u64("offer_index", "offerIndex")
		if !ok {
			return nil, fmt.Errorf("sui: OfferWithdrawn missing offer index")
		}
		return domain.OfferWithdrawn{
			EventMeta:  meta(raw, tradeID, ts),
			OfferIndex: index,
		}, nil

	default:
		return nil, fmt.Errorf("sui: unknown event type %q", raw.Type)
	}
}

// meta builds the common event envelope. Every event keyed by the same
// transaction uses the digest plus event sequence as its replay key; if a
// relay stripped the digest, a blake2b hash of the raw payload stands in so
// the journal still has a stable key.
func meta(raw RawEvent, entityID string, ts time.Time) domain.EventMeta {
	digest := raw.ID.TxDigest
	if digest == "" {
		sum := blake2b.Sum256(append([]byte(raw.Type), raw.ParsedJSON...))
		digest = "synthetic:" + hex.EncodeToString(sum[:8])
	}
	return domain.EventMeta{
		EntityID:  entityID,
		TxDigest:  digest + ":" + raw.ID.EventSeq,
		Timestamp: ts,
	}
}

// eventFields is a tolerant view over a parsedJson payload. Sui serializes
// u64 as JSON strings, but older relays emitted bare numbers; u64 accepts
// both.
type eventFields map[string]json.RawMessage

// str returns the first present key decoded as a string.
func (f eventFields) str(keys ...string) (string, bool) {
	for _, k := range keys {
		raw, ok := f[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
	}
	return "", false
}

// u64 returns the first present key decoded as an integer, accepting both
// string-encoded and numeric JSON values.
func (f eventFields) u64(keys ...string) (int64, bool) {
	for _, k := range keys {
		raw, ok := f[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n, true
			}
			continue
		}
		var n int64
		if err := json.Unmarshal(raw, &n); err == nil {
			return n, true
		}
	}
	return 0, false
}
