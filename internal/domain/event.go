package domain

import "time"

// EventKind identifies one variant of the Event union.
type EventKind string

const (
	EventBidPlaced      EventKind = "bid_placed"
	EventAuctionEnded   EventKind = "auction_ended"
	EventTradeCreated   EventKind = "trade_created"
	EventOfferPlaced    EventKind = "offer_placed"
	EventOfferAccepted  EventKind = "offer_accepted"
	EventTradeCancelled EventKind = "trade_cancelled"
	EventOfferWithdrawn EventKind = "offer_withdrawn"
)

// Event is the closed union of ledger events this system consumes. Each
// variant carries the entity it belongs to, the ledger timestamp, and the
// transaction digest used for idempotent replay detection. The apply step
// switches exhaustively over the variants; adding a kind is a compile-time
// checked change.
type Event interface {
	Kind() EventKind
	Entity() string
	Tx() string
	At() time.Time

	sealed()
}

// EventMeta is the common envelope embedded by every event variant.
type EventMeta struct {
	EntityID  string    `json:"entity_id"`
	TxDigest  string    `json:"tx_digest"`
	Timestamp time.Time `json:"timestamp"`
}

func (m EventMeta) Entity() string { return m.EntityID }
func (m EventMeta) Tx() string     { return m.TxDigest }
func (m EventMeta) At() time.Time  { return m.Timestamp }
func (m EventMeta) sealed()        {}

// BidPlaced reports a bid applied on chain. TotalPosition is the bidder's
// cumulative locked amount after the bid; Amount is the increment this
// transaction added.
type BidPlaced struct {
	EventMeta
	Bidder        string `json:"bidder"`
	Amount        int64  `json:"amount"`
	TotalPosition int64  `json:"total_position"`
}

func (BidPlaced) Kind() EventKind { return EventBidPlaced }

// AuctionEnded reports that the seller settled the auction.
type AuctionEnded struct {
	EventMeta
	EndedBy string `json:"ended_by"`
}

func (AuctionEnded) Kind() EventKind { return EventAuctionEnded }

// TradeCreated reports a new trade listing.
type TradeCreated struct {
	EventMeta
	Seller  string    `json:"seller"`
	EndTime time.Time `json:"end_time"`
}

func (TradeCreated) Kind() EventKind { return EventTradeCreated }

// OfferPlaced reports a new offer on a trade at the given index.
type OfferPlaced struct {
	EventMeta
	OfferIndex int64  `json:"offer_index"`
	Buyer      string `json:"buyer"`
}

func (OfferPlaced) Kind() EventKind { return EventOfferPlaced }

// OfferAccepted reports that the seller accepted an offer, resolving the
// trade. Acceptance is mutually exclusive across offers.
type OfferAccepted struct {
	EventMeta
	OfferIndex int64 `json:"offer_index"`
}

func (OfferAccepted) Kind() EventKind { return EventOfferAccepted }

// TradeCancelled reports that the seller cancelled the trade.
type TradeCancelled struct {
	EventMeta
}

func (TradeCancelled) Kind() EventKind { return EventTradeCancelled }

// OfferWithdrawn reports that a buyer withdrew an offer. The index stays
// allocated.
type OfferWithdrawn struct {
	EventMeta
	OfferIndex int64 `json:"offer_index"`
}

func (OfferWithdrawn) Kind() EventKind { return EventOfferWithdrawn }

// Delta is the incremental update published on the bus after an event is
// applied, and forwarded verbatim to websocket subscribers of the entity's
// room. Fields holds only the projection fields the event changed.
type Delta struct {
	Type      string         `json:"type"`
	EntityID  string         `json:"entity_id"`
	Fields    map[string]any `json:"fields,omitempty"`
	TxDigest  string         `json:"tx_digest,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
