package domain

import "time"

// AuctionProjection is the locally cached view of an on-chain auction object.
// It is derived from ledger events by the indexer and never written by any
// other component. Amounts are in MIST, the smallest indivisible unit.
type AuctionProjection struct {
	ID            string    `json:"id"`
	ItemRef       string    `json:"item_ref"`
	Seller        string    `json:"seller"`
	MinBid        int64     `json:"min_bid"`
	HighestBid    int64     `json:"highest_bid"`
	HighestBidder string    `json:"highest_bidder,omitempty"`
	EndTime       time.Time `json:"end_time"`
	Active        bool      `json:"active"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasBids reports whether at least one bid has ever been applied.
// HighestBidder is set iff a bid was placed; MinBid alone never sets it.
func (a AuctionProjection) HasBids() bool {
	return a.HighestBidder != ""
}

// Ended reports whether the auction's end time has passed at the given
// instant. An auction that has ended may still be Active until the seller
// settles it on chain.
func (a AuctionProjection) Ended(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// BidderPosition is a bidder's cumulative locked amount in one auction.
// CumulativeAmount is monotonically non-decreasing across applied events;
// Withdrawn marks the position as released after the auction resolved, the
// historical amount is retained.
type BidderPosition struct {
	AuctionID        string    `json:"auction_id"`
	Bidder           string    `json:"bidder"`
	CumulativeAmount int64     `json:"cumulative_amount"`
	Withdrawn        bool      `json:"withdrawn"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Standing is a viewer's relative position in an auction, computed by the
// position resolver from a projection snapshot.
type Standing int

const (
	// StandingNotConnected means no viewer identity was supplied.
	StandingNotConnected Standing = iota
	// StandingNoPosition means the viewer has no locked amount in the auction.
	StandingNoPosition
	// StandingLeading means the viewer is the current highest bidder.
	StandingLeading
	// StandingBehind means the viewer holds a position below the highest bid.
	StandingBehind
)

// String returns the wire representation used in API responses.
func (s Standing) String() string {
	switch s {
	case StandingNotConnected:
		return "not_connected"
	case StandingNoPosition:
		return "no_position"
	case StandingLeading:
		return "leading"
	case StandingBehind:
		return "behind"
	default:
		return "unknown"
	}
}

// Position pairs a Standing with the shortfall to the lead. Delta is only
// meaningful for StandingBehind and is always non-negative.
type Position struct {
	Standing Standing `json:"standing"`
	Delta    int64    `json:"delta,omitempty"`
}
