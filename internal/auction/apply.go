package auction

import (
	"github.com/alanyoungcy/suibid/internal/domain"
)

// Delta type tags forwarded to websocket subscribers. BID_UPDATE and
// AUCTION_SETTLED match the payloads the original socket clients consume.
const (
	DeltaBidUpdate      = "BID_UPDATE"
	DeltaAuctionSettled = "AUCTION_SETTLED"
)

// ApplyBidPlaced folds a confirmed BidPlaced event into the projection and
// the bidder's position. Events carry the post-bid cumulative total, which
// must be non-decreasing per (auction, bidder); a decrease means a decoding
// bug or an out-of-order event and is dropped as an invariant violation
// rather than corrupting the projection.
//
// A zero-valued projection is acceptable: the first observed event for an
// auction creates its entry, since the event stream has no creation event
// for auctions. Metadata (seller, minBid, endTime) is hydrated out of band.
func ApplyBidPlaced(a domain.AuctionProjection, pos domain.BidderPosition, ev domain.BidPlaced) (domain.AuctionProjection, domain.BidderPosition, domain.Delta, error) {
	if ev.TotalPosition < pos.CumulativeAmount {
		return a, pos, domain.Delta{}, domain.ErrInvariantViolation
	}
	if ev.TotalPosition < 0 {
		return a, pos, domain.Delta{}, domain.ErrInvariantViolation
	}

	next := a
	if next.ID == "" {
		next.ID = ev.EntityID
		next.Active = true
	}

	nextPos := pos
	nextPos.AuctionID = ev.EntityID
	nextPos.Bidder = ev.Bidder
	nextPos.CumulativeAmount = ev.TotalPosition
	nextPos.UpdatedAt = ev.Timestamp

	// highestBid is non-decreasing; a tie never displaces the earlier leader.
	if ev.TotalPosition > next.HighestBid {
		next.HighestBid = ev.TotalPosition
		next.HighestBidder = ev.Bidder
	}
	next.UpdatedAt = ev.Timestamp

	delta := domain.Delta{
		Type:     DeltaBidUpdate,
		EntityID: ev.EntityID,
		Fields: map[string]any{
			"highest_bid":    next.HighestBid,
			"highest_bidder": next.HighestBidder,
			"bidder":         ev.Bidder,
			"total_position": ev.TotalPosition,
		},
		TxDigest:  ev.TxDigest,
		Timestamp: ev.Timestamp,
	}
	return next, nextPos, delta, nil
}

// ApplyAuctionEnded folds a confirmed settlement event into the projection.
// Active is terminal: once false it never flips back, so a duplicate or
// late-arriving end event on an inactive auction is an invariant violation.
func ApplyAuctionEnded(a domain.AuctionProjection, ev domain.AuctionEnded) (domain.AuctionProjection, domain.Delta, error) {
	if a.ID != "" && !a.Active {
		return a, domain.Delta{}, domain.ErrInvariantViolation
	}

	next := a
	if next.ID == "" {
		next.ID = ev.EntityID
	}
	next.Active = false
	next.UpdatedAt = ev.Timestamp

	delta := domain.Delta{
		Type:     DeltaAuctionSettled,
		EntityID: ev.EntityID,
		Fields: map[string]any{
			"active":      false,
			"final_price": next.HighestBid,
			"winner":      next.HighestBidder,
			"settled_by":  ev.EndedBy,
		},
		TxDigest:  ev.TxDigest,
		Timestamp: ev.Timestamp,
	}
	return next, delta, nil
}
