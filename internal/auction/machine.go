// Package auction holds the pure decision logic for English-style cumulative
// auctions: guards for locally proposed actions (place bid, end, claim,
// withdraw) and the event-application step used by the indexer. Functions in
// this package never touch storage; callers load a projection snapshot, call
// a function, and persist whatever comes back.
//
// The smart contract is the source of truth for all fund movement. These
// functions reproduce its decision rules so the client can reject doomed
// transactions before submission and so the indexer can mirror contract state
// from the event stream.
package auction

import (
	"time"

	"github.com/alanyoungcy/suibid/internal/domain"
)

// BidDecision is the allowed outcome of PlaceBid: the updated projection and
// position the caller should expect once the ledger confirms the bid.
type BidDecision struct {
	Auction  domain.AuctionProjection
	Position domain.BidderPosition
	TookLead bool
}

// PlaceBid validates a proposed bid against the contract's rules. Bids are
// cumulative: the bidder's previous locked amount counts toward the new
// total, and the new total must strictly exceed the current highest bid.
// On rejection the returned *domain.Rejection carries the shortfall, i.e.
// how much the proposed total missed the required minimum by.
func PlaceBid(a domain.AuctionProjection, pos domain.BidderPosition, bidder string, amount int64, now time.Time) (BidDecision, error) {
	if amount <= 0 {
		return BidDecision{}, domain.Reject(domain.RejectInvalidAmount)
	}
	if !a.Active {
		return BidDecision{}, domain.Reject(domain.RejectAuctionInactive)
	}
	if a.Ended(now) {
		return BidDecision{}, domain.Reject(domain.RejectAuctionEnded)
	}

	current := pos.CumulativeAmount
	required := requiredMinimum(a)
	newTotal := current + amount
	if newTotal < required {
		return BidDecision{}, &domain.Rejection{
			Reason:    domain.RejectBidTooLow,
			Shortfall: required - newTotal,
			Required:  required,
		}
	}

	next := a
	tookLead := false
	// Strictly exceeding the highest bid takes the lead; an equal total does
	// not, the earliest bidder to reach that amount keeps it.
	if newTotal > a.HighestBid {
		next.HighestBid = newTotal
		next.HighestBidder = bidder
		tookLead = true
	}
	next.UpdatedAt = now

	return BidDecision{
		Auction: next,
		Position: domain.BidderPosition{
			AuctionID:        a.ID,
			Bidder:           bidder,
			CumulativeAmount: newTotal,
			UpdatedAt:        now,
		},
		TookLead: tookLead,
	}, nil
}

// requiredMinimum is the smallest cumulative total a bid must reach. A bid
// must strictly exceed the current highest, so the floor is highestBid+1.
// Before any bid lands, highestBid equals minBid and the same rule applies.
func requiredMinimum(a domain.AuctionProjection) int64 {
	return a.HighestBid + 1
}

// EndAuction validates the seller's settlement call: only the seller, only
// after the end time, only while the auction is still active.
func EndAuction(a domain.AuctionProjection, caller string, now time.Time) (domain.AuctionProjection, error) {
	if !a.Active {
		return domain.AuctionProjection{}, domain.Reject(domain.RejectAuctionInactive)
	}
	if caller != a.Seller {
		return domain.AuctionProjection{}, domain.Reject(domain.RejectNotSeller)
	}
	if !a.Ended(now) {
		return domain.AuctionProjection{}, domain.Reject(domain.RejectAuctionNotEnded)
	}

	next := a
	next.Active = false
	next.UpdatedAt = now
	return next, nil
}

// Claim validates an item claim on a settled auction. The winner claims the
// item; when no bid was ever placed the seller reclaims it. Everyone else is
// rejected. The transfer itself is a ledger effect, so there is no projection
// change to return.
func Claim(a domain.AuctionProjection, caller string) error {
	if a.Active {
		return domain.Reject(domain.RejectAuctionNotEnded)
	}
	if a.HasBids() {
		if caller != a.HighestBidder {
			return domain.Reject(domain.RejectNotWinner)
		}
		return nil
	}
	if caller != a.Seller {
		return domain.Reject(domain.RejectNotSeller)
	}
	return nil
}

// Withdraw validates releasing a losing bidder's locked funds after
// settlement. The highest bidder's locked amount is the sale price and can
// never be withdrawn. The historical cumulative amount is retained; the
// position is only marked withdrawn.
func Withdraw(a domain.AuctionProjection, pos domain.BidderPosition, caller string, now time.Time) (domain.BidderPosition, error) {
	if a.Active {
		return domain.BidderPosition{}, domain.Reject(domain.RejectAuctionNotEnded)
	}
	if caller == a.HighestBidder {
		return domain.BidderPosition{}, domain.Reject(domain.RejectIsHighestBidder)
	}
	if pos.CumulativeAmount <= 0 {
		return domain.BidderPosition{}, domain.Reject(domain.RejectNoPosition)
	}
	if pos.Withdrawn {
		return domain.BidderPosition{}, domain.Reject(domain.RejectAlreadyWithdrawn)
	}

	next := pos
	next.Withdrawn = true
	next.UpdatedAt = now
	return next, nil
}
