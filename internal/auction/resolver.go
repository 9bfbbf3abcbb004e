package auction

import "github.com/alanyoungcy/suibid/internal/domain"

// Resolve computes a viewer's standing in an auction from a projection
// snapshot and the viewer's position. Pure: callers fetch both and render
// the result (the "you are leading / behind by N" indicator).
func Resolve(a domain.AuctionProjection, pos domain.BidderPosition, viewer string) domain.Position {
	if viewer == "" {
		return domain.Position{Standing: domain.StandingNotConnected}
	}
	if pos.CumulativeAmount == 0 {
		return domain.Position{Standing: domain.StandingNoPosition}
	}
	if viewer == a.HighestBidder {
		return domain.Position{Standing: domain.StandingLeading}
	}
	// Non-negative by the monotonicity invariant: highestBid is the maximum
	// cumulative amount across all bidders.
	return domain.Position{
		Standing: domain.StandingBehind,
		Delta:    a.HighestBid - pos.CumulativeAmount,
	}
}
