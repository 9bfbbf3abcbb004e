package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrContextDone   = errors.New("context cancelled")
	ErrLockHeld      = errors.New("lock already held")

	// ErrInvariantViolation marks an applied event that would break a
	// projection invariant (for example a decreasing cumulative bid). The
	// indexer treats it like a decode failure: drop the event, keep going.
	ErrInvariantViolation = errors.New("projection invariant violation")
)

// RejectReason classifies why a proposed local action was refused by a state
// machine guard.
type RejectReason string

const (
	RejectAuctionInactive  RejectReason = "auction_inactive"
	RejectAuctionEnded     RejectReason = "auction_ended"
	RejectAuctionNotEnded  RejectReason = "auction_not_ended"
	RejectBidTooLow        RejectReason = "bid_too_low"
	RejectNotSeller        RejectReason = "not_seller"
	RejectNotWinner        RejectReason = "not_winner"
	RejectIsHighestBidder  RejectReason = "is_highest_bidder"
	RejectNoPosition       RejectReason = "no_position"
	RejectTradeResolved    RejectReason = "trade_resolved"
	RejectSelfOffer        RejectReason = "self_offer"
	RejectOfferNotFound    RejectReason = "offer_not_found"
	RejectOfferWithdrawn   RejectReason = "offer_withdrawn"
	RejectNotOfferOwner    RejectReason = "not_offer_owner"
	RejectInvalidAmount    RejectReason = "invalid_amount"
	RejectAlreadyWithdrawn RejectReason = "already_withdrawn"
)

// Rejection is the typed, never-fatal outcome of a failed state-machine
// guard. It carries enough detail for the caller to fix the input without
// submitting a doomed ledger transaction: for RejectBidTooLow, Shortfall is
// how much the proposed bid missed the required minimum by and Required is
// the minimum cumulative total that would take the lead.
type Rejection struct {
	Reason    RejectReason
	Shortfall int64
	Required  int64
}

// Error implements the error interface.
func (r *Rejection) Error() string {
	if r.Reason == RejectBidTooLow {
		return fmt.Sprintf("action rejected: %s (shortfall %d, required %d)", r.Reason, r.Shortfall, r.Required)
	}
	return fmt.Sprintf("action rejected: %s", r.Reason)
}

// Reject builds a plain Rejection for the given reason.
func Reject(reason RejectReason) *Rejection {
	return &Rejection{Reason: reason}
}

// AsRejection unwraps err into a *Rejection when it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
