// Package trade holds the pure decision logic for multi-item barter trades:
// guards for locally proposed actions and the event-application step used by
// the indexer. A trade collects offers while active and is resolved exactly
// once, by accepting a single offer or by cancelling; both are terminal.
package trade

import (
	"time"

	"github.com/alanyoungcy/suibid/internal/domain"
)

// Create allocates a new trade projection for a seller listing. The end time
// is advisory: it bounds nothing locally and is displayed to buyers, matching
// the contract, which gates no action on it.
func Create(id, seller string, endTime time.Time, items []string, now time.Time) domain.TradeProjection {
	return domain.TradeProjection{
		ID:          id,
		Seller:      seller,
		EndTime:     endTime,
		Active:      true,
		SellerItems: items,
		OfferCount:  0,
		UpdatedAt:   now,
	}
}

// PlaceOffer validates a buyer's offer and allocates the next offer index.
// The seller cannot offer on their own trade. An expired end time does not
// block new offers.
func PlaceOffer(t domain.TradeProjection, buyer string, items []string, now time.Time) (domain.TradeProjection, domain.Offer, error) {
	if !t.Active {
		return domain.TradeProjection{}, domain.Offer{}, domain.Reject(domain.RejectTradeResolved)
	}
	if buyer == t.Seller {
		return domain.TradeProjection{}, domain.Offer{}, domain.Reject(domain.RejectSelfOffer)
	}

	offer := domain.Offer{
		Index: t.OfferCount,
		Buyer: buyer,
		Items: items,
	}

	next := t
	next.Offers = append(append([]domain.Offer(nil), t.Offers...), offer)
	next.OfferCount++
	next.UpdatedAt = now
	return next, offer, nil
}

// AcceptOffer validates the seller accepting the offer at index. Acceptance
// consumes the whole trade: the trade goes inactive, the accepted offer's
// items and the seller's items exchange hands on the ledger, and every other
// outstanding offer's items return to their buyers. No other offer can ever
// be accepted afterwards.
func AcceptOffer(t domain.TradeProjection, caller string, index int64, now time.Time) (domain.TradeProjection, error) {
	if caller != t.Seller {
		return domain.TradeProjection{}, domain.Reject(domain.RejectNotSeller)
	}
	if !t.Active {
		return domain.TradeProjection{}, domain.Reject(domain.RejectTradeResolved)
	}
	offer := t.OfferAt(index)
	if offer == nil {
		return domain.TradeProjection{}, domain.Reject(domain.RejectOfferNotFound)
	}
	if offer.Withdrawn {
		return domain.TradeProjection{}, domain.Reject(domain.RejectOfferWithdrawn)
	}

	next := cloneTrade(t)
	next.Active = false
	next.OfferAt(index).Accepted = true
	next.UpdatedAt = now
	return next, nil
}

// Cancel validates the seller cancelling an active trade. Terminal: the
// seller's items and every offer's items return to their original owners.
func Cancel(t domain.TradeProjection, caller string, now time.Time) (domain.TradeProjection, error) {
	if caller != t.Seller {
		return domain.TradeProjection{}, domain.Reject(domain.RejectNotSeller)
	}
	if !t.Active {
		return domain.TradeProjection{}, domain.Reject(domain.RejectTradeResolved)
	}

	next := cloneTrade(t)
	next.Active = false
	next.UpdatedAt = now
	return next, nil
}

// WithdrawOffer validates a buyer pulling back the offer at index while the
// trade is still collecting. The index stays allocated; it is never reused.
func WithdrawOffer(t domain.TradeProjection, caller string, index int64, now time.Time) (domain.TradeProjection, error) {
	if !t.Active {
		return domain.TradeProjection{}, domain.Reject(domain.RejectTradeResolved)
	}
	offer := t.OfferAt(index)
	if offer == nil {
		return domain.TradeProjection{}, domain.Reject(domain.RejectOfferNotFound)
	}
	if offer.Buyer != caller {
		return domain.TradeProjection{}, domain.Reject(domain.RejectNotOfferOwner)
	}
	if offer.Withdrawn {
		return domain.TradeProjection{}, domain.Reject(domain.RejectOfferWithdrawn)
	}

	next := cloneTrade(t)
	next.OfferAt(index).Withdrawn = true
	next.UpdatedAt = now
	return next, nil
}

// cloneTrade deep-copies the offers slice so mutations on the returned
// projection never alias the caller's snapshot.
func cloneTrade(t domain.TradeProjection) domain.TradeProjection {
	next := t
	next.Offers = append([]domain.Offer(nil), t.Offers...)
	return next
}
