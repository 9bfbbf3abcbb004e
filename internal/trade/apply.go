package trade

import (
	"github.com/alanyoungcy/suibid/internal/domain"
)

// Delta type tags forwarded to websocket subscribers of a trade's room.
const (
	DeltaTradeCreated   = "TRADE_CREATED"
	DeltaOfferPlaced    = "OFFER_PLACED"
	DeltaOfferAccepted  = "OFFER_ACCEPTED"
	DeltaTradeCancelled = "TRADE_CANCELLED"
	DeltaOfferWithdrawn = "OFFER_WITHDRAWN"
)

// ApplyEvent folds a confirmed trade event into the projection. The switch
// is exhaustive over the trade variants of the event union; auction events
// never reach this function.
//
// A zero-valued projection is acceptable for TradeCreated (first observed
// event creates the entry); any other event on an unknown trade creates a
// skeleton that is hydrated out of band.
func ApplyEvent(t domain.TradeProjection, ev domain.Event) (domain.TradeProjection, domain.Delta, error) {
	switch e := ev.(type) {
	case domain.TradeCreated:
		return applyCreated(t, e)
	case domain.OfferPlaced:
		return applyOfferPlaced(t, e)
	case domain.OfferAccepted:
		return applyOfferAccepted(t, e)
	case domain.TradeCancelled:
		return applyCancelled(t, e)
	case domain.OfferWithdrawn:
		return applyOfferWithdrawn(t, e)
	default:
		return t, domain.Delta{}, domain.ErrInvariantViolation
	}
}

func applyCreated(t domain.TradeProjection, ev domain.TradeCreated) (domain.TradeProjection, domain.Delta, error) {
	// Duplicate creation for an id that already progressed would reset the
	// offer allocator; drop it.
	if t.ID != "" && t.OfferCount > 0 {
		return t, domain.Delta{}, domain.ErrInvariantViolation
	}

	next := Create(ev.EntityID, ev.Seller, ev.EndTime, nil, ev.Timestamp)
	delta := domain.Delta{
		Type:     DeltaTradeCreated,
		EntityID: ev.EntityID,
		Fields: map[string]any{
			"seller":   ev.Seller,
			"end_time": ev.EndTime,
			"active":   true,
		},
		TxDigest:  ev.TxDigest,
		Timestamp: ev.Timestamp,
	}
	return next, delta, nil
}

func applyOfferPlaced(t domain.TradeProjection, ev domain.OfferPlaced) (domain.TradeProjection, domain.Delta, error) {
	if t.ID != "" && !t.Active {
		return t, domain.Delta{}, domain.ErrInvariantViolation
	}
	next := t
	if next.ID == "" {
		next.ID = ev.EntityID
		next.Active = true
	}
	// The contract allocates indexes sequentially; anything else means the
	// stream is out of order.
	if ev.OfferIndex != next.OfferCount {
		return t, domain.Delta{}, domain.ErrInvariantViolation
	}

	next = cloneTrade(next)
	next.Offers = append(next.Offers, domain.Offer{
		Index: ev.OfferIndex,
		Buyer: ev.Buyer,
	})
	next.OfferCount++
	next.UpdatedAt = ev.Timestamp

	delta := domain.Delta{
		Type:     DeltaOfferPlaced,
		EntityID: ev.EntityID,
		Fields: map[string]any{
			"offer_index": ev.OfferIndex,
			"buyer":       ev.Buyer,
			"offer_count": next.OfferCount,
		},
		TxDigest:  ev.TxDigest,
		Timestamp: ev.Timestamp,
	}
	return next, delta, nil
}

func applyOfferAccepted(t domain.TradeProjection, ev domain.OfferAccepted) (domain.TradeProjection, domain.Delta, error) {
	if t.ID != "" && !t.Active {
		return t, domain.Delta{}, domain.ErrInvariantViolation
	}
	next := cloneTrade(t)
	if next.ID == "" {
		next.ID = ev.EntityID
	}
	next.Active = false
	if offer := next.OfferAt(ev.OfferIndex); offer != nil {
		offer.Accepted = true
	}
	next.UpdatedAt = ev.Timestamp

	delta := domain.Delta{
		Type:     DeltaOfferAccepted,
		EntityID: ev.EntityID,
		Fields: map[string]any{
			"offer_index": ev.OfferIndex,
			"active":      false,
		},
		TxDigest:  ev.TxDigest,
		Timestamp: ev.Timestamp,
	}
	return next, delta, nil
}

func applyCancelled(t domain.TradeProjection, ev domain.TradeCancelled) (domain.TradeProjection, domain.Delta, error) {
	if t.ID != "" && !t.Active {
		return t, domain.Delta{}, domain.ErrInvariantViolation
	}
	next := t
	if next.ID == "" {
		next.ID = ev.EntityID
	}
	next.Active = false
	next.UpdatedAt = ev.Timestamp

	delta := domain.Delta{
		Type:     DeltaTradeCancelled,
		EntityID: ev.EntityID,
		Fields: map[string]any{
			"active": false,
		},
		TxDigest:  ev.TxDigest,
		Timestamp: ev.Timestamp,
	}
	return next, delta, nil
}

func applyOfferWithdrawn(t domain.TradeProjection, ev domain.OfferWithdrawn) (domain.TradeProjection, domain.Delta, error) {
	if t.ID != "" && !t.Active {
		return t, domain.Delta{}, domain.ErrInvariantViolation
	}
	next := cloneTrade(t)
	if next.ID == "" {
		next.ID = ev.EntityID
	}
	offer := next.OfferAt(ev.OfferIndex)
	if offer == nil || offer.Withdrawn {
		return t, domain.Delta{}, domain.ErrInvariantViolation
	}
	offer.Withdrawn = true
	next.UpdatedAt = ev.Timestamp

	delta := domain.Delta{
		Type:     DeltaOfferWithdrawn,
		EntityID: ev.EntityID,
		Fields: map[string]any{
			"offer_index": ev.OfferIndex,
		},
		TxDigest:  ev.TxDigest,
		Timestamp: ev.Timestamp,
	}
	return next, delta, nil
}
