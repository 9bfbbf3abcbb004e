package domain

import "time"

// TradeProjection is the locally cached view of an on-chain barter trade.
// Offers are indexed by a monotone allocator: OfferCount equals the number of
// offers ever created and withdrawn indexes are never reused.
type TradeProjection struct {
	ID          string    `json:"id"`
	Seller      string    `json:"seller"`
	EndTime     time.Time `json:"end_time"`
	Active      bool      `json:"active"`
	SellerItems []string  `json:"seller_items,omitempty"`
	Offers      []Offer   `json:"offers,omitempty"`
	OfferCount  int64     `json:"offer_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Offer is a buyer's bundle of items placed against a trade. Index is the
// offer's stable identity within its trade.
type Offer struct {
	Index     int64    `json:"index"`
	Buyer     string   `json:"buyer"`
	Items     []string `json:"items,omitempty"`
	Withdrawn bool     `json:"withdrawn"`
	Accepted  bool     `json:"accepted"`
}

// OfferAt returns the offer with the given index, or nil when no such offer
// exists.
func (t *TradeProjection) OfferAt(index int64) *Offer {
	for i := range t.Offers {
		if t.Offers[i].Index == index {
			return &t.Offers[i]
		}
	}
	return nil
}

// OpenOffers returns the offers that are neither withdrawn nor accepted.
func (t *TradeProjection) OpenOffers() []Offer {
	var open []Offer
	for _, o := range t.Offers {
		if !o.Withdrawn && !o.Accepted {
			open = append(open, o)
		}
	}
	return open
}
