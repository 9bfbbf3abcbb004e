package sui

import "fmt"

// ClockObjectID is the shared sui::clock::Clock object every time-gated
// entry function takes.
const ClockObjectID = "0x6"

// CallArg is one argument of a Move call: either a shared/owned object
// reference or a pure u64. Exactly one field is set.
type CallArg struct {
	Object  string `json:"object,omitempty"`
	PureU64 *int64 `json:"pure_u64,omitempty"`
	// Coin marks an argument that the signer must satisfy by splitting a gas
	// coin of the given amount before the call.
	Coin *int64 `json:"coin,omitempty"`
}

// MoveCall is an unsigned transaction intent: everything an external signer
// needs to build, sign, and submit the call. This subsystem only decides
// whether the call should be attempted; it never signs or submits.
type MoveCall struct {
	Target   string    `json:"target"`
	TypeArgs []string  `json:"type_args,omitempty"`
	Args     []CallArg `json:"args"`
}

func objArg(id string) CallArg { return CallArg{Object: id} }

func u64Arg(n int64) CallArg {
	return CallArg{PureU64: &n}
}

func coinArg(amount int64) CallArg {
	return CallArg{Coin: &amount}
}

// TxBuilder builds Move-call intents against the deployed marketplace
// package.
type TxBuilder struct {
	packageID string
}

// NewTxBuilder creates a TxBuilder for the given package.
func NewTxBuilder(packageID string) *TxBuilder {
	return &TxBuilder{packageID: packageID}
}

func (b *TxBuilder) target(module, fn string) string {
	return fmt.Sprintf("%s::%s::%s", b.packageID, module, fn)
}

// CreateAuction lists an item for auction.
func (b *TxBuilder) CreateAuction(itemID, itemType string, minBid int64, durationMs int64) MoveCall {
	return MoveCall{
		Target:   b.target(AuctionModule, "create_auction"),
		TypeArgs: []string{itemType},
		Args: []CallArg{
			objArg(itemID),
			u64Arg(minBid),
			u64Arg(durationMs),
			objArg(ClockObjectID),
		},
	}
}

// PlaceBid tops up the caller's cumulative position by amount.
func (b *TxBuilder) PlaceBid(auctionID, itemType string, amount int64) MoveCall {
	return MoveCall{
		Target:   b.target(AuctionModule, "place_bid"),
		TypeArgs: []string{itemType},
		Args: []CallArg{
			objArg(auctionID),
			coinArg(amount),
			objArg(ClockObjectID),
		},
	}
}

// EndAuction settles an auction after its end time.
func (b *TxBuilder) EndAuction(auctionID, itemType string) MoveCall {
	return MoveCall{
		Target:   b.target(AuctionModule, "end_auction"),
		TypeArgs: []string{itemType},
		Args: []CallArg{
			objArg(auctionID),
			objArg(ClockObjectID),
		},
	}
}

// Claim transfers the item to the winner, or back to the seller when no bid
// was placed.
func (b *TxBuilder) Claim(auctionID, itemType string) MoveCall {
	return MoveCall{
		Target:   b.target(AuctionModule, "claim"),
		TypeArgs: []string{itemType},
		Args:     []CallArg{objArg(auctionID)},
	}
}

// Withdraw releases a losing bidder's locked funds.
func (b *TxBuilder) Withdraw(auctionID, itemType string) MoveCall {
	return MoveCall{
		Target:   b.target(AuctionModule, "withdraw"),
		TypeArgs: []string{itemType},
		Args:     []CallArg{objArg(auctionID)},
	}
}

// CreateTrade opens a barter listing.
func (b *TxBuilder) CreateTrade(endTimeMs int64) MoveCall {
	return MoveCall{
		Target: b.target(TradeModule, "create_trade"),
		Args: []CallArg{
			u64Arg(endTimeMs),
			objArg(ClockObjectID),
		},
	}
}

// AddSellerItem attaches one of the seller's items to a trade.
func (b *TxBuilder) AddSellerItem(tradeID, itemID, itemType string) MoveCall {
	return MoveCall{
		Target:   b.target(TradeModule, "add_seller_item"),
		TypeArgs: []string{itemType},
		Args: []CallArg{
			objArg(tradeID),
			objArg(itemID),
		},
	}
}

// PlaceOffer opens a new offer on a trade.
func (b *TxBuilder) PlaceOffer(tradeID string) MoveCall {
	return MoveCall{
		Target: b.target(TradeModule, "place_offer"),
		Args: []CallArg{
			objArg(tradeID),
			objArg(ClockObjectID),
		},
	}
}

// AddBuyerItem attaches one of the buyer's items to their offer.
func (b *TxBuilder) AddBuyerItem(tradeID string, offerIndex int64, itemID, itemType string) MoveCall {
	return MoveCall{
		Target:   b.target(TradeModule, "add_buyer_item"),
		TypeArgs: []string{itemType},
		Args: []CallArg{
			objArg(tradeID),
			u64Arg(offerIndex),
			objArg(itemID),
		},
	}
}

// AcceptOffer resolves the trade by accepting the offer at index.
func (b *TxBuilder) AcceptOffer(tradeID string, offerIndex int64, sellerItemType, buyerItemType string) MoveCall {
	return MoveCall{
		Target:   b.target(TradeModule, "accept_offer"),
		TypeArgs: []string{sellerItemType, buyerItemType},
		Args: []CallArg{
			objArg(tradeID),
			u64Arg(offerIndex),
			objArg(ClockObjectID),
		},
	}
}

// CancelTrade resolves the trade by returning every item.
func (b *TxBuilder) CancelTrade(tradeID, sellerItemType, buyerItemType string) MoveCall {
	return MoveCall{
		Target:   b.target(TradeModule, "cancel_trade"),
		TypeArgs: []string{sellerItemType, buyerItemType},
		Args:     []CallArg{objArg(tradeID)},
	}
}

// WithdrawOffer pulls back the caller's offer while the trade is active.
func (b *TxBuilder) WithdrawOffer(tradeID string, offerIndex int64, itemType string) MoveCall {
	return MoveCall{
		Target:   b.target(TradeModule, "withdraw_offer"),
		TypeArgs: []string{itemType},
		Args: []CallArg{
			objArg(tradeID),
			u64Arg(offerIndex),
		},
	}
}
