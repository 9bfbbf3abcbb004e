package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/suibid/internal/domain"
)

func bidEvent(auction, bidder string, total int64, at time.Time) domain.BidPlaced {
	return domain.BidPlaced{
		EventMeta: domain.EventMeta{
			EntityID:  auction,
			TxDigest:  "0xtx",
			Timestamp: at,
		},
		Bidder:        bidder,
		TotalPosition: total,
	}
}

func TestApplyBidPlacedCreatesSkeletonProjection(t *testing.T) {
	ev := bidEvent("0xa1", "0xalice", 150, testNow)

	next, pos, delta, err := ApplyBidPlaced(domain.AuctionProjection{}, domain.BidderPosition{}, ev)
	require.NoError(t, err)

	assert.Equal(t, "0xa1", next.ID)
	assert.True(t, next.Active)
	assert.Equal(t, int64(150), next.HighestBid)
	assert.Equal(t, "0xalice", next.HighestBidder)

	assert.Equal(t, "0xa1", pos.AuctionID)
	assert.Equal(t, int64(150), pos.CumulativeAmount)

	assert.Equal(t, DeltaBidUpdate, delta.Type)
	assert.Equal(t, "0xa1", delta.EntityID)
	assert.Equal(t, int64(150), delta.Fields["total_position"])
}

func TestApplyBidPlacedTieKeepsEarlierLeader(t *testing.T) {
	a := domain.AuctionProjection{
		ID:            "0xa1",
		HighestBid:    150,
		HighestBidder: "0xalice",
		Active:        true,
	}
	ev := bidEvent("0xa1", "0xbob", 150, testNow)

	next, pos, _, err := ApplyBidPlaced(a, domain.BidderPosition{}, ev)
	require.NoError(t, err)

	assert.Equal(t, "0xalice", next.HighestBidder)
	assert.Equal(t, int64(150), next.HighestBid)
	assert.Equal(t, int64(150), pos.CumulativeAmount)
}

func TestApplyBidPlacedHigherTotalTakesLead(t *testing.T) {
	a := domain.AuctionProjection{
		ID:            "0xa1",
		HighestBid:    150,
		HighestBidder: "0xalice",
		Active:        true,
	}
	ev := bidEvent("0xa1", "0xbob", 160, testNow)

	next, _, delta, err := ApplyBidPlaced(a, domain.BidderPosition{}, ev)
	require.NoError(t, err)

	assert.Equal(t, "0xbob", next.HighestBidder)
	assert.Equal(t, int64(160), next.HighestBid)
	assert.Equal(t, "0xbob", delta.Fields["highest_bidder"])
}

func TestApplyBidPlacedRejectsDecreasingTotal(t *testing.T) {
	pos := domain.BidderPosition{
		AuctionID:        "0xa1",
		Bidder:           "0xalice",
		CumulativeAmount: 150,
	}
	ev := bidEvent("0xa1", "0xalice", 140, testNow)

	_, _, _, err := ApplyBidPlaced(domain.AuctionProjection{ID: "0xa1", Active: true}, pos, ev)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestApplyBidPlacedRejectsNegativeTotal(t *testing.T) {
	ev := bidEvent("0xa1", "0xalice", -1, testNow)

	_, _, _, err := ApplyBidPlaced(domain.AuctionProjection{}, domain.BidderPosition{CumulativeAmount: -5}, ev)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestApplyAuctionEnded(t *testing.T) {
	a := domain.AuctionProjection{
		ID:            "0xa1",
		HighestBid:    170,
		HighestBidder: "0xalice",
		Active:        true,
	}
	ev := domain.AuctionEnded{
		EventMeta: domain.EventMeta{EntityID: "0xa1", TxDigest: "0xtx", Timestamp: testNow},
		EndedBy:   "0xseller",
	}

	next, delta, err := ApplyAuctionEnded(a, ev)
	require.NoError(t, err)

	assert.False(t, next.Active)
	assert.Equal(t, DeltaAuctionSettled, delta.Type)
	assert.Equal(t, int64(170), delta.Fields["final_price"])
	assert.Equal(t, "0xalice", delta.Fields["winner"])
	assert.Equal(t, "0xseller", delta.Fields["settled_by"])
}

func TestApplyAuctionEndedIsTerminal(t *testing.T) {
	a := domain.AuctionProjection{ID: "0xa1", Active: false}
	ev := domain.AuctionEnded{
		EventMeta: domain.EventMeta{EntityID: "0xa1", Timestamp: testNow},
		EndedBy:   "0xseller",
	}

	_, _, err := ApplyAuctionEnded(a, ev)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}
