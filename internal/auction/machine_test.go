package auction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/suibid/internal/domain"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func activeAuction() domain.AuctionProjection {
	// Before any bid lands the highest bid equals the minimum bid.
	return domain.AuctionProjection{
		ID:         "0xa1",
		ItemRef:    "0xitem",
		Seller:     "0xseller",
		MinBid:     100,
		HighestBid: 100,
		EndTime:    testNow.Add(time.Hour),
		Active:     true,
	}
}

func TestPlaceBidFirstBidTakesLead(t *testing.T) {
	a := activeAuction()

	dec, err := PlaceBid(a, domain.BidderPosition{}, "0xalice", 150, testNow)
	require.NoError(t, err)

	assert.True(t, dec.TookLead)
	assert.Equal(t, int64(150), dec.Auction.HighestBid)
	assert.Equal(t, "0xalice", dec.Auction.HighestBidder)
	assert.Equal(t, int64(150), dec.Position.CumulativeAmount)
}

func TestPlaceBidBelowRequiredMinimumReportsShortfall(t *testing.T) {
	a := activeAuction()
	a.HighestBid = 150
	a.HighestBidder = "0xalice"

	// Bob has no position; 140 misses the required 151 by 11.
	_, err := PlaceBid(a, domain.BidderPosition{}, "0xbob", 140, testNow)
	require.Error(t, err)

	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectBidTooLow, rej.Reason)
	assert.Equal(t, int64(11), rej.Shortfall)
	assert.Equal(t, int64(151), rej.Required)
}

func TestPlaceBidAboveHighestTakesLead(t *testing.T) {
	a := activeAuction()
	a.HighestBid = 150
	a.HighestBidder = "0xalice"

	dec, err := PlaceBid(a, domain.BidderPosition{}, "0xbob", 160, testNow)
	require.NoError(t, err)

	assert.True(t, dec.TookLead)
	assert.Equal(t, int64(160), dec.Auction.HighestBid)
	assert.Equal(t, "0xbob", dec.Auction.HighestBidder)
}

func TestPlaceBidCumulativeTopUpRegainsLead(t *testing.T) {
	a := activeAuction()
	a.HighestBid = 160
	a.HighestBidder = "0xbob"
	alicePos := domain.BidderPosition{
		AuctionID:        a.ID,
		Bidder:           "0xalice",
		CumulativeAmount: 150,
	}

	// A tops up 20: cumulative 150 -> 170, regaining the lead without a
	// standalone bid exceeding B's raw amount.
	dec, err := PlaceBid(a, alicePos, "0xalice", 20, testNow)
	require.NoError(t, err)

	assert.True(t, dec.TookLead)
	assert.Equal(t, int64(170), dec.Auction.HighestBid)
	assert.Equal(t, "0xalice", dec.Auction.HighestBidder)
	assert.Equal(t, int64(170), dec.Position.CumulativeAmount)
}

func TestPlaceBidMatchingHighestIsRejected(t *testing.T) {
	a := activeAuction()
	a.HighestBid = 150
	a.HighestBidder = "0xalice"
	bobPos := domain.BidderPosition{
		AuctionID:        a.ID,
		Bidder:           "0xbob",
		CumulativeAmount: 100,
	}

	// A total that only matches the current highest never takes the lead;
	// the floor is highest+1.
	_, err := PlaceBid(a, bobPos, "0xbob", 50, testNow)
	require.Error(t, err)

	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectBidTooLow, rej.Reason)
	assert.Equal(t, int64(1), rej.Shortfall)
	assert.Equal(t, int64(151), rej.Required)
}

func TestPlaceBidBelowMinimumOnFreshAuction(t *testing.T) {
	_, err := PlaceBid(activeAuction(), domain.BidderPosition{}, "0xalice", 100, testNow)
	require.Error(t, err)

	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectBidTooLow, rej.Reason)
	assert.Equal(t, int64(1), rej.Shortfall)
	assert.Equal(t, int64(101), rej.Required)
}

func TestPlaceBidGuards(t *testing.T) {
	t.Run("non-positive amount", func(t *testing.T) {
		_, err := PlaceBid(activeAuction(), domain.BidderPosition{}, "0xalice", 0, testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectInvalidAmount, rej.Reason)
	})

	t.Run("inactive auction", func(t *testing.T) {
		a := activeAuction()
		a.Active = false
		_, err := PlaceBid(a, domain.BidderPosition{}, "0xalice", 150, testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectAuctionInactive, rej.Reason)
	})

	t.Run("past end time", func(t *testing.T) {
		a := activeAuction()
		a.EndTime = testNow.Add(-time.Minute)
		_, err := PlaceBid(a, domain.BidderPosition{}, "0xalice", 150, testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectAuctionEnded, rej.Reason)
	})
}

func TestEndAuction(t *testing.T) {
	ended := activeAuction()
	ended.EndTime = testNow.Add(-time.Minute)

	t.Run("seller settles after end time", func(t *testing.T) {
		next, err := EndAuction(ended, "0xseller", testNow)
		require.NoError(t, err)
		assert.False(t, next.Active)
	})

	t.Run("non-seller rejected", func(t *testing.T) {
		_, err := EndAuction(ended, "0xalice", testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectNotSeller, rej.Reason)
	})

	t.Run("before end time rejected", func(t *testing.T) {
		_, err := EndAuction(activeAuction(), "0xseller", testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectAuctionNotEnded, rej.Reason)
	})

	t.Run("already settled rejected", func(t *testing.T) {
		a := ended
		a.Active = false
		_, err := EndAuction(a, "0xseller", testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectAuctionInactive, rej.Reason)
	})
}

func TestClaim(t *testing.T) {
	settled := activeAuction()
	settled.Active = false
	settled.HighestBid = 170
	settled.HighestBidder = "0xalice"

	t.Run("winner claims", func(t *testing.T) {
		require.NoError(t, Claim(settled, "0xalice"))
	})

	t.Run("seller cannot claim when a bid landed", func(t *testing.T) {
		err := Claim(settled, "0xseller")
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectNotWinner, rej.Reason)
	})

	t.Run("seller reclaims without bids", func(t *testing.T) {
		noBids := activeAuction()
		noBids.Active = false
		require.NoError(t, Claim(noBids, "0xseller"))

		err := Claim(noBids, "0xalice")
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectNotSeller, rej.Reason)
	})

	t.Run("active auction rejected", func(t *testing.T) {
		err := Claim(activeAuction(), "0xseller")
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectAuctionNotEnded, rej.Reason)
	})
}

func TestWithdraw(t *testing.T) {
	settled := activeAuction()
	settled.Active = false
	settled.HighestBid = 170
	settled.HighestBidder = "0xalice"

	bobPos := domain.BidderPosition{
		AuctionID:        settled.ID,
		Bidder:           "0xbob",
		CumulativeAmount: 160,
	}

	t.Run("losing bidder withdraws", func(t *testing.T) {
		next, err := Withdraw(settled, bobPos, "0xbob", testNow)
		require.NoError(t, err)
		assert.True(t, next.Withdrawn)
		// Historical amount is retained.
		assert.Equal(t, int64(160), next.CumulativeAmount)
	})

	t.Run("highest bidder cannot withdraw", func(t *testing.T) {
		alicePos := domain.BidderPosition{
			AuctionID:        settled.ID,
			Bidder:           "0xalice",
			CumulativeAmount: 170,
		}
		_, err := Withdraw(settled, alicePos, "0xalice", testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectIsHighestBidder, rej.Reason)
	})

	t.Run("no position rejected", func(t *testing.T) {
		_, err := Withdraw(settled, domain.BidderPosition{}, "0xcarol", testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectNoPosition, rej.Reason)
	})

	t.Run("double withdraw rejected", func(t *testing.T) {
		withdrawn := bobPos
		withdrawn.Withdrawn = true
		_, err := Withdraw(settled, withdrawn, "0xbob", testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectAlreadyWithdrawn, rej.Reason)
	})

	t.Run("active auction rejected", func(t *testing.T) {
		_, err := Withdraw(activeAuction(), bobPos, "0xbob", testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectAuctionNotEnded, rej.Reason)
	})
}
