package auction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/suibid/internal/domain"
)

func TestResolve(t *testing.T) {
	a := domain.AuctionProjection{
		ID:            "0xa1",
		HighestBid:    170,
		HighestBidder: "0xalice",
		Active:        true,
	}

	t.Run("no viewer", func(t *testing.T) {
		got := Resolve(a, domain.BidderPosition{}, "")
		assert.Equal(t, domain.StandingNotConnected, got.Standing)
	})

	t.Run("viewer without position", func(t *testing.T) {
		got := Resolve(a, domain.BidderPosition{}, "0xcarol")
		assert.Equal(t, domain.StandingNoPosition, got.Standing)
	})

	t.Run("highest bidder leads", func(t *testing.T) {
		pos := domain.BidderPosition{Bidder: "0xalice", CumulativeAmount: 170}
		got := Resolve(a, pos, "0xalice")
		assert.Equal(t, domain.StandingLeading, got.Standing)
		assert.Zero(t, got.Delta)
	})

	t.Run("behind with delta to the lead", func(t *testing.T) {
		pos := domain.BidderPosition{Bidder: "0xbob", CumulativeAmount: 160}
		got := Resolve(a, pos, "0xbob")
		assert.Equal(t, domain.StandingBehind, got.Standing)
		assert.Equal(t, int64(10), got.Delta)
	})
}

func TestStandingString(t *testing.T) {
	assert.Equal(t, "not_connected", domain.StandingNotConnected.String())
	assert.Equal(t, "no_position", domain.StandingNoPosition.String())
	assert.Equal(t, "leading", domain.StandingLeading.String())
	assert.Equal(t, "behind", domain.StandingBehind.String())
}
