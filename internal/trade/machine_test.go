package trade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/suibid/internal/domain"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func activeTrade() domain.TradeProjection {
	return Create("0xt1", "0xseller", testNow.Add(24*time.Hour), []string{"0xsword"}, testNow)
}

func tradeWithOffers(t *testing.T) domain.TradeProjection {
	t.Helper()
	tr := activeTrade()

	tr, offer, err := PlaceOffer(tr, "0xalice", []string{"0xshield"}, testNow)
	require.NoError(t, err)
	require.Equal(t, int64(0), offer.Index)

	tr, offer, err = PlaceOffer(tr, "0xbob", []string{"0xbow"}, testNow)
	require.NoError(t, err)
	require.Equal(t, int64(1), offer.Index)

	return tr
}

func TestPlaceOfferAllocatesSequentialIndexes(t *testing.T) {
	tr := tradeWithOffers(t)

	assert.Equal(t, int64(2), tr.OfferCount)
	assert.Len(t, tr.Offers, 2)
	assert.Equal(t, "0xalice", tr.OfferAt(0).Buyer)
	assert.Equal(t, "0xbob", tr.OfferAt(1).Buyer)
}

func TestPlaceOfferGuards(t *testing.T) {
	t.Run("seller cannot offer on own trade", func(t *testing.T) {
		_, _, err := PlaceOffer(activeTrade(), "0xseller", nil, testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectSelfOffer, rej.Reason)
	})

	t.Run("resolved trade rejects offers", func(t *testing.T) {
		tr := activeTrade()
		tr.Active = false
		_, _, err := PlaceOffer(tr, "0xalice", nil, testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectTradeResolved, rej.Reason)
	})

	t.Run("expired end time does not block offers", func(t *testing.T) {
		tr := activeTrade()
		tr.EndTime = testNow.Add(-time.Hour)
		_, _, err := PlaceOffer(tr, "0xalice", nil, testNow)
		assert.NoError(t, err)
	})
}

func TestAcceptOfferResolvesTrade(t *testing.T) {
	tr := tradeWithOffers(t)

	next, err := AcceptOffer(tr, "0xseller", 1, testNow)
	require.NoError(t, err)

	assert.False(t, next.Active)
	assert.True(t, next.OfferAt(1).Accepted)
	assert.False(t, next.OfferAt(0).Accepted)

	// Acceptance is terminal: the remaining offer can no longer be withdrawn.
	_, err = WithdrawOffer(next, "0xalice", 0, testNow)
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectTradeResolved, rej.Reason)

	// Nor can another offer be accepted.
	_, err = AcceptOffer(next, "0xseller", 0, testNow)
	rej, ok = domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectTradeResolved, rej.Reason)
}

func TestAcceptOfferGuards(t *testing.T) {
	tr := tradeWithOffers(t)

	t.Run("non-seller rejected", func(t *testing.T) {
		_, err := AcceptOffer(tr, "0xalice", 0, testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectNotSeller, rej.Reason)
	})

	t.Run("unknown index rejected", func(t *testing.T) {
		_, err := AcceptOffer(tr, "0xseller", 7, testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectOfferNotFound, rej.Reason)
	})

	t.Run("withdrawn offer rejected", func(t *testing.T) {
		withdrawn, err := WithdrawOffer(tr, "0xalice", 0, testNow)
		require.NoError(t, err)
		_, err = AcceptOffer(withdrawn, "0xseller", 0, testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectOfferWithdrawn, rej.Reason)
	})
}

func TestCancel(t *testing.T) {
	tr := tradeWithOffers(t)

	next, err := Cancel(tr, "0xseller", testNow)
	require.NoError(t, err)
	assert.False(t, next.Active)

	_, err = Cancel(next, "0xseller", testNow)
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectTradeResolved, rej.Reason)

	_, err = Cancel(tr, "0xalice", testNow)
	rej, ok = domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.RejectNotSeller, rej.Reason)
}

func TestWithdrawOffer(t *testing.T) {
	tr := tradeWithOffers(t)

	next, err := WithdrawOffer(tr, "0xalice", 0, testNow)
	require.NoError(t, err)
	assert.True(t, next.OfferAt(0).Withdrawn)
	// The index stays allocated.
	assert.Equal(t, int64(2), next.OfferCount)
	assert.Len(t, next.OpenOffers(), 1)

	t.Run("only the owner withdraws", func(t *testing.T) {
		_, err := WithdrawOffer(tr, "0xbob", 0, testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectNotOfferOwner, rej.Reason)
	})

	t.Run("double withdraw rejected", func(t *testing.T) {
		_, err := WithdrawOffer(next, "0xalice", 0, testNow)
		rej, ok := domain.AsRejection(err)
		require.True(t, ok)
		assert.Equal(t, domain.RejectOfferWithdrawn, rej.Reason)
	})
}

func TestCloneTradeDoesNotAliasOffers(t *testing.T) {
	tr := tradeWithOffers(t)

	next, err := AcceptOffer(tr, "0xseller", 0, testNow)
	require.NoError(t, err)

	assert.True(t, next.OfferAt(0).Accepted)
	assert.False(t, tr.OfferAt(0).Accepted)
}
