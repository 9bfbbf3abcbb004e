package trade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/suibid/internal/domain"
)

func meta(entity string, at time.Time) domain.EventMeta {
	return domain.EventMeta{EntityID: entity, TxDigest: "0xtx", Timestamp: at}
}

func TestApplyEventTradeLifecycle(t *testing.T) {
	var tr domain.TradeProjection

	tr, delta, err := ApplyEvent(tr, domain.TradeCreated{
		EventMeta: meta("0xt1", testNow),
		Seller:    "0xseller",
		EndTime:   testNow.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, DeltaTradeCreated, delta.Type)
	assert.True(t, tr.Active)
	assert.Equal(t, "0xseller", tr.Seller)

	tr, delta, err = ApplyEvent(tr, domain.OfferPlaced{
		EventMeta:  meta("0xt1", testNow),
		OfferIndex: 0,
		Buyer:      "0xalice",
	})
	require.NoError(t, err)
	assert.Equal(t, DeltaOfferPlaced, delta.Type)
	assert.Equal(t, int64(1), tr.OfferCount)

	tr, delta, err = ApplyEvent(tr, domain.OfferAccepted{
		EventMeta:  meta("0xt1", testNow),
		OfferIndex: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, DeltaOfferAccepted, delta.Type)
	assert.False(t, tr.Active)
	assert.True(t, tr.OfferAt(0).Accepted)
}

func TestApplyEventOutOfOrderOfferIndex(t *testing.T) {
	tr := Create("0xt1", "0xseller", testNow.Add(time.Hour), nil, testNow)

	_, _, err := ApplyEvent(tr, domain.OfferPlaced{
		EventMeta:  meta("0xt1", testNow),
		OfferIndex: 3,
		Buyer:      "0xalice",
	})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestApplyEventOnResolvedTrade(t *testing.T) {
	tr := Create("0xt1", "0xseller", testNow.Add(time.Hour), nil, testNow)
	tr.Active = false

	_, _, err := ApplyEvent(tr, domain.OfferPlaced{
		EventMeta:  meta("0xt1", testNow),
		OfferIndex: 0,
		Buyer:      "0xalice",
	})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	_, _, err = ApplyEvent(tr, domain.TradeCancelled{EventMeta: meta("0xt1", testNow)})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestApplyEventDuplicateCreation(t *testing.T) {
	tr := Create("0xt1", "0xseller", testNow.Add(time.Hour), nil, testNow)
	tr, _, err := ApplyEvent(tr, domain.OfferPlaced{
		EventMeta:  meta("0xt1", testNow),
		OfferIndex: 0,
		Buyer:      "0xalice",
	})
	require.NoError(t, err)

	// A second creation event for a trade that already collected offers would
	// reset the index allocator.
	_, _, err = ApplyEvent(tr, domain.TradeCreated{
		EventMeta: meta("0xt1", testNow),
		Seller:    "0xseller",
	})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}

func TestApplyEventSkeletonOnUnknownTrade(t *testing.T) {
	// Offer event arriving before the creation event was observed creates a
	// skeleton entry to be hydrated out of band.
	tr, _, err := ApplyEvent(domain.TradeProjection{}, domain.OfferPlaced{
		EventMeta:  meta("0xt1", testNow),
		OfferIndex: 0,
		Buyer:      "0xalice",
	})
	require.NoError(t, err)
	assert.Equal(t, "0xt1", tr.ID)
	assert.True(t, tr.Active)
	assert.Equal(t, int64(1), tr.OfferCount)
}

func TestApplyEventOfferWithdrawn(t *testing.T) {
	tr := Create("0xt1", "0xseller", testNow.Add(time.Hour), nil, testNow)
	tr, _, err := ApplyEvent(tr, domain.OfferPlaced{
		EventMeta:  meta("0xt1", testNow),
		OfferIndex: 0,
		Buyer:      "0xalice",
	})
	require.NoError(t, err)

	tr, delta, err := ApplyEvent(tr, domain.OfferWithdrawn{
		EventMeta:  meta("0xt1", testNow),
		OfferIndex: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, DeltaOfferWithdrawn, delta.Type)
	assert.True(t, tr.OfferAt(0).Withdrawn)

	_, _, err = ApplyEvent(tr, domain.OfferWithdrawn{
		EventMeta:  meta("0xt1", testNow),
		OfferIndex: 0,
	})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)
}
