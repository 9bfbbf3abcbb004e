package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cacheredis "github.com/alanyoungcy/suibid/internal/cache/redis"
	"github.com/alanyoungcy/suibid/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	auctions map[string]domain.AuctionProjection
	trades   map[string]domain.TradeProjection
	pos      map[string]domain.BidderPosition
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		auctions: map[string]domain.AuctionProjection{},
		trades:   map[string]domain.TradeProjection{},
		pos:      map[string]domain.BidderPosition{},
	}
}

func (s *fakeStore) GetAuction(ctx context.Context, id string) (domain.AuctionProjection, error) {
	a, ok := s.auctions[id]
	if !ok {
		return domain.AuctionProjection{}, domain.ErrNotFound
	}
	return a, nil
}

func (s *fakeStore) PutAuction(ctx context.Context, a domain.AuctionProjection) error {
	s.auctions[a.ID] = a
	return nil
}

func (s *fakeStore) GetTrade(ctx context.Context, id string) (domain.TradeProjection, error) {
	t, ok := s.trades[id]
	if !ok {
		return domain.TradeProjection{}, domain.ErrNotFound
	}
	return t, nil
}

func (s *fakeStore) PutTrade(ctx context.Context, t domain.TradeProjection) error {
	s.trades[t.ID] = t
	return nil
}

func (s *fakeStore) GetPosition(ctx context.Context, auctionID, bidder string) (domain.BidderPosition, error) {
	p, ok := s.pos[auctionID+"/"+bidder]
	if !ok {
		return domain.BidderPosition{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) PutPosition(ctx context.Context, p domain.BidderPosition) error {
	s.pos[p.AuctionID+"/"+p.Bidder] = p
	return nil
}

func (s *fakeStore) ListPositions(ctx context.Context, auctionID string) ([]domain.BidderPosition, error) {
	var out []domain.BidderPosition
	for _, p := range s.pos {
		if p.AuctionID == auctionID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeRegistry struct {
	sets map[string][]string
}

func (r *fakeRegistry) Add(ctx context.Context, set, id string) error {
	r.sets[set] = append(r.sets[set], id)
	return nil
}

func (r *fakeRegistry) Remove(ctx context.Context, set, id string) error { return nil }

func (r *fakeRegistry) List(ctx context.Context, set string) ([]string, error) {
	return r.sets[set], nil
}

func seededAuctionHandler() (*AuctionHandler, *fakeStore) {
	store := newFakeStore()
	registry := &fakeRegistry{sets: map[string][]string{}}

	store.auctions["0xa1"] = domain.AuctionProjection{
		ID:            "0xa1",
		Seller:        "0xseller",
		MinBid:        100,
		HighestBid:    170,
		HighestBidder: "0xalice",
		EndTime:       time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC),
		Active:        true,
	}
	store.pos["0xa1/0xalice"] = domain.BidderPosition{AuctionID: "0xa1", Bidder: "0xalice", CumulativeAmount: 170}
	store.pos["0xa1/0xbob"] = domain.BidderPosition{AuctionID: "0xa1", Bidder: "0xbob", CumulativeAmount: 160}
	registry.sets[cacheredis.AuctionsSet] = []string{"0xa1", "0xghost"}

	return NewAuctionHandler(store, registry, testLogger()), store
}

func getWithID(h http.HandlerFunc, target, id string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if id != "" {
		req.SetPathValue("id", id)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestListAuctionsSkipsUnindexedIDs(t *testing.T) {
	h, _ := seededAuctionHandler()

	rec := getWithID(h.ListAuctions, "/api/auctions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Auctions []domain.AuctionProjection `json:"auctions"`
		Total    int                        `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// 0xghost is registered but has no projection yet.
	require.Len(t, resp.Auctions, 1)
	assert.Equal(t, "0xa1", resp.Auctions[0].ID)
	assert.Equal(t, 2, resp.Total)
}

func TestGetAuction(t *testing.T) {
	h, _ := seededAuctionHandler()

	rec := getWithID(h.GetAuction, "/api/auctions/0xa1", "0xa1")
	require.Equal(t, http.StatusOK, rec.Code)

	var a domain.AuctionProjection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, int64(170), a.HighestBid)

	rec = getWithID(h.GetAuction, "/api/auctions/0xmissing", "0xmissing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPositionStandings(t *testing.T) {
	h, _ := seededAuctionHandler()

	cases := []struct {
		viewer   string
		standing string
		delta    int64
	}{
		{"", "not_connected", 0},
		{"0xcarol", "no_position", 0},
		{"0xalice", "leading", 0},
		{"0xbob", "behind", 10},
	}
	for _, tc := range cases {
		rec := getWithID(h.GetPosition, "/api/auctions/0xa1/position?viewer="+tc.viewer, "0xa1")
		require.Equal(t, http.StatusOK, rec.Code, tc.viewer)

		var resp struct {
			Standing string `json:"standing"`
			Delta    int64  `json:"delta"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, tc.standing, resp.Standing, tc.viewer)
		assert.Equal(t, tc.delta, resp.Delta, tc.viewer)
	}
}

func TestListPositions(t *testing.T) {
	h, _ := seededAuctionHandler()

	rec := getWithID(h.ListPositions, "/api/auctions/0xa1/positions", "0xa1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Positions []domain.BidderPosition `json:"positions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Positions, 2)
}
