package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/suibid/internal/domain"
)

// ProjectionStore implements domain.ProjectionStore using Redis with
// JSON-serialized projections.
//
// Key schema (carried over from the first indexer revision):
//
//	auction:{id}           - JSON AuctionProjection
//	auction:{id}:positions - hash, field bidder -> JSON BidderPosition
//	trade:{id}             - JSON TradeProjection
//
// The indexer is the only writer. Each projection is written with a single
// SET/HSET, so readers always observe a whole pre- or post-event snapshot.
type ProjectionStore struct {
	rdb *redis.Client
}

// NewProjectionStore creates a ProjectionStore backed by the given Client.
func NewProjectionStore(c *Client) *ProjectionStore {
	return &ProjectionStore{rdb: c.Underlying()}
}

func auctionKey(id string) string   { return "auction:" + id }
func positionsKey(id string) string { return "auction:" + id + ":positions" }
func tradeKey(id string) string     { return "trade:" + id }

// GetAuction retrieves an auction projection. Returns domain.ErrNotFound when
// no event has ever been applied for the id.
func (s *ProjectionStore) GetAuction(ctx context.Context, id string) (domain.AuctionProjection, error) {
	data, err := s.rdb.Get(ctx, auctionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.AuctionProjection{}, domain.ErrNotFound
		}
		return domain.AuctionProjection{}, fmt.Errorf("redis: get auction %s: %w", id, err)
	}

	var a domain.AuctionProjection
	if err := json.Unmarshal(data, &a); err != nil {
		return domain.AuctionProjection{}, fmt.Errorf("redis: unmarshal auction %s: %w", id, err)
	}
	return a, nil
}

// PutAuction stores an auction projection snapshot.
func (s *ProjectionStore) PutAuction(ctx context.Context, a domain.AuctionProjection) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("redis: marshal auction %s: %w", a.ID, err)
	}
	if err := s.rdb.Set(ctx, auctionKey(a.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: put auction %s: %w", a.ID, err)
	}
	return nil
}

// GetTrade retrieves a trade projection.
func (s *ProjectionStore) GetTrade(ctx context.Context, id string) (domain.TradeProjection, error) {
	data, err := s.rdb.Get(ctx, tradeKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.TradeProjection{}, domain.ErrNotFound
		}
		return domain.TradeProjection{}, fmt.Errorf("redis: get trade %s: %w", id, err)
	}

	var t domain.TradeProjection
	if err := json.Unmarshal(data, &t); err != nil {
		return domain.TradeProjection{}, fmt.Errorf("redis: unmarshal trade %s: %w", id, err)
	}
	return t, nil
}

// PutTrade stores a trade projection snapshot.
func (s *ProjectionStore) PutTrade(ctx context.Context, t domain.TradeProjection) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("redis: marshal trade %s: %w", t.ID, err)
	}
	if err := s.rdb.Set(ctx, tradeKey(t.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: put trade %s: %w", t.ID, err)
	}
	return nil
}

// GetPosition retrieves one bidder's position in an auction. Returns
// domain.ErrNotFound when the bidder never bid.
func (s *ProjectionStore) GetPosition(ctx context.Context, auctionID, bidder string) (domain.BidderPosition, error) {
	data, err := s.rdb.HGet(ctx, positionsKey(auctionID), bidder).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.BidderPosition{}, domain.ErrNotFound
		}
		return domain.BidderPosition{}, fmt.Errorf("redis: get position %s/%s: %w", auctionID, bidder, err)
	}

	var p domain.BidderPosition
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.BidderPosition{}, fmt.Errorf("redis: unmarshal position %s/%s: %w", auctionID, bidder, err)
	}
	return p, nil
}

// PutPosition stores a bidder position snapshot.
func (s *ProjectionStore) PutPosition(ctx context.Context, p domain.BidderPosition) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal position %s/%s: %w", p.AuctionID, p.Bidder, err)
	}
	if err := s.rdb.HSet(ctx, positionsKey(p.AuctionID), p.Bidder, data).Err(); err != nil {
		return fmt.Errorf("redis: put position %s/%s: %w", p.AuctionID, p.Bidder, err)
	}
	return nil
}

// ListPositions returns every bidder position recorded for an auction.
func (s *ProjectionStore) ListPositions(ctx context.Context, auctionID string) ([]domain.BidderPosition, error) {
	raw, err := s.rdb.HGetAll(ctx, positionsKey(auctionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list positions %s: %w", auctionID, err)
	}

	positions := make([]domain.BidderPosition, 0, len(raw))
	for bidder, data := range raw {
		var p domain.BidderPosition
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("redis: unmarshal position %s/%s: %w", auctionID, bidder, err)
		}
		positions = append(positions, p)
	}
	return positions, nil
}

// Compile-time interface check.
var _ domain.ProjectionStore = (*ProjectionStore)(nil)
