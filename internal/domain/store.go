package domain

import (
	"context"
	"time"
)

// ProjectionStore owns every projection and bidder position. The indexer is
// the sole writer; all other components only read and must tolerate seeing
// either the pre- or post-event snapshot, never a partially applied one.
type ProjectionStore interface {
	GetAuction(ctx context.Context, id string) (AuctionProjection, error)
	PutAuction(ctx context.Context, a AuctionProjection) error

	GetTrade(ctx context.Context, id string) (TradeProjection, error)
	PutTrade(ctx context.Context, t TradeProjection) error

	GetPosition(ctx context.Context, auctionID, bidder string) (BidderPosition, error)
	PutPosition(ctx context.Context, p BidderPosition) error
	ListPositions(ctx context.Context, auctionID string) ([]BidderPosition, error)
}

// CursorStore persists the last successfully processed event-stream position
// per watched source, so a restarted indexer resumes instead of re-reading
// from genesis. Get returns an empty cursor (not ErrNotFound) for an unknown
// source.
type CursorStore interface {
	Get(ctx context.Context, source string) (string, error)
	Set(ctx context.Context, source, cursor string) error
}

// AppliedEvent is one journal row: an event the indexer has applied, keyed
// for replay detection.
type AppliedEvent struct {
	TxDigest  string
	Kind      EventKind
	EntityID  string
	Payload   []byte
	Timestamp time.Time
	AppliedAt time.Time
}

// EventJournal records applied events durably, keyed by (tx, kind, entity)
// for replay detection. The journal row is the commit marker of the apply
// step: callers check Applied before applying and call MarkApplied only after
// the apply succeeded, so a transient failure leaves the event un-journaled
// and a page replay picks it up again.
type EventJournal interface {
	Applied(ctx context.Context, txDigest string, kind EventKind, entityID string) (bool, error)
	MarkApplied(ctx context.Context, ev AppliedEvent) (bool, error)
	ListRange(ctx context.Context, from, to time.Time, limit int) ([]AppliedEvent, error)
}

// UpdateBus decouples the indexer (sole producer) from the realtime gateway
// (sole consumer). Delivery is best effort: ordered within one entity's
// channel, unordered across entities.
type UpdateBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// EntityRegistry is the plain add/remove/list membership store for known
// auction and trade identifiers.
type EntityRegistry interface {
	Add(ctx context.Context, set, id string) error
	Remove(ctx context.Context, set, id string) error
	List(ctx context.Context, set string) ([]string, error)
}

// LockManager provides distributed locking. The indexer holds a lock for its
// source so the single-writer model survives accidental double deployment.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateLimiter applies a sliding request budget per key. Allow reports
// whether the caller identified by key may proceed given the limit per
// window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LeaderboardEntry is one row of the points leaderboard.
type LeaderboardEntry struct {
	Address    string `json:"address"`
	Points     int64  `json:"points"`
	ItemsCount int64  `json:"items_count"`
	TotalValue int64  `json:"total_value"`
}

// Leaderboard tracks per-address points and item stats.
type Leaderboard interface {
	AwardPoints(ctx context.Context, address string, points int64) (int64, error)
	IncrementItems(ctx context.Context, address string, valueToAdd int64) error
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	Stats(ctx context.Context, address string) (LeaderboardEntry, error)
}
