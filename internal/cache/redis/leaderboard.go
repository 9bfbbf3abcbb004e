package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/suibid/internal/domain"
)

const (
	leaderboardKey  = "suibid:leaderboard"
	userStatsPrefix = "suibid:user:"
)

// Leaderboard implements domain.Leaderboard with a sorted set of points per
// address plus a per-address stats hash (items_count, total_value).
type Leaderboard struct {
	rdb *redis.Client
}

// NewLeaderboard creates a Leaderboard backed by the given Client.
func NewLeaderboard(c *Client) *Leaderboard {
	return &Leaderboard{rdb: c.Underlying()}
}

func userStatsKey(address string) string { return userStatsPrefix + address }

// AwardPoints adds points to an address and returns its new total.
func (l *Leaderboard) AwardPoints(ctx context.Context, address string, points int64) (int64, error) {
	score, err := l.rdb.ZIncrBy(ctx, leaderboardKey, float64(points), address).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: award points to %s: %w", address, err)
	}
	return int64(score), nil
}

// IncrementItems bumps an address's item count by one and its total value by
// valueToAdd.
func (l *Leaderboard) IncrementItems(ctx context.Context, address string, valueToAdd int64) error {
	key := userStatsKey(address)
	pipe := l.rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, "items_count", 1)
	pipe.HIncrBy(ctx, key, "total_value", valueToAdd)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: increment items for %s: %w", address, err)
	}
	return nil
}

// Top returns the highest-scoring addresses with their stats, best first.
func (l *Leaderboard) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	scored, err := l.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: leaderboard top: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(scored))
	for _, z := range scored {
		address, ok := z.Member.(string)
		if !ok {
			continue
		}
		entry, err := l.statsFor(ctx, address, int64(z.Score))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Stats returns one address's points and item stats. Returns
// domain.ErrNotFound for an address that never scored.
func (l *Leaderboard) Stats(ctx context.Context, address string) (domain.LeaderboardEntry, error) {
	score, err := l.rdb.ZScore(ctx, leaderboardKey, address).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.LeaderboardEntry{}, domain.ErrNotFound
		}
		return domain.LeaderboardEntry{}, fmt.Errorf("redis: leaderboard score %s: %w", address, err)
	}
	return l.statsFor(ctx, address, int64(score))
}

func (l *Leaderboard) statsFor(ctx context.Context, address string, points int64) (domain.LeaderboardEntry, error) {
	stats, err := l.rdb.HGetAll(ctx, userStatsKey(address)).Result()
	if err != nil {
		return domain.LeaderboardEntry{}, fmt.Errorf("redis: user stats %s: %w", address, err)
	}

	entry := domain.LeaderboardEntry{
		Address: address,
		Points:  points,
	}
	if v, ok := stats["items_count"]; ok {
		entry.ItemsCount = parseInt(v)
	}
	if v, ok := stats["total_value"]; ok {
		entry.TotalValue = parseInt(v)
	}
	return entry, nil
}

func parseInt(s string) int64 {
	var n int64
	_, _ = fmt.Sscanf(s, "%d", &n)
	return n
}

// Compile-time interface check.
var _ domain.Leaderboard = (*Leaderboard)(nil)
