package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/suibid/internal/domain"
)

// Well-known registry sets.
const (
	AuctionsSet = "suibid:auctions"
	TradesSet   = "suibid:trades"
)

// Registry implements domain.EntityRegistry as plain Redis sets. It lists
// the auction and trade ids the rest of the system knows about; membership
// carries no further meaning.
type Registry struct {
	rdb *redis.Client
}

// NewRegistry creates a Registry backed by the given Client.
func NewRegistry(c *Client) *Registry {
	return &Registry{rdb: c.Underlying()}
}

// Add inserts an id into a registry set. Idempotent.
func (r *Registry) Add(ctx context.Context, set, id string) error {
	if err := r.rdb.SAdd(ctx, set, id).Err(); err != nil {
		return fmt.Errorf("redis: registry add %s to %s: %w", id, set, err)
	}
	return nil
}

// Remove deletes an id from a registry set. Idempotent.
func (r *Registry) Remove(ctx context.Context, set, id string) error {
	if err := r.rdb.SRem(ctx, set, id).Err(); err != nil {
		return fmt.Errorf("redis: registry remove %s from %s: %w", id, set, err)
	}
	return nil
}

// List returns every id in a registry set, in no particular order.
func (r *Registry) List(ctx context.Context, set string) ([]string, error) {
	ids, err := r.rdb.SMembers(ctx, set).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: registry list %s: %w", set, err)
	}
	return ids, nil
}

// Compile-time interface check.
var _ domain.EntityRegistry = (*Registry)(nil)
