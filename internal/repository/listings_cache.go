package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"marketplace/internal/domain/listings"
)

type listingGetter interface {
	GetListing(ctx context.Context, id uuid.UUID) (listings.Listing, error)
}

// CachedListings serves catalog reads from Redis, falling back to the database.
// Booking transactions read the database directly.
type CachedListings struct {
	next listingGetter
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedListings(next listingGetter, rdb *redis.Client, ttl time.Duration) *CachedListings {
	return &CachedListings{next: next, rdb: rdb, ttl: ttl}
}

func listingCacheKey(id uuid.UUID) string {
	return "listing:" + id.String()
}

func (c *CachedListings) GetListing(ctx context.Context, id uuid.UUID) (listings.Listing, error) {
	logger := log.FromContext(ctx).WithField("listing_id", id)

	cached, err := c.rdb.Get(ctx, listingCacheKey(id)).Bytes()
	switch {
	case err == nil:
		var l listings.Listing
		if err := json.Unmarshal(cached, &l); err == nil {
			return l, nil
		}
		logger.Warn("dropping undecodable cached listing")
	case !errors.Is(err, redis.Nil):
		logger.WithError(err).Warn("listing cache unavailable")
	}

	l, err := c.next.GetListing(ctx, id)
	if err != nil {
		return listings.Listing{}, err
	}

	payload, err := json.Marshal(l)
	if err == nil {
		if err := c.rdb.Set(ctx, listingCacheKey(id), payload, c.ttl).Err(); err != nil {
			logger.WithError(err).Warn("failed to cache listing")
		}
	}

	return l, nil
}
