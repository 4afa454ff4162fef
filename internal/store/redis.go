package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/atmx/auction-settlement/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for auction and item reads. Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back to the
// primary. Reads inside a transaction always hit the primary.
type CachedStore struct {
	Store
	rdb *redis.Client
	ttl time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: primary, rdb: rdb, ttl: ttl}
}

// InTx runs fn on the primary and, once the transaction has committed,
// drops every cache key its writes touched.
func (s *CachedStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	var touched []string
	err := s.Store.InTx(ctx, func(q Queries) error {
		tq := &invalidatingQueries{Queries: q}
		if err := fn(tq); err != nil {
			return err
		}
		touched = tq.keys
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, touched...)
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetAuction(ctx context.Context, id string) (*model.Auction, error) {
	var a model.Auction
	if s.load(ctx, auctionKey(id), &a) {
		return &a, nil
	}

	got, err := s.Store.GetAuction(ctx, id)
	if err != nil {
		return nil, err
	}
	s.save(ctx, auctionKey(id), got)
	return got, nil
}

func (s *CachedStore) GetItem(ctx context.Context, id string) (*model.AuctionItem, error) {
	var it model.AuctionItem
	if s.load(ctx, itemKey(id), &it) {
		return &it, nil
	}

	got, err := s.Store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	s.save(ctx, itemKey(id), got)
	return got, nil
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) UpdateAuctionStatus(ctx context.Context, id string, status model.AuctionStatus, closedAt *time.Time) error {
	if err := s.Store.UpdateAuctionStatus(ctx, id, status, closedAt); err != nil {
		return err
	}
	s.invalidate(ctx, auctionKey(id))
	return nil
}

func (s *CachedStore) UpdateItemCurrentPrice(ctx context.Context, id string, price decimal.Decimal) error {
	if err := s.Store.UpdateItemCurrentPrice(ctx, id, price); err != nil {
		return err
	}
	s.invalidate(ctx, itemKey(id))
	return nil
}

func (s *CachedStore) MarkItemSold(ctx context.Context, id string, soldPrice decimal.Decimal) error {
	if err := s.Store.MarkItemSold(ctx, id, soldPrice); err != nil {
		return err
	}
	s.invalidate(ctx, itemKey(id))
	return nil
}

func (s *CachedStore) LinkItemsToSettlement(ctx context.Context, settlementID string, itemIDs []string) (int64, error) {
	n, err := s.Store.LinkItemsToSettlement(ctx, settlementID, itemIDs)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, itemKeys(itemIDs)...)
	return n, nil
}

// --- Cache helpers ---

func (s *CachedStore) load(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}

func (s *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		slog.Warn("cache invalidation failed", "keys", keys, "error", err)
	}
}

// invalidatingQueries records the cache keys written inside a transaction.
type invalidatingQueries struct {
	Queries
	keys []string
}

func (q *invalidatingQueries) UpdateAuctionStatus(ctx context.Context, id string, status model.AuctionStatus, closedAt *time.Time) error {
	q.keys = append(q.keys, auctionKey(id))
	return q.Queries.UpdateAuctionStatus(ctx, id, status, closedAt)
}

func (q *invalidatingQueries) UpdateItemCurrentPrice(ctx context.Context, id string, price decimal.Decimal) error {
	q.keys = append(q.keys, itemKey(id))
	return q.Queries.UpdateItemCurrentPrice(ctx, id, price)
}

func (q *invalidatingQueries) MarkItemSold(ctx context.Context, id string, soldPrice decimal.Decimal) error {
	q.keys = append(q.keys, itemKey(id))
	return q.Queries.MarkItemSold(ctx, id, soldPrice)
}

func (q *invalidatingQueries) LinkItemsToSettlement(ctx context.Context, settlementID string, itemIDs []string) (int64, error) {
	q.keys = append(q.keys, itemKeys(itemIDs)...)
	return q.Queries.LinkItemsToSettlement(ctx, settlementID, itemIDs)
}

func auctionKey(id string) string { return fmt.Sprintf("auction:%s", id) }
func itemKey(id string) string    { return fmt.Sprintf("item:%s", id) }

func itemKeys(ids []string) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = itemKey(id)
	}
	return keys
}
