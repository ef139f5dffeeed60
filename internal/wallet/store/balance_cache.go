package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	id "walletgate/pkg/domain"
	"walletgate/pkg/money"
)

// CachedBalance is a display value only.
type CachedBalance struct {
	Cents money.Cents
	At    time.Time
}

// RedisBalanceCache shares the display balance across instances. Values are
// stored as "<cents>:<unix-nanos>" under a per-wallet key with a TTL.
type RedisBalanceCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisBalanceCache(client redis.UniversalClient, ttl time.Duration) *RedisBalanceCache {
	return &RedisBalanceCache{client: client, ttl: ttl}
}

func balanceKey(walletID id.WalletID) string {
	return "walletgate:balance:" + walletID.String()
}

func (c *RedisBalanceCache) Get(ctx context.Context, walletID id.WalletID) (*CachedBalance, bool, error) {
	raw, err := c.client.Get(ctx, balanceKey(walletID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	cents, at, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, false, nil
	}
	n, err := strconv.ParseInt(cents, 10, 64)
	if err != nil {
		return nil, false, nil
	}
	nanos, err := strconv.ParseInt(at, 10, 64)
	if err != nil {
		return nil, false, nil
	}
	return &CachedBalance{Cents: money.Cents(n), At: time.Unix(0, nanos).UTC()}, true, nil
}

func (c *RedisBalanceCache) Set(ctx context.Context, walletID id.WalletID, b CachedBalance) error {
	v := strconv.FormatInt(int64(b.Cents), 10) + ":" + strconv.FormatInt(b.At.UnixNano(), 10)
	return c.client.Set(ctx, balanceKey(walletID), v, c.ttl).Err()
}

func (c *RedisBalanceCache) Invalidate(ctx context.Context, walletID id.WalletID) error {
	return c.client.Del(ctx, balanceKey(walletID)).Err()
}

// MemoryBalanceCache is the single-instance cache used without Redis.
type MemoryBalanceCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[id.WalletID]cachedEntry
}

type cachedEntry struct {
	balance CachedBalance
	expires time.Time
}

func NewMemoryBalanceCache(ttl time.Duration) *MemoryBalanceCache {
	return &MemoryBalanceCache{ttl: ttl, entries: make(map[id.WalletID]cachedEntry)}
}

func (c *MemoryBalanceCache) Get(_ context.Context, walletID id.WalletID) (*CachedBalance, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[walletID]
	if !ok || time.Now().After(e.expires) {
		return nil, false, nil
	}
	return &e.balance, true, nil
}

func (c *MemoryBalanceCache) Set(_ context.Context, walletID id.WalletID, b CachedBalance) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[walletID] = cachedEntry{balance: b, expires: time.Now().Add(c.ttl)}
	return nil
}

func (c *MemoryBalanceCache) Invalidate(_ context.Context, walletID id.WalletID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, walletID)
	return nil
}
