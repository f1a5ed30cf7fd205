package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/set_stock.lua
var setStockScript string

const (
	idempotencyPending = "pending"
	stockTTL           = 24 * time.Hour
)

type Client struct {
	rdb            *redis.Client
	setStockScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:            rdb,
		setStockScript: redis.NewScript(setStockScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks Redis connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func stockKey(productID int64) string {
	return fmt.Sprintf("inventory:%d", productID)
}

// SetStock caches a product quantity. Returns false when the cache already
// holds the same or a newer stock version.
func (c *Client) SetStock(ctx context.Context, productID int64, quantity int, version int64) (bool, error) {
	result, err := c.setStockScript.Run(ctx, c.rdb, []string{stockKey(productID)},
		quantity, version, int(stockTTL.Seconds())).Result()
	if err != nil {
		return false, fmt.Errorf("set stock script failed: %w", err)
	}

	written, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}
	return written == 1, nil
}

// GetStock returns the cached quantity for a product
func (c *Client) GetStock(ctx context.Context, productID int64) (int, bool, error) {
	result, err := c.rdb.HGet(ctx, stockKey(productID), "quantity").Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	quantity, err := strconv.Atoi(result)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cached stock for product %d: %w", productID, err)
	}
	return quantity, true, nil
}

// DeleteStock drops a product's cached quantity
func (c *Client) DeleteStock(ctx context.Context, productID int64) error {
	return c.rdb.Del(ctx, stockKey(productID)).Err()
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

// ReserveIdempotencyKey claims key for an in-flight request. False means the
// key is already claimed or completed.
func (c *Client) ReserveIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, idempotencyKey(key), idempotencyPending, ttl).Result()
}

// CompleteIdempotencyKey stores the result reference for a finished request
func (c *Client) CompleteIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyKey(key), value, ttl).Err()
}

// LookupIdempotencyKey returns the stored value and whether the request has
// completed. A missing key reports ("", false, nil).
func (c *Client) LookupIdempotencyKey(ctx context.Context, key string) (string, bool, error) {
	value, err := c.rdb.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if value == idempotencyPending {
		return "", false, nil
	}
	return value, true, nil
}

// ReleaseIdempotencyKey drops a claim so the request can be retried
func (c *Client) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, idempotencyKey(key)).Err()
}

// GetJSON decodes a cached JSON value into dst
func (c *Client) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON caches v as JSON
func (c *Client) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.rdb.Set(ctx, key, raw, ttl).Err()
}

// Delete removes cached keys
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:%s", lockKey)).Err()
}
