package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestSetStockIgnoresStaleVersions(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	written, err := client.SetStock(ctx, 3, 8, 2)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = client.SetStock(ctx, 3, 10, 1)
	require.NoError(t, err)
	assert.False(t, written)

	qty, found, err := client.GetStock(ctx, 3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 8, qty)

	written, err = client.SetStock(ctx, 3, 6, 3)
	require.NoError(t, err)
	assert.True(t, written)

	qty, _, err = client.GetStock(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, qty)
}

func TestGetStockMissing(t *testing.T) {
	client, _ := newTestClient(t)

	_, found, err := client.GetStock(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteStock(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.SetStock(ctx, 5, 12, 4)
	require.NoError(t, err)
	require.NoError(t, client.DeleteStock(ctx, 5))

	_, found, err := client.GetStock(ctx, 5)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, client.DeleteStock(ctx, 5))
}

func TestIdempotencyKeyLifecycle(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := client.ReserveIdempotencyKey(ctx, "pay-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.ReserveIdempotencyKey(ctx, "pay-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, done, err := client.LookupIdempotencyKey(ctx, "pay-1")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, client.CompleteIdempotencyKey(ctx, "pay-1", "sale:9", time.Minute))
	value, done, err := client.LookupIdempotencyKey(ctx, "pay-1")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "sale:9", value)

	require.NoError(t, client.ReleaseIdempotencyKey(ctx, "pay-1"))
	assert.False(t, mr.Exists("idempotency:pay-1"))

	_, err = client.ReserveIdempotencyKey(ctx, "pay-2", time.Minute)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists("idempotency:pay-2"))
}

func TestJSONCache(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	type payload struct {
		Count int `json:"count"`
	}

	var got payload
	found, err := client.GetJSON(ctx, "dashboard", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, client.SetJSON(ctx, "dashboard", payload{Count: 4}, time.Minute))
	found, err = client.GetJSON(ctx, "dashboard", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 4, got.Count)

	require.NoError(t, client.Delete(ctx, "dashboard"))
	found, err = client.GetJSON(ctx, "dashboard", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLock(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	ok, err := client.AcquireLock(ctx, "inventory-sync", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.AcquireLock(ctx, "inventory-sync", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.ReleaseLock(ctx, "inventory-sync"))
	ok, err = client.AcquireLock(ctx, "inventory-sync", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
