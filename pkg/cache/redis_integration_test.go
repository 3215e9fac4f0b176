//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRedisCache_Integration(t *testing.T) {
	addr := os.Getenv("GRANDGRAPH_TEST_REDIS")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := NewRedisCache(ctx, addr)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer c.Close()

	key := "grandgraph:test:" + time.Now().Format(time.RFC3339Nano)
	if _, hit, err := c.Get(ctx, key); hit || err != nil {
		t.Fatalf("miss = %v, %v", hit, err)
	}
	if err := c.Set(ctx, key, []byte("buf"), time.Minute); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit || string(data) != "buf" {
		t.Fatalf("Get = %q, %v, %v", data, hit, err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
}
