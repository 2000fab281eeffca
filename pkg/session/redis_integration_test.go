//go:build integration

package session

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRedisStore_Integration(t *testing.T) {
	addr := os.Getenv("MODREG_TEST_REDIS")
	if addr == "" {
		t.Skip("set MODREG_TEST_REDIS to run")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewRedisStore(ctx, addr)
	if err != nil {
		t.Fatalf("NewRedisStore error: %v", err)
	}
	defer store.Close()

	registry := "http://integration.test/" + t.Name()
	if err := store.Set(ctx, New(registry, "abc123", "alice", time.Minute)); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	defer store.Delete(ctx, registry)

	got, err := store.Get(ctx, registry)
	if err != nil || got == nil {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if got.Token != "abc123" || got.User != "alice" {
		t.Errorf("Get = %+v", got)
	}
}
