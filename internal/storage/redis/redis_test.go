package redis

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

func TestUnreachableServer(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	s := NewWithClient(client, "cartera:")
	defer s.Close()

	ctx := context.Background()
	if err := s.Ping(ctx); err == nil || !strings.HasPrefix(err.Error(), "redis ping") {
		t.Errorf("Ping() error = %v", err)
	}
	if _, err := s.Get(ctx, "k"); err == nil || !strings.Contains(err.Error(), "redis get k") {
		t.Errorf("Get() error = %v", err)
	}
	if err := s.Set(ctx, "k", "v"); err == nil {
		t.Error("Set() should fail without a server")
	}
}

// TestRoundTrip runs against a live server when REDIS_ADDR is set.
func TestRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	prefix := "cartera-test:" + time.Now().Format("150405.000000") + ":"
	s := New(Options{Addr: addr, Prefix: prefix})
	defer s.Close()
	ctx := context.Background()

	if got, err := s.Get(ctx, "missing"); err != nil || got != "" {
		t.Fatalf("Get(missing) = %q, %v", got, err)
	}
	if err := s.Set(ctx, "ledger", `{"entries":[]}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "ledger")
	if err != nil || got != `{"entries":[]}` {
		t.Fatalf("Get(ledger) = %q, %v", got, err)
	}
	s.client.Del(ctx, prefix+"ledger")
}
