package state

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore[record], *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore[record](client, "test:pending:", ttl), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Hour)

	if err := s.Set(ctx, 42, record{Items: []string{"b", "a"}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("test:pending:42") {
		t.Fatal("key not written with prefix")
	}
	v, ok, err := s.Get(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(v.Items) != 2 || v.Items[0] != "b" || v.Items[1] != "a" {
		t.Fatalf("items = %v", v.Items)
	}
	if err := s.Delete(ctx, 42); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, 42); ok {
		t.Fatal("value survived delete")
	}
}

func TestRedisStoreExpires(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Minute)
	_ = s.Set(ctx, 1, record{})
	mr.FastForward(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, 1); ok {
		t.Fatal("expired value still returned")
	}
}
