package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisEvaler struct {
	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
	result     int64
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

func TestMemoryRateLimiter_DeniesAfterMax(t *testing.T) {
	l := NewMemoryRateLimiter(time.Minute, 5)
	for i := 0; i < 5; i++ {
		if !l.Allow("login:user@example.com") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if l.Allow("login:user@example.com") {
		t.Fatalf("sixth attempt within window should be denied")
	}
	if !l.Allow("login:other@example.com") {
		t.Fatalf("distinct key should not be affected")
	}
}

func TestMemoryRateLimiter_WindowExpires(t *testing.T) {
	l := NewMemoryRateLimiter(40*time.Millisecond, 1)
	if !l.Allow("k") {
		t.Fatalf("first attempt should be allowed")
	}
	if l.Allow("k") {
		t.Fatalf("second attempt should be denied")
	}
	time.Sleep(60 * time.Millisecond)
	if !l.Allow("k") {
		t.Fatalf("attempt after window should be allowed")
	}
}

func TestRedisRateLimiterAllow(t *testing.T) {
	t.Run("empty key rejected", func(t *testing.T) {
		l := &redisRateLimiter{
			client: &mockRedisEvaler{result: 1},
			window: time.Minute,
			max:    3,
			prefix: "rl:",
		}
		if l.Allow("   ") {
			t.Fatalf("expected empty key to be rejected")
		}
	})

	t.Run("allow when count within max", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 2}
		l := &redisRateLimiter{
			client: mock,
			window: 2 * time.Minute,
			max:    3,
			prefix: "rl:",
		}
		if !l.Allow(" Login:User@Example.com ") {
			t.Fatalf("expected allow when count <= max")
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "rl:login:user@example.com" {
			t.Fatalf("unexpected key normalization, got %+v", mock.lastKeys)
		}
		if len(mock.lastArgs) != 1 || mock.lastArgs[0] != 120 {
			t.Fatalf("expected TTL seconds=120, got %+v", mock.lastArgs)
		}
		if mock.lastScript != redisAllowScript {
			t.Fatalf("expected script to match")
		}
	})

	t.Run("deny when count exceeds max", func(t *testing.T) {
		l := &redisRateLimiter{
			client: &mockRedisEvaler{result: 4},
			window: time.Minute,
			max:    3,
			prefix: "rl:",
		}
		if l.Allow("k") {
			t.Fatalf("expected deny when count > max")
		}
	})

	t.Run("redis error fail-open", func(t *testing.T) {
		l := &redisRateLimiter{
			client: &mockRedisEvaler{err: errors.New("redis down")},
			window: time.Minute,
			max:    3,
			prefix: "rl:",
		}
		if !l.Allow("k") {
			t.Fatalf("expected fail-open on redis errors")
		}
	})
}
