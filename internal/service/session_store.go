package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore guarda tokens de sesion opacos y permite destruirlos.
type SessionStore interface {
	Store(token, memberID string, ttl time.Duration) error
	Lookup(token string) (string, bool, error)
	Delete(token string) error
}

type memorySessionEntry struct {
	memberID  string
	expiresAt time.Time
}

type memorySessionStore struct {
	mu        sync.Mutex
	items     map[string]memorySessionEntry
	lastSweep time.Time
}

func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{
		items: make(map[string]memorySessionEntry),
	}
}

func (s *memorySessionStore) Store(token, memberID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(token) == "" {
		return nil
	}
	now := time.Now().UTC()
	s.sweepLocked(now)
	s.items[token] = memorySessionEntry{
		memberID:  memberID,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// sweepLocked descarta sesiones vencidas que nadie volvio a consultar.
// Corre a lo sumo una vez por minuto para acotar el costo por login.
func (s *memorySessionStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < time.Minute {
		return
	}
	s.lastSweep = now
	for token, entry := range s.items {
		if now.After(entry.expiresAt) {
			delete(s.items, token)
		}
	}
}

func (s *memorySessionStore) Lookup(token string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[token]
	if !ok {
		return "", false, nil
	}
	if time.Now().UTC().After(entry.expiresAt) {
		delete(s.items, token)
		return "", false, nil
	}
	return entry.memberID, true, nil
}

func (s *memorySessionStore) Delete(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, token)
	return nil
}

type redisKVClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisSessionStore struct {
	client redisKVClient
	prefix string
}

func NewRedisSessionStore(client *redis.Client) SessionStore {
	if client == nil {
		return nil
	}
	return &redisSessionStore{
		client: client,
		prefix: "auth:session:",
	}
}

func (s *redisSessionStore) Store(token, memberID string, ttl time.Duration) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Set(ctx, s.prefix+token, memberID, ttl).Err()
}

func (s *redisSessionStore) Lookup(token string) (string, bool, error) {
	if strings.TrimSpace(token) == "" {
		return "", false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	memberID, err := s.client.Get(ctx, s.prefix+token).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return memberID, true, nil
}

func (s *redisSessionStore) Delete(token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.Del(ctx, s.prefix+token).Err()
}
