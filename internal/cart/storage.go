package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
)

// Storage keeps one cart per owner.
type Storage interface {
	Load(ctx context.Context, owner uuid.UUID) ([]Item, error)
	Save(ctx context.Context, owner uuid.UUID, items []Item) error
	Clear(ctx context.Context, owner uuid.UUID) error
}

type MemoryStorage struct {
	mu    sync.RWMutex
	carts map[uuid.UUID][]Item
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{carts: make(map[uuid.UUID][]Item)}
}

func (m *MemoryStorage) Load(_ context.Context, owner uuid.UUID) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := m.carts[owner]
	out := make([]Item, len(items))
	copy(out, items)
	return out, nil
}

func (m *MemoryStorage) Save(_ context.Context, owner uuid.UUID, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]Item, len(items))
	copy(stored, items)
	m.carts[owner] = stored
	return nil
}

func (m *MemoryStorage) Clear(_ context.Context, owner uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, owner)
	return nil
}

// RedisStorage stores each cart as a JSON string whose TTL is refreshed on
// every save, so abandoned carts expire on their own.
type RedisStorage struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStorage(rdb *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{rdb: rdb, ttl: ttl}
}

func Key(owner uuid.UUID) string {
	return fmt.Sprintf("storefront:cart:%s", owner)
}

func (r *RedisStorage) Load(ctx context.Context, owner uuid.UUID) ([]Item, error) {
	raw, err := r.rdb.Get(ctx, Key(owner)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart: failed to load cart %s: %w", owner, err)
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("cart: corrupt cart %s: %w", owner, err)
	}
	return items, nil
}

func (r *RedisStorage) Save(ctx context.Context, owner uuid.UUID, items []Item) error {
	if len(items) == 0 {
		return r.Clear(ctx, owner)
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cart: failed to encode cart %s: %w", owner, err)
	}
	if err := r.rdb.Set(ctx, Key(owner), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cart: failed to save cart %s: %w", owner, err)
	}
	return nil
}

func (r *RedisStorage) Clear(ctx context.Context, owner uuid.UUID) error {
	if err := r.rdb.Del(ctx, Key(owner)).Err(); err != nil {
		return fmt.Errorf("cart: failed to clear cart %s: %w", owner, err)
	}
	return nil
}
