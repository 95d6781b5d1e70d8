package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"

	"example.com/fintant/backend/internal/config"
)

const (
	KeyDashboard = "dashboard"
	KeyInsights  = "insights"
	KeyProfile   = "profile"
)

// Cache хранит вычисленные ответы по пользователям и помнит ключи каждого
// пользователя, чтобы сбрасывать их разом.
type Cache struct {
	store *ristretto.Cache
	ttl   time.Duration

	mu   sync.Mutex
	keys map[uuid.UUID]map[string]struct{}
}

// New создает кэш с лимитами из конфигурации.
func New(cfg config.CacheConfig) (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	return &Cache{
		store: store,
		ttl:   cfg.TTL,
		keys:  make(map[uuid.UUID]map[string]struct{}),
	}, nil
}

func key(userID uuid.UUID, name string) string {
	return userID.String() + ":" + name
}

// Get возвращает значение, если оно есть и не истекло.
func (c *Cache) Get(userID uuid.UUID, name string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}
	return c.store.Get(key(userID, name))
}

// Set кладет значение с TTL из конфигурации. Ristretto может отбросить запись,
// тогда возвращается false.
func (c *Cache) Set(userID uuid.UUID, name string, value interface{}) bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	names, ok := c.keys[userID]
	if !ok {
		names = make(map[string]struct{})
		c.keys[userID] = names
	}
	names[name] = struct{}{}
	c.mu.Unlock()

	return c.store.SetWithTTL(key(userID, name), value, 1, c.ttl)
}

// Invalidate удаляет одно значение пользователя.
func (c *Cache) Invalidate(userID uuid.UUID, name string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	if names, ok := c.keys[userID]; ok {
		delete(names, name)
		if len(names) == 0 {
			delete(c.keys, userID)
		}
	}
	c.mu.Unlock()

	c.store.Del(key(userID, name))
}

// InvalidateUser удаляет все значения пользователя.
func (c *Cache) InvalidateUser(userID uuid.UUID) {
	if c == nil {
		return
	}

	c.mu.Lock()
	names := c.keys[userID]
	delete(c.keys, userID)
	c.mu.Unlock()

	for name := range names {
		c.store.Del(key(userID, name))
	}
}

// Wait дожидается применения буферизованных записей.
func (c *Cache) Wait() {
	if c == nil {
		return
	}
	c.store.Wait()
}

// Close останавливает фоновые горутины ristretto.
func (c *Cache) Close() {
	if c == nil {
		return
	}
	c.store.Close()
}
