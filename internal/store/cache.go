package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abelbrown/goldmine/internal/cache"
	"github.com/abelbrown/goldmine/internal/model"
)

var _ cache.Cache = (*ResultCache)(nil)

// ResultCache is the SQLite-backed cache.Cache.
type ResultCache struct {
	s   *Store
	now func() time.Time
}

// ResultCache returns a cache.Cache stored in s.
func (s *Store) ResultCache() *ResultCache {
	return &ResultCache{s: s, now: time.Now}
}

func (c *ResultCache) Get(ctx context.Context, key string) (*model.AnalysisResult, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var payload string
	err := c.s.db.QueryRowContext(ctx,
		"SELECT payload FROM result_cache WHERE cache_key = ? AND expires_at > ?",
		key, c.now().UnixNano()).Scan(&payload)
	if isNoRows(err) {
		return nil, cache.ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("decode cached result: %w", err)
	}
	return &result, nil
}

// Put stores value until ttl elapses and drops expired entries.
func (c *ResultCache) Put(ctx context.Context, key string, value model.AnalysisResult, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	now := c.now()
	if _, err := c.s.db.ExecContext(ctx, "DELETE FROM result_cache WHERE expires_at <= ?", now.UnixNano()); err != nil {
		return fmt.Errorf("evict expired: %w", err)
	}

	_, err = c.s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO result_cache (cache_key, payload, expires_at) VALUES (?, ?, ?)",
		key, string(payload), now.Add(ttl).UnixNano())
	if err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}
