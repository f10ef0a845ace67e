// Package cache stores finished analyses so repeated scans of the same
// topic and window can skip the pipeline.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/goldmine/internal/model"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Cache is a TTL store for analysis results.
type Cache interface {
	Get(ctx context.Context, key string) (*model.AnalysisResult, error)
	Put(ctx context.Context, key string, value model.AnalysisResult, ttl time.Duration) error
}

// Key builds the cache key for a topic and window.
func Key(topic string, window model.Window) string {
	t := strings.ToLower(strings.Join(strings.Fields(topic), " "))
	return fmt.Sprintf("analysis:%s:%s", t, window)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (*model.AnalysisResult, error) {
	return nil, ErrMiss
}

func (Nop) Put(context.Context, string, model.AnalysisResult, time.Duration) error {
	return nil
}
