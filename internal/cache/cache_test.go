package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/abelbrown/goldmine/internal/model"
)

func TestKey(t *testing.T) {
	if got := Key("  Home  Automation ", model.WindowWeek); got != "analysis:home automation:week" {
		t.Errorf("Key = %q", got)
	}
	if Key("SaaS", model.WindowDay) == Key("SaaS", model.WindowMonth) {
		t.Error("windows must produce distinct keys")
	}
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	if err := c.Put(context.Background(), "k", model.AnalysisResult{ID: "x"}, time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(context.Background(), "k"); !errors.Is(err, ErrMiss) {
		t.Errorf("err = %v, want ErrMiss", err)
	}
}

func TestNewRedisEmptyAddress(t *testing.T) {
	if _, err := NewRedis(RedisConfig{}); !errors.Is(err, ErrEmptyAddress) {
		t.Errorf("err = %v, want ErrEmptyAddress", err)
	}
}

func TestRedisUnreachable(t *testing.T) {
	// Port 1 on loopback is never a Redis server.
	c := NewRedisFromClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}))
	defer c.Close()

	_, err := c.Get(context.Background(), "k")
	if err == nil || errors.Is(err, ErrMiss) {
		t.Errorf("err = %v, want connection error", err)
	}
}
