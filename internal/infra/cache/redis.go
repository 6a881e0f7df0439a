// Package cache keeps provider results in Redis so identical submissions do
// not hit the LLM twice.
package cache

import (
	"context"
	"errors"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/bryanwahyu/neurolint/internal/domain/analysis"
)

const prefix = "neurolint:analysis:"

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Connect dials addr and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx2).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (r *Redis) Get(ctx context.Context, key string) (*analysis.Result, bool, error) {
	raw, err := r.client.Get(ctx, prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var res analysis.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		// a corrupt entry is a miss
		return nil, false, nil
	}
	return &res, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, res *analysis.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, prefix+key, raw, r.ttl).Err()
}

// Check is the readiness probe.
func (r *Redis) Check(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
