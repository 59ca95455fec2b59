package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// ValkeyClient caches sold-seat counts for the public availability
// endpoint. The acceptance gate never reads it; stale counts only ever
// reach the sales page, not the capacity decision.
type ValkeyClient struct {
	client *redis.Client
	ttl    time.Duration
}

const soldCountsKey = "availability:sold"

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	if cfg.TTL == 0 {
		cfg.TTL = 15 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	slog.Info("Connected to Valkey", "addr", cfg.Addr, "ttl", cfg.TTL)

	return &ValkeyClient{client: client, ttl: cfg.TTL}, nil
}

// GetSoldCounts returns the cached per-show sold counts, or nil on a miss.
func (vc *ValkeyClient) GetSoldCounts(ctx context.Context) (map[string]int, error) {
	payload, err := vc.client.Get(ctx, soldCountsKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sold counts: %w", err)
	}

	counts := map[string]int{}
	if err := json.Unmarshal(payload, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode sold counts: %w", err)
	}

	return counts, nil
}

func (vc *ValkeyClient) SetSoldCounts(ctx context.Context, counts map[string]int) error {
	payload, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed to encode sold counts: %w", err)
	}

	if err := vc.client.Set(ctx, soldCountsKey, payload, vc.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache sold counts: %w", err)
	}

	return nil
}

// InvalidateSoldCounts drops the cache entry after fulfillment issues
// new codes.
func (vc *ValkeyClient) InvalidateSoldCounts(ctx context.Context) error {
	if err := vc.client.Del(ctx, soldCountsKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate sold counts: %w", err)
	}
	return nil
}

func (vc *ValkeyClient) Close() error {
	return vc.client.Close()
}
