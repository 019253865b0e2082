package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"toolbox/internal/platform/config"
)

// Client is the shared go-redis client. It backs the token revocation list
// and the rate limiter, and reports in /ready.
type Client struct {
	*redis.Client
}

// New connects and pings. A nil client with a nil error means Redis is not
// configured and callers fall back to Postgres or memory.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{Client: client}, nil
}

// Options parses the URL and layers pool and timeout settings from cfg on
// top. Zero values keep the go-redis defaults.
func Options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

func (c *Client) Name() string { return "redis" }

func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
