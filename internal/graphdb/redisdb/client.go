// Package redisdb provides a development/testing implementation of the
// graph-database escape collaborator (§1/§9's "queries only" interface),
// backed by Redis rather than a full graph-database driver — it reuses the
// module's one Redis dependency instead of introducing an unexercised
// graph-DB client.
package redisdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Config configures Redis access for the graph-database escape.
type Config struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// Client runs parameterized count queries against Redis via EVAL, standing
// in for a graph-database's "return the row count of a parameterized
// query" contract.
type Client struct {
	client  *redis.Client
	timeout time.Duration
}

// New constructs a graph-database escape client and verifies connectivity.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping graph-database escape redis: %w", err)
	}

	return &Client{client: client, timeout: timeout}, nil
}

// CountRows evaluates a Lua script (the Redis stand-in for a parameterized
// graph query) and returns the row count it reports. query is passed
// through as the script body; params are passed as ARGV in key order.
func (c *Client) CountRows(ctx context.Context, query string, params map[string]interface{}) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := make([]interface{}, 0, len(params))
	for i := 0; i < len(params); i++ {
		key := fmt.Sprintf("p%d", i)
		args = append(args, fmt.Sprintf("%v", params[key]))
	}

	res, err := c.client.Eval(ctx, query, nil, args...).Result()
	if err != nil {
		return 0, fmt.Errorf("graph-database escape query failed: %w", err)
	}

	switch v := res.(type) {
	case int64:
		return int(v), nil
	case []interface{}:
		return len(v), nil
	default:
		return 0, fmt.Errorf("unexpected graph-database escape result type %T", res)
	}
}

// Close releases Redis resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
