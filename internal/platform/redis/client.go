// Package redis wraps the go-redis client and a generic JSON view cache for
// the KV projection target (spec.md §4.5), sharing one call-timeout budget
// across the dial, the read/write deadlines, and the startup ping so the
// same cfg.CallTimeout() knob that bounds every other log/store call also
// bounds this one.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type Client struct {
	*goredis.Client
}

func NewClient(addr, password string, db int, callTimeout time.Duration) (*Client, error) {
	if callTimeout <= 0 {
		callTimeout = 5 * time.Second
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  callTimeout,
		ReadTimeout:  callTimeout,
		WriteTimeout: callTimeout,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{Client: rdb}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}
