package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const ioTimeout = 2 * time.Second

type Client struct {
	rdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  ioTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	return &Client{rdb: rdb}
}

// Ping is used by /readyz.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Raw exposes the underlying client to stores that need the command API.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}
