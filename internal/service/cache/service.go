package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/internal/constants"
	"github.com/Grand-Nord-Developpers-Community/gndc-whatsapp-bot/pkg/errors"
)

// Service: Valkey client wrapper shared by the record store, the group directory and the gateway.
// Besides plain strings it exposes the sorted set, hash and scan primitives the bot needs.
type Service struct {
	client    valkey.Client
	logger    *slog.Logger
	closeOnce sync.Once
}

// Config: Valkey connection settings
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewCacheService connects to Valkey and verifies the connection with a PING.
func NewCacheService(cfg Config, logger *slog.Logger) (*Service, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:       []string{addr},
		Password:          cfg.Password,
		SelectDB:          cfg.DB,
		ConnWriteTimeout:  constants.ValkeyConfig.ConnWriteTimeout,
		BlockingPoolSize:  constants.ValkeyConfig.BlockingPoolSize,
		PipelineMultiplex: constants.ValkeyConfig.PipelineMultiplex,
		Dialer:            net.Dialer{Timeout: constants.ValkeyConfig.DialTimeout},
	})
	if err != nil {
		return nil, errors.NewCacheError("init", "", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.ValkeyConfig.ReadyTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, errors.NewCacheError("ping", "", err)
	}

	logger.Info("VALKEY_CONNECTED",
		slog.String("addr", addr),
		slog.Int("db", cfg.DB),
		slog.Int("pool_size", constants.ValkeyConfig.BlockingPoolSize),
	)

	return NewWithClient(client, logger), nil
}

// NewWithClient wraps an existing client (tests, shared connections).
func NewWithClient(client valkey.Client, logger *slog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// GetString returns the raw value of key; found is false when the key is absent.
func (c *Service) GetString(ctx context.Context, key string) (value string, found bool, err error) {
	resp := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if valkey.IsValkeyNil(resp.Error()) {
		return "", false, nil
	}
	if resp.Error() != nil {
		c.logger.Error("CACHE_GET_FAILED", slog.String("key", key), slog.Any("error", resp.Error()))
		return "", false, errors.NewCacheError("get", key, resp.Error())
	}
	value, err = resp.ToString()
	if err != nil {
		return "", false, errors.NewCacheError("get", key, err)
	}
	return value, true, nil
}

// SetString stores value under key; ttl <= 0 means no expiry.
func (c *Service) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	var cmd valkey.Completed
	if ttl > 0 {
		cmd = c.client.B().Set().Key(key).Value(value).ExSeconds(ttlSeconds(ttl)).Build()
	} else {
		cmd = c.client.B().Set().Key(key).Value(value).Build()
	}

	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Error("CACHE_SET_FAILED", slog.String("key", key), slog.Any("error", err))
		return errors.NewCacheError("set", key, err)
	}
	return nil
}

// SetNX stores value only when key does not exist. It reports whether the write happened.
func (c *Service) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	var cmd valkey.Completed
	if ttl > 0 {
		cmd = c.client.B().Set().Key(key).Value(value).Nx().ExSeconds(ttlSeconds(ttl)).Build()
	} else {
		cmd = c.client.B().Set().Key(key).Value(value).Nx().Build()
	}

	err := c.client.Do(ctx, cmd).Error()
	if valkey.IsValkeyNil(err) {
		return false, nil
	}
	if err != nil {
		c.logger.Error("CACHE_SETNX_FAILED", slog.String("key", key), slog.Any("error", err))
		return false, errors.NewCacheError("setnx", key, err)
	}
	return true, nil
}

// Del removes keys and returns how many existed.
func (c *Service) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.client.Do(ctx, c.client.B().Del().Key(keys...).Build()).AsInt64()
	if err != nil {
		c.logger.Error("CACHE_DEL_FAILED", slog.Any("keys", keys), slog.Any("error", err))
		return 0, errors.NewCacheError("del", keys[0], err)
	}
	return n, nil
}

// Scan iterates SCAN MATCH pattern and returns up to limit keys (limit <= 0: no limit).
func (c *Service) Scan(ctx context.Context, pattern string, limit int) ([]string, error) {
	var (
		cursor uint64
		keys   []string
		seen   = make(map[string]struct{})
	)
	for {
		cmd := c.client.B().Scan().Cursor(cursor).Match(pattern).Count(constants.StoreConfig.ScanCount).Build()
		entry, err := c.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			c.logger.Error("CACHE_SCAN_FAILED", slog.String("pattern", pattern), slog.Any("error", err))
			return nil, errors.NewCacheError("scan", pattern, err)
		}
		for _, key := range entry.Elements {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
			if limit > 0 && len(keys) >= limit {
				return keys, nil
			}
		}
		cursor = entry.Cursor
		if cursor == 0 {
			return keys, nil
		}
	}
}

// ZIncrBy adds delta to member score and returns the new score.
func (c *Service) ZIncrBy(ctx context.Context, key, member string, delta float64) (float64, error) {
	cmd := c.client.B().Zincrby().Key(key).Increment(delta).Member(member).Build()
	score, err := c.client.Do(ctx, cmd).AsFloat64()
	if err != nil {
		return 0, errors.NewCacheError("zincrby", key, err)
	}
	return score, nil
}

// ZRevRangeWithScores returns the top n members by descending score.
func (c *Service) ZRevRangeWithScores(ctx context.Context, key string, n int64) ([]valkey.ZScore, error) {
	if n <= 0 {
		return nil, nil
	}
	cmd := c.client.B().Zrevrange().Key(key).Start(0).Stop(n - 1).Withscores().Build()
	scores, err := c.client.Do(ctx, cmd).AsZScores()
	if err != nil {
		return nil, errors.NewCacheError("zrevrange", key, err)
	}
	return scores, nil
}

// Expire sets a TTL on key.
func (c *Service) Expire(ctx context.Context, key string, ttl time.Duration) error {
	cmd := c.client.B().Expire().Key(key).Seconds(ttlSeconds(ttl)).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return errors.NewCacheError("expire", key, err)
	}
	return nil
}

// Exists reports whether key exists.
func (c *Service) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Do(ctx, c.client.B().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, errors.NewCacheError("exists", key, err)
	}
	return n > 0, nil
}

// Close releases the client once.
func (c *Service) Close() error {
	c.closeOnce.Do(func() {
		if c.client != nil {
			c.client.Close()
		}
	})
	return nil
}

// IsConnected pings the server.
func (c *Service) IsConnected(ctx context.Context) bool {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error() == nil
}

// WaitUntilReady polls IsConnected until it succeeds or timeout elapses.
func (c *Service) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if c.IsConnected(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("valkey not ready after %s: %w", timeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

// GetClient exposes the raw client for stream and Lua work.
func (c *Service) GetClient() valkey.Client {
	return c.client
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}
