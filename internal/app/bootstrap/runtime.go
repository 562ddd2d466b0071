package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-crm/internal/assistant"
	appconfig "github.com/wolfman30/clinic-crm/internal/config"
	"github.com/wolfman30/clinic-crm/pkg/logging"
)

const redisPingTimeout = 3 * time.Second

// BuildRedisClient returns a client for the chat history and realtime caches,
// or nil when REDIS_ADDR is unset. With verify, an unreachable server also
// yields nil so the caches are skipped.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	opts := redisOptions(cfg)
	if opts == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := redis.NewClient(opts)
	if !verify {
		return client
	}
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not available; caches disabled", "addr", opts.Addr, "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", "addr", opts.Addr, "tls", opts.TLSConfig != nil)
	return client
}

func redisOptions(cfg *appconfig.Config) *redis.Options {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:       strings.TrimSpace(cfg.RedisAddr),
		Password:   cfg.RedisPassword,
		MaxRetries: 1,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// BuildLLMClient returns the Gemini client, or nil when no API key is set and
// the assistant should run in simulated mode.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*assistant.GeminiClient, error) {
	if cfg == nil || strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := assistant.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		return nil, err
	}
	logger.Info("gemini client configured", "model", client.Model())
	return client, nil
}
