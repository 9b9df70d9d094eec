package tracing

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dhyansraj/mcp-mesh/config"
)

// StreamName is the shared Redis stream all agents append spans to.
const StreamName = "mesh:trace"

// publisherState is the process-global publisher singleton. All runtimes
// in the process share one connection; transitions are guarded by mu.
type publisherState struct {
	mu        sync.RWMutex
	client    *redis.Client
	enabled   bool
	available bool
	logger    *zap.Logger
}

var publisher publisherState

// Init initializes the trace publisher from configuration
// (MCP_MESH_DISTRIBUTED_TRACING_ENABLED, REDIS_URL).
//
// Returns true when tracing is enabled and Redis answered a ping.
// Safe to call more than once; later calls re-evaluate the configuration.
func Init(ctx context.Context, logger *zap.Logger) bool {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "trace_publisher"))

	publisher.mu.Lock()
	defer publisher.mu.Unlock()

	if publisher.client != nil {
		publisher.client.Close()
		publisher.client = nil
	}
	publisher.available = false
	publisher.logger = logger

	resolver := config.NewResolver(logger)
	publisher.enabled = resolver.IsTracingEnabled()
	if !publisher.enabled {
		logger.Debug("distributed tracing disabled")
		return false
	}

	redisURL := resolver.RedisURL()
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url for tracing",
			zap.String("redis_url", config.Redact(config.KeyRedisURL, redisURL)),
			zap.Error(err))
		return false
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis ping failed, tracing unavailable", zap.Error(err))
		client.Close()
		return false
	}

	publisher.client = client
	publisher.available = true
	logger.Info("distributed tracing enabled",
		zap.String("redis_url", config.Redact(config.KeyRedisURL, redisURL)))
	return true
}

// PublishSpan appends a span record to the mesh:trace stream.
//
// A published_at field (Unix seconds, float) is added when the caller did
// not supply one. Returns false on any failure, silently.
func PublishSpan(ctx context.Context, span map[string]string) bool {
	publisher.mu.RLock()
	client := publisher.client
	ready := publisher.enabled && publisher.available
	logger := publisher.logger
	publisher.mu.RUnlock()

	if !ready || client == nil {
		return false
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	values := make(map[string]interface{}, len(span)+1)
	for k, v := range span {
		values[k] = v
	}
	if _, ok := values["published_at"]; !ok {
		now := float64(time.Now().UnixNano()) / 1e9
		values["published_at"] = strconv.FormatFloat(now, 'f', 6, 64)
	}

	if err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamName,
		Values: values,
	}).Err(); err != nil {
		logger.Debug("failed to publish trace span", zap.Error(err))
		return false
	}

	logger.Debug("published trace span", zap.Int("fields", len(values)))
	return true
}

// Available reports whether trace publishing is currently possible.
func Available() bool {
	publisher.mu.RLock()
	defer publisher.mu.RUnlock()
	return publisher.enabled && publisher.available
}
