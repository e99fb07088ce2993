package paramcache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore is a ParameterStore over Redis, with one plain-string key per
// parameter path. WithDecryption is ignored: values are stored in the clear.
type RedisStore struct {
	redisClient *redis.Client
	logger      zerolog.Logger
}

// NewRedisStore creates and connects a new RedisStore. It pings the Redis
// server to ensure connectivity before returning.
func NewRedisStore(ctx context.Context, cfg *RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis.")

	return &RedisStore{
		redisClient: rdb,
		logger:      logger.With().Str("component", "RedisStore").Logger(),
	}, nil
}

// GetParameters fetches the batch in one MGET. Keys missing from Redis come
// back as nil entries and are omitted from the response.
func (s *RedisStore) GetParameters(ctx context.Context, req BatchRequest) (BatchResponse, error) {
	results, err := s.redisClient.MGet(ctx, req.Names...).Result()
	if err != nil {
		s.logger.Error().Err(err).Int("batch_size", len(req.Names)).Msg("Redis MGET failed.")
		return BatchResponse{}, fmt.Errorf("redis mget: %w", err)
	}

	resp := BatchResponse{Parameters: make([]Parameter, 0, len(results))}
	for i, raw := range results {
		if raw == nil {
			s.logger.Debug().Str("path", req.Names[i]).Msg("Parameter key not found in Redis.")
			continue
		}
		value, ok := raw.(string)
		if !ok {
			return BatchResponse{}, fmt.Errorf("redis value for %s is %T, expected string", req.Names[i], raw)
		}
		resp.Parameters = append(resp.Parameters, Parameter{
			Name:  req.Names[i],
			Value: value,
			Type:  "String",
		})
	}
	return resp, nil
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	if s.redisClient != nil {
		s.logger.Info().Msg("Closing Redis client connection...")
		return s.redisClient.Close()
	}
	return nil
}
