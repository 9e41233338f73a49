package preference

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tempmail/playground/internal/config"
)

// Redis Redis 存储
type Redis struct {
	rdb *goredis.Client
	log *zap.Logger
}

// NewRedis 连接 Redis 并返回存储
func NewRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// 测试连接
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisFromClient(rdb, log), nil
}

// NewRedisFromClient 使用已有客户端
func NewRedisFromClient(rdb *goredis.Client, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("connected to Redis", zap.String("address", rdb.Options().Addr), zap.Int("db", rdb.Options().DB))
	return &Redis{rdb: rdb, log: log}
}

// Get 读取
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	value, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	return value, err
}

// Set 写入，偏好不过期
func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.rdb.Set(ctx, key, value, 0).Err()
}

// Ping 测试 Redis 连接
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close 关闭 Redis 连接
func (r *Redis) Close() error {
	if err := r.rdb.Close(); err != nil {
		r.log.Error("failed to close Redis connection", zap.Error(err))
		return err
	}
	r.log.Info("Redis connection closed")
	return nil
}
