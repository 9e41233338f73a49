// Package preference 持久化界面偏好（目前只有主题）。
//
// 提供内存、SQLite 和 Redis 三种键值后端。
package preference

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"tempmail/playground/internal/config"
)

// ErrNotFound 键不存在
var ErrNotFound = errors.New("preference not found")

// Store 偏好键值存储
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open 按配置打开偏好存储
func Open(ctx context.Context, cfg config.PreferenceConfig, redisCfg config.RedisConfig, log *zap.Logger) (Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.Backend {
	case "", config.PreferenceMemory:
		log.Info("using in-memory preference store")
		return NewMemory(), nil
	case config.PreferenceSQLite:
		store, err := OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Info("using sqlite preference store", zap.String("path", cfg.Path))
		return store, nil
	case config.PreferenceRedis:
		store, err := NewRedis(ctx, redisCfg, log)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown preference backend %q", cfg.Backend)
	}
}
