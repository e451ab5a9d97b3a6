// Package store 提供键值持久化：内存、Redis、SQL 三种后端，以及按领域类型读写 JSON 的 Repository。
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// KV 最小键值接口。Get 在键不存在时返回 ok=false 且 err=nil。
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// ErrUnsupportedURL store URL 的 scheme 无法识别。
var ErrUnsupportedURL = errors.New("unsupported store url")

// Open 按 URL scheme 选择后端：
//
//	""、memory://            内存
//	redis://、rediss://      Redis
//	sqlite://<path>          SQLite（sqlite://:memory: 用于测试）
//	postgres://、postgresql:// PostgreSQL
func Open(ctx context.Context, url string, logger *zap.Logger) (KV, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case url == "" || strings.HasPrefix(url, "memory://"):
		logger.Info("using in-memory store")
		return NewMemoryStore(), nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		logger.Info("connecting to redis store")
		return NewRedisStore(ctx, url, "")
	case strings.HasPrefix(url, "sqlite://"):
		path := strings.TrimPrefix(url, "sqlite://")
		logger.Info("opening sqlite store", zap.String("path", path))
		return NewSQLiteStore(path)
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		logger.Info("connecting to postgres store")
		return NewPostgresStore(url)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, url)
	}
}
