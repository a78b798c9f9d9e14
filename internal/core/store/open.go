package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"skilllink-client/internal/core/config"
	"skilllink-client/internal/core/database"
)

// Open 按 store.driver 选择后端
func Open(c config.Store, l *zap.Logger) (Store, error) {
	switch c.Driver {
	case "memory":
		return NewMemory(), nil
	case "file", "":
		return NewFile(c.Path)
	case "redis":
		r := NewRedis(c.Redis.Addr, c.Redis.Password, c.Redis.DB, c.Redis.Prefix)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := r.Ping(ctx); err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("redis %s: %w", c.Redis.Addr, err)
		}
		return r, nil
	case "sqlite", "postgres", "mysql":
		db, err := database.NewGorm(c.Driver, c.DB, l)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", c.Driver, err)
		}
		return NewSQL(db)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", c.Driver)
	}
}
