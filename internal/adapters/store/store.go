// Package store holds the history store backends: the hosted Base44 entity
// API, Redis and an in-process memory store.
package store

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/config"
	"github.com/dkeye/chatrelay/internal/core"
)

// Store is a history store the process owns and must close on shutdown.
type Store interface {
	core.HistoryStore
	Close() error
}

func New(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverBase44:
		log.Info().Str("module", "store").Str("driver", cfg.Driver).Str("url", cfg.BaseURL).Msg("using base44 history store")
		return NewBase44Client(cfg.BaseURL, cfg.APIKey, cfg.Timeout), nil
	case config.DriverRedis:
		log.Info().Str("module", "store").Str("driver", cfg.Driver).Str("addr", cfg.RedisAddr).Msg("using redis history store")
		rdb := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  cfg.Timeout,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
		})
		return NewRedisStore(rdb, cfg.RedisPrefix), nil
	case config.DriverMemory:
		log.Warn().Str("module", "store").Msg("using in-memory history store, messages are lost on restart")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
	}
}
