package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/emberly-app/emberly/internal/cache"
	"github.com/emberly-app/emberly/internal/config"
	"github.com/emberly-app/emberly/internal/events"
	"github.com/emberly-app/emberly/internal/metrics"
	"github.com/emberly-app/emberly/internal/oracle"
)

// AppContext holds shared dependencies (DB, Redis, Oracle, Logger, etc.)
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Oracle     *oracle.Client
	Bus        *events.Bus
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// New creates a new AppContext
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, oc *oracle.Client, bus *events.Bus, m *metrics.Metrics, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Oracle:     oc,
		Bus:        bus,
		Metrics:    m,
		Logger:     logger,
	}
}
