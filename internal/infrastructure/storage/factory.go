package storage

import (
	"context"
	"fmt"

	"github.com/sifnet/storefront/internal/domain/shared"
	"github.com/sifnet/storefront/internal/infrastructure/config"
	"github.com/sifnet/storefront/internal/infrastructure/logger"
	"github.com/sifnet/storefront/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// Factory creates the KeyValueStore selected by configuration
type Factory struct {
	storage  config.StorageConfig
	redis    config.RedisConfig
	database config.DatabaseConfig
	logLevel string
	logger   *zap.Logger
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory and the stores it builds
func WithLogger(l *zap.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithLogLevel sets the application log level used to derive the SQL log level
func WithLogLevel(level string) FactoryOption {
	return func(f *Factory) {
		f.logLevel = level
	}
}

// NewFactory creates a factory from the storage, redis and database sections
func NewFactory(cfg *config.Config, opts ...FactoryOption) *Factory {
	f := &Factory{
		storage:  cfg.Storage,
		redis:    cfg.Redis,
		database: cfg.Database,
		logLevel: cfg.Log.Level,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create builds the configured store. When it cannot be opened and
// storage.fallback_to_memory is set, an in-memory store is returned instead
// and the failure is logged; the storefront keeps working without durability.
func (f *Factory) Create(ctx context.Context) (shared.KeyValueStore, error) {
	store, err := f.create(ctx)
	if err == nil {
		f.logger.Info("client storage ready", zap.String("driver", f.storage.Driver))
		return store, nil
	}

	if !f.storage.FallbackToMemory {
		return nil, fmt.Errorf("storage driver %s unavailable: %w", f.storage.Driver, err)
	}

	f.logger.Warn("client storage unavailable, falling back to in-memory storage; "+
		"cart and session will not survive a restart",
		zap.String("driver", f.storage.Driver),
		zap.Error(err),
	)
	return NewMemoryStore(), nil
}

func (f *Factory) create(ctx context.Context) (shared.KeyValueStore, error) {
	switch f.storage.Driver {
	case config.StorageMemory:
		return NewMemoryStore(), nil
	case config.StorageFile, "":
		return NewFileStore(f.storage.Path)
	case config.StorageRedis:
		return NewRedisStore(ctx, RedisConfig{
			Addr:      f.redis.Addr(),
			Password:  f.redis.Password,
			DB:        f.redis.DB,
			KeyPrefix: f.redis.KeyPrefix,
		})
	case config.StorageSQLite:
		db, err := persistence.NewSQLiteDatabase(f.storage.Path, persistence.WithLogger(f.gormLogger()))
		if err != nil {
			return nil, err
		}
		return f.sqlStore(db)
	case config.StoragePostgres:
		db, err := persistence.NewDatabase(&f.database, persistence.WithLogger(f.gormLogger()))
		if err != nil {
			return nil, err
		}
		return f.sqlStore(db)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", f.storage.Driver)
	}
}

func (f *Factory) sqlStore(db *persistence.Database) (shared.KeyValueStore, error) {
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return persistence.NewGormKeyValueStore(db), nil
}

func (f *Factory) gormLogger() *logger.GormLogger {
	return logger.NewGormLogger(f.logger, logger.MapGormLogLevel(f.logLevel))
}
