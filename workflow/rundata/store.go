package rundata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/lmgateway/config"
	"github.com/BaSui01/lmgateway/internal/database"
	"github.com/BaSui01/lmgateway/internal/migration"
)

// Kind 记录类型
type Kind string

const (
	KindInput   Kind = "input"
	KindOutput  Kind = "output"
	KindAIEvent Kind = "ai_event"
)

// ErrClosed is returned by a store after Close.
var ErrClosed = errors.New("run data store is closed")

// Entry is one recorded piece of run data.
type Entry struct {
	ExecutionID string          `json:"execution_id"`
	Node        string          `json:"node"`
	Connection  string          `json:"connection"`
	Kind        Kind            `json:"kind"`
	RunIndex    int             `json:"run_index"`
	ItemIndex   int             `json:"item_index"`
	Data        json.RawMessage `json:"data,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Store persists run data per execution. Implementations are safe for
// concurrent use.
type Store interface {
	Append(ctx context.Context, e Entry) error
	// List returns the entries of one execution in append order.
	List(ctx context.Context, executionID string) ([]Entry, error)
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.RunDataConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "", config.RunDataMemory:
		return NewMemoryStore(), nil

	case config.RunDataRedis:
		client, err := DialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.KeyPrefix, cfg.TTL, logger), nil

	case config.RunDataSQLite, config.RunDataPostgres, config.RunDataMySQL:
		return openSQL(ctx, cfg, logger)

	default:
		return nil, fmt.Errorf("unsupported run data driver %q", cfg.Driver)
	}
}

func openSQL(ctx context.Context, cfg config.RunDataConfig, logger *zap.Logger) (*SQLStore, error) {
	dsn := cfg.Database.DSN(cfg.Driver)

	// postgres 与 mysql 的表结构走版本化迁移
	if cfg.Driver != config.RunDataSQLite {
		dbType, err := migration.ParseDatabaseType(cfg.Driver)
		if err != nil {
			return nil, err
		}
		m, err := migration.NewMigrator(migration.Config{DatabaseType: dbType, DatabaseURL: dsn}, logger)
		if err != nil {
			return nil, fmt.Errorf("run data migration: %w", err)
		}
		upErr := m.Up(ctx)
		if err := errors.Join(upErr, m.Close()); err != nil {
			return nil, fmt.Errorf("run data migration: %w", err)
		}
	}

	pool, err := database.Open(cfg.Driver, dsn, poolConfig(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("open run data database: %w", err)
	}

	if cfg.Driver == config.RunDataSQLite {
		if err := pool.DB().WithContext(ctx).AutoMigrate(&record{}); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	store := NewSQLStore(pool, logger)
	if cfg.TTL > 0 {
		if _, err := store.Prune(ctx, time.Now().Add(-cfg.TTL)); err != nil {
			logger.Warn("prune run data failed", zap.Error(err))
		}
	}
	return store, nil
}

func poolConfig(cfg config.RunDataConfig) database.PoolConfig {
	pc := database.DefaultPoolConfig()
	if cfg.Database.MaxOpenConns > 0 {
		pc.MaxOpenConns = cfg.Database.MaxOpenConns
	}
	if cfg.Database.MaxIdleConns > 0 {
		pc.MaxIdleConns = cfg.Database.MaxIdleConns
	}
	if pc.MaxIdleConns > pc.MaxOpenConns {
		pc.MaxIdleConns = pc.MaxOpenConns
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		pc.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	}
	// 每个 sqlite 连接有独立的内存库，只能共用一个
	if cfg.Driver == config.RunDataSQLite {
		pc.MaxOpenConns, pc.MaxIdleConns = 1, 1
		pc.ConnMaxLifetime, pc.ConnMaxIdleTime = 0, 0
	}
	return pc
}
