package rundata

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/lmgateway/internal/database"
)

// record is the run_data row.
type record struct {
	ID          uint      `gorm:"primaryKey"`
	ExecutionID string    `gorm:"size:64;not null;index:idx_run_data_execution"`
	Node        string    `gorm:"size:255;not null"`
	Connection  string    `gorm:"size:64;not null"`
	Kind        string    `gorm:"size:16;not null"`
	RunIndex    int       `gorm:"not null;default:0"`
	ItemIndex   int       `gorm:"not null;default:0"`
	Data        string    `gorm:"type:text"`
	Error       string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index:idx_run_data_created_at"`
}

func (record) TableName() string { return "run_data" }

// SQLStore keeps entries in the run_data table through gorm.
type SQLStore struct {
	pool   *database.PoolManager
	logger *zap.Logger
}

// NewSQLStore uses pool; the run_data table must already exist.
func NewSQLStore(pool *database.PoolManager, logger *zap.Logger) *SQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLStore{pool: pool, logger: logger.With(zap.String("component", "rundata_sql"))}
}

func (s *SQLStore) Append(ctx context.Context, e Entry) error {
	r := record{
		ExecutionID: e.ExecutionID,
		Node:        e.Node,
		Connection:  e.Connection,
		Kind:        string(e.Kind),
		RunIndex:    e.RunIndex,
		ItemIndex:   e.ItemIndex,
		Data:        string(e.Data),
		Error:       e.Error,
		CreatedAt:   e.CreatedAt,
	}
	if err := s.pool.DB().WithContext(ctx).Create(&r).Error; err != nil {
		return fmt.Errorf("append run data: %w", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, executionID string) ([]Entry, error) {
	var rows []record
	err := s.pool.DB().WithContext(ctx).
		Where("execution_id = ?", executionID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list run data: %w", err)
	}

	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{
			ExecutionID: r.ExecutionID,
			Node:        r.Node,
			Connection:  r.Connection,
			Kind:        Kind(r.Kind),
			RunIndex:    r.RunIndex,
			ItemIndex:   r.ItemIndex,
			Error:       r.Error,
			CreatedAt:   r.CreatedAt,
		}
		if r.Data != "" {
			entries[i].Data = []byte(r.Data)
		}
	}
	return entries, nil
}

// Prune deletes entries created before the cutoff.
func (s *SQLStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res := s.pool.DB().WithContext(ctx).Where("created_at < ?", before).Delete(&record{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune run data: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Info("pruned run data", zap.Int64("rows", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

func (s *SQLStore) Close() error {
	return s.pool.Close()
}

// Stats reports the connection pool state.
func (s *SQLStore) Stats() database.PoolStats {
	return s.pool.Stats()
}
