package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sifnet/storefront/internal/domain/shared"
	"github.com/sifnet/storefront/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormKeyValueStore implements shared.KeyValueStore on a SQL table
type GormKeyValueStore struct {
	db  *Database
	now func() time.Time
}

// NewGormKeyValueStore creates a store over db. The table must exist; see
// Database.Migrate.
func NewGormKeyValueStore(db *Database) *GormKeyValueStore {
	return &GormKeyValueStore{db: db, now: time.Now}
}

// Get implements shared.KeyValueStore
func (s *GormKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	var row models.KeyValue
	err := s.db.DB.WithContext(ctx).Where("storage_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return row.Value, true, nil
}

// Set implements shared.KeyValueStore with an upsert
func (s *GormKeyValueStore) Set(ctx context.Context, key, value string) error {
	row := models.KeyValue{Key: key, Value: value, UpdatedAt: s.now().UTC()}
	err := s.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "storage_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete implements shared.KeyValueStore
func (s *GormKeyValueStore) Delete(ctx context.Context, key string) error {
	err := s.db.DB.WithContext(ctx).Where("storage_key = ?", key).Delete(&models.KeyValue{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying database
func (s *GormKeyValueStore) Close() error {
	return s.db.Close()
}

var _ shared.KeyValueStore = (*GormKeyValueStore)(nil)
