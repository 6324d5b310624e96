package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Story-Atlas/server/internal/models"
)

// SQLStore keeps records in the stories table of a gorm database
type SQLStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSQLStoreWithDB migrates the schema on an existing connection
func NewSQLStoreWithDB(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&models.Story{}); err != nil {
		return nil, fmt.Errorf("failed to migrate stories: %w", err)
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) Put(ctx context.Context, story *models.Story) error {
	rec := *story
	rec.CachedAt = s.now()

	// cached_at is left alone on conflict so GetAll keeps first-insertion order
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(upsertColumns),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to store story %s: %w", rec.ID, err)
	}
	return nil
}

var upsertColumns = []string{
	"name", "title", "body", "description", "photo_url", "photo_data",
	"photo_type", "lat", "lon", "created_at", "sync_state", "as_guest",
}

func (s *SQLStore) Get(ctx context.Context, id string) (*models.Story, error) {
	var story models.Story
	err := s.db.WithContext(ctx).First(&story, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	return &story, nil
}

func (s *SQLStore) GetAll(ctx context.Context) ([]models.Story, error) {
	stories := []models.Story{}
	if err := s.db.WithContext(ctx).Order("cached_at ASC, id ASC").Find(&stories).Error; err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return stories, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.Story{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete story %s: %w", id, err)
	}
	return nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Story{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count stories: %w", err)
	}
	return int(n), nil
}
