package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nhanhsync/internal/models"
)

// Settings is the gorm-backed key/value configuration store. A missing key
// reads as the empty string.
type Settings struct {
	db *gorm.DB
}

func NewSettings(db *gorm.DB) *Settings {
	return &Settings{db: db}
}

func (s *Settings) Get(ctx context.Context, key string) (string, error) {
	var setting models.Setting
	err := s.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return setting.Value, nil
}

func (s *Settings) Set(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.Setting{Key: key, Value: value}).Error
}

// SetDefault writes a value only when the key is still unset, so explicit
// configuration survives restarts.
func (s *Settings) SetDefault(ctx context.Context, key, value string) error {
	current, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if current != "" {
		return nil
	}
	return s.Set(ctx, key, value)
}
