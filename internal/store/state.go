package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nhanhsync/internal/models"
)

const logRetention = 100

// SyncState persists the coordinator's activity trail and run statistics.
type SyncState struct {
	db *gorm.DB
}

func NewSyncState(db *gorm.DB) *SyncState {
	return &SyncState{db: db}
}

// AppendLog inserts an entry and prunes the table down to the newest 100.
func (s *SyncState) AppendLog(ctx context.Context, entry *models.SyncLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Exec(
		"DELETE FROM sync_logs WHERE id NOT IN (SELECT id FROM sync_logs ORDER BY id DESC LIMIT ?)",
		logRetention,
	).Error
}

func (s *SyncState) RecentLogs(ctx context.Context, limit int) ([]models.SyncLog, error) {
	var logs []models.SyncLog
	err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

func (s *SyncState) ClearLogs(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("DELETE FROM sync_logs").Error
}

func (s *SyncState) SaveStat(ctx context.Context, stat *models.SyncStat) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}},
		UpdateAll: true,
	}).Create(stat).Error
}

func (s *SyncState) LoadStats(ctx context.Context) ([]models.SyncStat, error) {
	var stats []models.SyncStat
	err := s.db.WithContext(ctx).Find(&stats).Error
	return stats, err
}
