package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nhanhsync/internal/models"
	"nhanhsync/internal/sync"
)

// Links is the gorm-backed identity map between local entities and their
// Nhanh.vn counterparts.
type Links struct {
	db *gorm.DB
}

func NewLinks(db *gorm.DB) *Links {
	return &Links{db: db}
}

func (s *Links) ByLocal(ctx context.Context, kind models.EntityKind, localID string) (*models.ExternalLink, error) {
	var link models.ExternalLink
	err := s.db.WithContext(ctx).First(&link, "entity_kind = ? AND local_id = ?", kind, localID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (s *Links) ByRemote(ctx context.Context, kind models.EntityKind, remoteID string) (*models.ExternalLink, error) {
	var link models.ExternalLink
	err := s.db.WithContext(ctx).First(&link, "entity_kind = ? AND remote_id = ?", kind, remoteID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sync.ErrNotFound
		}
		return nil, err
	}
	return &link, nil
}

// Save upserts a link keyed on (kind, local id) and stamps last_synced_at.
// Relinking a local entity to a new remote id overwrites the old mapping.
func (s *Links) Save(ctx context.Context, kind models.EntityKind, localID, remoteID string) (*models.ExternalLink, error) {
	now := time.Now()
	link := models.ExternalLink{
		EntityKind:   kind,
		LocalID:      localID,
		RemoteID:     remoteID,
		LastSyncedAt: &now,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entity_kind"}, {Name: "local_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"remote_id", "last_synced_at", "updated_at"}),
	}).Create(&link).Error
	if err != nil {
		return nil, err
	}
	return s.ByLocal(ctx, kind, localID)
}
