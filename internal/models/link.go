package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntityKind distinguishes what an ExternalLink binds.
type EntityKind string

const (
	EntityProduct EntityKind = "product"
	EntityOrder   EntityKind = "order"
)

// ExternalLink binds a local entity to its Nhanh.vn counterpart. At most one
// remote id exists per (kind, local id); lookups work in both directions.
type ExternalLink struct {
	ID           string     `json:"id" gorm:"type:uuid;primary_key"`
	EntityKind   EntityKind `json:"entity_kind" gorm:"not null;uniqueIndex:idx_links_local,priority:1;index:idx_links_remote,priority:1"`
	LocalID      string     `json:"local_id" gorm:"not null;uniqueIndex:idx_links_local,priority:2"`
	RemoteID     string     `json:"remote_id" gorm:"not null;index:idx_links_remote,priority:2"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (l *ExternalLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}
