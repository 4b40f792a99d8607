package models

import "time"

// SyncLog is one row of the bounded audit trail. The table keeps the 100 most
// recent entries; older rows are pruned on insert.
type SyncLog struct {
	ID        uint      `json:"id" gorm:"primary_key;auto_increment"`
	Time      time.Time `json:"time" gorm:"not null"`
	Type      string    `json:"type" gorm:"not null"`
	Status    string    `json:"status" gorm:"not null"`
	Message   string    `json:"message" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// SyncStat keeps one row per sync type. LastTotal/LastSynced/LastFailed are a
// snapshot of the most recent run; AllSynced/AllFailed accumulate across runs.
type SyncStat struct {
	Type      string     `json:"type" gorm:"primary_key"`
	LastTotal int        `json:"last_total"`
	LastSynced int       `json:"last_synced"`
	LastFailed int       `json:"last_failed"`
	LastRunAt *time.Time `json:"last_run_at"`
	AllSynced int        `json:"all_synced"`
	AllFailed int        `json:"all_failed"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Setting is a single key/value pair of persisted configuration (tokens,
// toggles, schedule frequency, rate-limit timestamp).
type Setting struct {
	Key       string    `json:"key" gorm:"primary_key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
