package model

import "time"

// StatusUpdate is one append-only entry of a faculty member's status log.
// The status message is not stored; it is derived from StatusCode on read.
type StatusUpdate struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	FacultyID         int64     `gorm:"not null;index:idx_status_updates_latest,priority:1"`
	StatusCode        int       `gorm:"not null"`
	CustomMessage     string    `gorm:"not null"`
	EstimatedDuration int       `gorm:"not null"` // minutes
	CreatedAt         time.Time `gorm:"not null;index:idx_status_updates_latest,priority:2,sort:desc"`
}
