package model

import "time"

// Faculty represents a registered faculty member.
type Faculty struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	Name           string    `gorm:"size:256;not null;index:idx_faculty_directory,priority:2"`
	Email          string    `gorm:"uniqueIndex;size:256;not null"`
	Department     string    `gorm:"size:256;not null;index:idx_faculty_directory,priority:1"`
	OfficeLocation *string   `gorm:"size:256"`
	PasswordHash   string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`

	// Associations
	StatusUpdates []StatusUpdate `gorm:"foreignKey:FacultyID;constraint:OnDelete:RESTRICT"`
}

// Office returns the office location or an empty string.
func (f Faculty) Office() string {
	if f.OfficeLocation == nil {
		return ""
	}
	return *f.OfficeLocation
}
