package store

import (
	"fmt"
	"time"

	"faculty-availability-backend/internal/model"
	"faculty-availability-backend/internal/status"
)

// Projection is the read-side view of a faculty member and their current
// status. It is always recomputed from the faculty row and its latest update.
type Projection struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Department        string    `json:"department"`
	OfficeLocation    string    `json:"office_location"`
	StatusCode        int       `json:"status_code"`
	StatusMessage     string    `json:"status_message"`
	CustomMessage     string    `json:"custom_message"`
	EstimatedDuration int       `json:"estimated_duration"`
	LastUpdated       time.Time `json:"last_updated"`
	QRURL             string    `json:"qr_url"`
}

// Project merges a faculty row with its latest update. A nil update yields the
// synthetic default: Unavailable since the faculty member was created.
func Project(f model.Faculty, latest *model.StatusUpdate) Projection {
	p := Projection{
		ID:             f.ID,
		Name:           f.Name,
		Email:          f.Email,
		Department:     f.Department,
		OfficeLocation: f.Office(),
		StatusCode:     int(status.Unavailable),
		LastUpdated:    f.CreatedAt.UTC(),
		QRURL:          fmt.Sprintf("/api/qr/%d", f.ID),
	}
	if latest != nil {
		p.StatusCode = latest.StatusCode
		p.CustomMessage = latest.CustomMessage
		p.EstimatedDuration = latest.EstimatedDuration
		p.LastUpdated = latest.CreatedAt.UTC()
	}
	p.StatusMessage = status.Code(p.StatusCode).Message()
	return p
}
