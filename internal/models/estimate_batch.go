package models

import (
	"time"

	"gorm.io/datatypes"
)

// EstimateBatch is an append-only snapshot of a submitted activity set with the
// estimator results merged in. Rows are never updated; the latest batch per
// project is the project's current state.
type EstimateBatch struct {
	ID         string         `gorm:"type:varchar(36);primaryKey"`
	ProjectID  string         `gorm:"type:varchar(36);not null;index:idx_batches_project_created,priority:1"`
	Activities datatypes.JSON `gorm:"not null"`

	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_batches_project_created,priority:2"`
}

func (EstimateBatch) TableName() string {
	return "project_estimate_batches"
}
