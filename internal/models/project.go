package models

import (
	"time"
)

// Project is the local grouping that batches and orders hang off.
type Project struct {
	ID          string `gorm:"type:varchar(36);primaryKey"`
	Name        string `gorm:"type:varchar(200);not null"`
	Description string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index"`
}

func (Project) TableName() string {
	return "projects"
}
