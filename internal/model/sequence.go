package model

import (
	"time"

	"github.com/google/uuid"
)

// Sequence is a per-organization counter backing PR and PO numbers
type Sequence struct {
	OrganizationID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name           string    `gorm:"type:varchar(50);primaryKey"`
	Value          int64     `gorm:"not null;default:0"`
	UpdatedAt      time.Time
}
