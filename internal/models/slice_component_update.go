package models

import "time"

// SliceComponentUpdate is an immutable audit record of one component value
// change, whether a manual check-off or an automatic decay. Append-only.
type SliceComponentUpdate struct {
	Base
	ComponentID string `gorm:"type:uuid;not null;index" json:"component_id"`

	ValueBefore int `gorm:"not null" json:"value_before"`
	ValueAfter  int `gorm:"not null" json:"value_after"`

	Date  time.Time `gorm:"not null;index" json:"date"`
	Notes string    `json:"notes,omitempty"`

	Component SliceComponent `gorm:"foreignKey:ComponentID" json:"-"`
}
