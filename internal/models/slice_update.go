package models

import "time"

// DeltaType tags how a slice update's delta is interpreted.
type DeltaType string

const (
	DeltaTypeSteps      DeltaType = "steps"
	DeltaTypePercentage DeltaType = "percentage"
	DeltaTypeAbsolute   DeltaType = "absolute"
)

// SliceUpdate is an immutable audit record of one value change to a slice.
// Rows are append-only; the history is the source of truth for "has the user
// reported today / recently" checks in the temporal evaluators.
type SliceUpdate struct {
	Base
	SliceID string `gorm:"type:uuid;not null;index" json:"slice_id"`

	Delta     int       `gorm:"not null" json:"delta"`
	DeltaType DeltaType `gorm:"not null" json:"delta_type"`

	ValueBefore int `gorm:"not null" json:"value_before"`
	ValueAfter  int `gorm:"not null" json:"value_after"`
	IndexBefore int `gorm:"not null" json:"index_before"`
	IndexAfter  int `gorm:"not null" json:"index_after"`

	Date  time.Time `gorm:"not null;index" json:"date"`
	Notes string    `json:"notes,omitempty"`

	// Automatic is true for system-generated penalties, false for
	// user-initiated updates.
	Automatic bool `gorm:"not null;default:false;index" json:"automatic"`

	Slice Slice `gorm:"foreignKey:SliceID" json:"-"`
}
