package models

import "time"

// DecayType is the period unit used when decaying a component.
type DecayType string

const (
	DecayTypeHourly DecayType = "hourly"
	DecayTypeDaily  DecayType = "daily"
	DecayTypeWeekly DecayType = "weekly"
)

// SliceComponent is a named sub-metric of a composite slice. Weights are on an
// arbitrary positive scale and are normalized at aggregation time.
type SliceComponent struct {
	Base
	SliceID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_slice_component_key" json:"slice_id"`
	Key     string `gorm:"not null;uniqueIndex:idx_slice_component_key" json:"key"`
	Name    string `gorm:"not null" json:"name"`

	Weight       float64 `gorm:"not null" json:"weight"`
	CurrentValue int     `gorm:"not null;default:0" json:"current_value"`
	MaxValue     int     `gorm:"not null;default:100" json:"max_value"`

	DecayType DecayType `gorm:"not null;default:'daily'" json:"decay_type"`
	DecayRate float64   `gorm:"not null;default:0" json:"decay_rate"` // units lost per elapsed period

	// LastChecked is set only by explicit check-offs, never by decay.
	LastChecked *time.Time `json:"last_checked,omitempty"`

	// Relationships
	Slice   Slice                  `gorm:"foreignKey:SliceID" json:"-"`
	Updates []SliceComponentUpdate `gorm:"foreignKey:ComponentID" json:"updates,omitempty"`
}

// PeriodDuration returns the wall-clock length of one decay period.
func (c *SliceComponent) PeriodDuration() time.Duration {
	switch c.DecayType {
	case DecayTypeHourly:
		return time.Hour
	case DecayTypeWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
