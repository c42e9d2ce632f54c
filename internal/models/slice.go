package models

import (
	"lifeslice/internal/formula"
)

// TemporalType controls how a slice is treated by the temporal evaluators.
type TemporalType string

const (
	// TemporalTypeManual slices change only through explicit user updates.
	TemporalTypeManual TemporalType = "manual"
	// TemporalTypeScheduled slices must be reported by a daily deadline.
	TemporalTypeScheduled TemporalType = "scheduled"
	// TemporalTypeContinuous slices must be updated at least every MaxInterval minutes.
	TemporalTypeContinuous TemporalType = "continuous"
)

// Slice represents one tracked life-area metric. Its current value is derived
// from CurrentIndex through the increase/decrease curve, except for composite
// slices whose value is the weighted aggregate of their components.
type Slice struct {
	Base
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`
	Name string `gorm:"not null" json:"name"`

	IncreaseType   formula.Type   `gorm:"not null;default:'linear'" json:"increase_type"`
	IncreaseParams formula.Params `gorm:"serializer:json" json:"increase_params"`
	DecreaseType   formula.Type   `gorm:"not null;default:'linear'" json:"decrease_type"`
	DecreaseParams formula.Params `gorm:"serializer:json" json:"decrease_params"`

	// CurrentValue caches floor(formula(CurrentIndex)) for fast reads; it is
	// recomputed on every update and never drifts from the index.
	CurrentIndex int `gorm:"not null;default:0" json:"current_index"`
	CurrentValue int `gorm:"not null;default:0" json:"current_value"`

	TemporalType    TemporalType `gorm:"not null;default:'manual'" json:"temporal_type"`
	ExpectedTime    string       `gorm:"size:5" json:"expected_time,omitempty"` // "HH:MM"
	GracePeriod     int          `gorm:"default:0" json:"grace_period"`         // minutes
	PenaltyInterval int          `gorm:"default:60" json:"penalty_interval"`    // minutes
	PenaltyAmount   int          `gorm:"default:-1" json:"penalty_amount"`      // step delta per penalty
	MaxInterval     int          `gorm:"default:0" json:"max_interval"`         // minutes, continuous only
	ResetDaily      bool         `gorm:"default:false" json:"reset_daily"`

	IsComposite bool `gorm:"default:false" json:"is_composite"`

	// Relationships
	Components []SliceComponent `gorm:"foreignKey:SliceID" json:"components,omitempty"`
	Updates    []SliceUpdate    `gorm:"foreignKey:SliceID" json:"updates,omitempty"`
}

// IncreaseConfig returns the formula configuration used when moving up.
func (s *Slice) IncreaseConfig() formula.Config {
	return formula.Config{Type: s.IncreaseType, Params: s.IncreaseParams}
}

// DecreaseConfig returns the formula configuration used when moving down.
func (s *Slice) DecreaseConfig() formula.Config {
	return formula.Config{Type: s.DecreaseType, Params: s.DecreaseParams}
}
