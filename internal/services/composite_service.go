package services

import (
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	apperrors "lifeslice/internal/errors"
	"lifeslice/internal/logger"
	"lifeslice/internal/metrics"
	"lifeslice/internal/models"
)

// compositeService handles weighted aggregation of composite slices.
type compositeService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCompositeService creates a new CompositeServicer.
func NewCompositeService(db *gorm.DB) CompositeServicer {
	return &compositeService{db: db, now: time.Now}
}

// decayedValue applies fractional decay to a component value as of the given
// time. A component that has never been checked contributes 0.
func decayedValue(c *models.SliceComponent, at time.Time) float64 {
	if c.LastChecked == nil {
		return 0
	}

	periods := at.Sub(*c.LastChecked).Seconds() / c.PeriodDuration().Seconds()
	if periods < 0 {
		periods = 0
	}

	v := float64(c.CurrentValue) - periods*c.DecayRate
	if v < 0 {
		return 0
	}
	return v
}

// CalculateCompositeValue computes the weighted aggregate over the slice's
// loaded components. Weights are on an arbitrary positive scale and normalized
// here; a zero total weight yields 0.
func (s *compositeService) CalculateCompositeValue(slice *models.Slice, at time.Time) int {
	var weightedSum, totalWeight float64
	for i := range slice.Components {
		c := &slice.Components[i]
		weightedSum += decayedValue(c, at) * c.Weight / 100
		totalWeight += c.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return int(math.Floor(weightedSum * 100 / totalWeight))
}

// loadComposite fetches a slice with components and rejects non-composite targets.
func (s *compositeService) loadComposite(tx *gorm.DB, sliceID string) (*models.Slice, error) {
	var slice models.Slice
	if err := tx.Preload("Components").Where("id = ?", sliceID).First(&slice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSliceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !slice.IsComposite {
		return nil, apperrors.ErrNotCompositeSlice
	}
	return &slice, nil
}

// persistCompositeValue recomputes the aggregate from the slice's loaded
// components and writes the derived total plus its audit row. Only this path
// ever writes a composite slice's current value.
func (s *compositeService) persistCompositeValue(tx *gorm.DB, slice *models.Slice, notes string, automatic bool) (int, error) {
	newValue := s.CalculateCompositeValue(slice, s.now())
	if newValue == slice.CurrentValue {
		return newValue, nil
	}

	update := &models.SliceUpdate{
		SliceID:     slice.ID,
		Delta:       newValue,
		DeltaType:   models.DeltaTypeAbsolute,
		ValueBefore: slice.CurrentValue,
		ValueAfter:  newValue,
		IndexBefore: slice.CurrentIndex,
		IndexAfter:  slice.CurrentIndex,
		Date:        s.now(),
		Notes:       notes,
		Automatic:   automatic,
	}
	if err := tx.Create(update).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := tx.Model(slice).Update("current_value", newValue).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	slice.CurrentValue = newValue
	return newValue, nil
}

// applyComponentUpdate writes the component audit row and mutates the
// component as one unit. Check-offs move LastChecked; decay never does.
func (s *compositeService) applyComponentUpdate(tx *gorm.DB, c *models.SliceComponent, newValue int, notes string, checkOff bool) error {
	update := &models.SliceComponentUpdate{
		ComponentID: c.ID,
		ValueBefore: c.CurrentValue,
		ValueAfter:  newValue,
		Date:        s.now(),
		Notes:       notes,
	}
	if err := tx.Create(update).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	fields := map[string]interface{}{"current_value": newValue}
	if checkOff {
		now := s.now()
		fields["last_checked"] = now
		c.LastChecked = &now
	}
	if err := tx.Model(c).Updates(fields).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	c.CurrentValue = newValue
	return nil
}

// AddComponent attaches a new component to a composite slice. The component
// starts unchecked and contributes 0 until its first check-off, so the parent
// aggregate is recomputed to reflect the new weight distribution.
func (s *compositeService) AddComponent(sliceID string, input ComponentInput) (*models.SliceComponent, error) {
	if input.Key == "" || input.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "component key and name are required")
	}
	if input.Weight <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "component weight must be positive")
	}
	if input.MaxValue <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "component max value must be positive")
	}

	component := &models.SliceComponent{
		SliceID:   sliceID,
		Key:       input.Key,
		Name:      input.Name,
		Weight:    input.Weight,
		MaxValue:  input.MaxValue,
		DecayType: input.DecayType,
		DecayRate: input.DecayRate,
	}
	if component.DecayType == "" {
		component.DecayType = models.DecayTypeDaily
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		slice, err := s.loadComposite(tx, sliceID)
		if err != nil {
			return err
		}
		for _, existing := range slice.Components {
			if existing.Key == input.Key {
				return apperrors.ErrDuplicateComponentKey
			}
		}

		if err := tx.Create(component).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		slice.Components = append(slice.Components, *component)
		_, err = s.persistCompositeValue(tx, slice, "component added", false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return component, nil
}

// UpdateComponent sets a component's value (defaulting to its max value, a
// check-off) and recomputes the parent's aggregate, all in one transaction.
func (s *compositeService) UpdateComponent(sliceID, key string, value *int, notes string) (*models.SliceComponent, error) {
	var component *models.SliceComponent
	err := s.db.Transaction(func(tx *gorm.DB) error {
		slice, err := s.loadComposite(tx, sliceID)
		if err != nil {
			return err
		}

		for i := range slice.Components {
			if slice.Components[i].Key == key {
				component = &slice.Components[i]
				break
			}
		}
		if component == nil {
			return apperrors.ErrComponentNotFound
		}

		newValue := component.MaxValue
		if value != nil {
			newValue = *value
		}
		if newValue < 0 || newValue > component.MaxValue {
			return apperrors.ErrComponentOutOfRange
		}

		if err := s.applyComponentUpdate(tx, component, newValue, notes, true); err != nil {
			return err
		}

		_, err = s.persistCompositeValue(tx, slice, notes, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return component, nil
}

// UpdateMultipleComponents checks off several components by key. Unknown keys
// are skipped with a warning; the parent aggregate is recomputed once at the
// end. Returns the number of components updated.
func (s *compositeService) UpdateMultipleComponents(sliceID string, keys []string, notes string) (int, error) {
	updated := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		slice, err := s.loadComposite(tx, sliceID)
		if err != nil {
			return err
		}

		byKey := make(map[string]*models.SliceComponent, len(slice.Components))
		for i := range slice.Components {
			byKey[slice.Components[i].Key] = &slice.Components[i]
		}

		for _, key := range keys {
			component, ok := byKey[key]
			if !ok {
				logger.Get().Warnw("unknown component key skipped", "slug", slice.Slug, "key", key)
				continue
			}
			if err := s.applyComponentUpdate(tx, component, component.MaxValue, notes, true); err != nil {
				return err
			}
			updated++
		}

		if updated == 0 {
			return nil
		}
		_, err = s.persistCompositeValue(tx, slice, notes, false)
		return err
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// GetComponentStatus returns the per-component read model for a composite slice.
func (s *compositeService) GetComponentStatus(sliceID string) ([]ComponentStatus, error) {
	slice, err := s.loadComposite(s.db, sliceID)
	if err != nil {
		return nil, err
	}

	statuses := make([]ComponentStatus, 0, len(slice.Components))
	for _, c := range slice.Components {
		statuses = append(statuses, ComponentStatus{
			Key:          c.Key,
			Name:         c.Name,
			CurrentValue: c.CurrentValue,
			MaxValue:     c.MaxValue,
			Weight:       c.Weight,
			DecayType:    string(c.DecayType),
			LastChecked:  c.LastChecked,
		})
	}
	return statuses, nil
}

// RecalculateComposite recomputes and persists one composite slice's value.
func (s *compositeService) RecalculateComposite(sliceID string) (int, error) {
	var value int
	err := s.db.Transaction(func(tx *gorm.DB) error {
		slice, err := s.loadComposite(tx, sliceID)
		if err != nil {
			return err
		}
		value, err = s.persistCompositeValue(tx, slice, "recalculation", true)
		return err
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

// DecayComponents applies whole-period decay to each component of a composite
// slice. A component decays only when at least one full period has elapsed
// since it was last checked; the decay amount is floor(periods * rate), and
// the floor of 0 is never crossed. Decay intentionally does not move
// LastChecked, only explicit check-offs do. The parent aggregate is
// recomputed once when any component changed.
func (s *compositeService) DecayComponents(sliceID string) (int, error) {
	changed := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		slice, err := s.loadComposite(tx, sliceID)
		if err != nil {
			return err
		}

		for i := range slice.Components {
			c := &slice.Components[i]
			if c.LastChecked == nil || c.CurrentValue <= 0 {
				continue
			}

			periods := s.now().Sub(*c.LastChecked).Seconds() / c.PeriodDuration().Seconds()
			if periods < 1 {
				continue
			}

			decay := int(math.Floor(periods * c.DecayRate))
			if decay <= 0 {
				continue
			}

			newValue := c.CurrentValue - decay
			if newValue < 0 {
				newValue = 0
			}
			if newValue == c.CurrentValue {
				continue
			}

			if err := s.applyComponentUpdate(tx, c, newValue, "automatic decay", false); err != nil {
				return err
			}
			metrics.DecayEvents.Inc()
			changed++
		}

		if changed == 0 {
			return nil
		}
		_, err = s.persistCompositeValue(tx, slice, "component decay", true)
		return err
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}

// RecalculateAllCompositeSlices recomputes every composite slice. Per-slice
// failures are logged and the batch continues.
func (s *compositeService) RecalculateAllCompositeSlices() error {
	var slices []models.Slice
	if err := s.db.Where("is_composite = ?", true).Find(&slices).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	for _, slice := range slices {
		if _, err := s.RecalculateComposite(slice.ID); err != nil {
			logger.Get().Errorw("composite recalculation failed", "slug", slice.Slug, "error", err)
		}
	}
	return nil
}
