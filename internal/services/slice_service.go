package services

import (
	"errors"
	"math"
	"time"

	"gorm.io/gorm"

	apperrors "lifeslice/internal/errors"
	"lifeslice/internal/formula"
	"lifeslice/internal/logger"
	"lifeslice/internal/metrics"
	"lifeslice/internal/models"
	"lifeslice/internal/pagination"
)

// sliceService handles slice definitions and the slice update engine.
type sliceService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSliceService creates a new SliceServicer.
func NewSliceService(db *gorm.DB) SliceServicer {
	return &sliceService{db: db, now: time.Now}
}

// CreateSlice creates a new slice definition.
func (s *sliceService) CreateSlice(input SliceInput) (*models.Slice, error) {
	if input.Slug == "" || input.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "slug and name are required")
	}

	var count int64
	s.db.Model(&models.Slice{}).Where("slug = ?", input.Slug).Count(&count)
	if count > 0 {
		return nil, apperrors.ErrDuplicateSlug
	}

	slice := &models.Slice{
		Slug:            input.Slug,
		Name:            input.Name,
		IncreaseType:    input.IncreaseType,
		IncreaseParams:  input.IncreaseParams,
		DecreaseType:    input.DecreaseType,
		DecreaseParams:  input.DecreaseParams,
		TemporalType:    input.TemporalType,
		ExpectedTime:    input.ExpectedTime,
		GracePeriod:     input.GracePeriod,
		PenaltyInterval: input.PenaltyInterval,
		PenaltyAmount:   input.PenaltyAmount,
		MaxInterval:     input.MaxInterval,
		ResetDaily:      input.ResetDaily,
		IsComposite:     input.IsComposite,
	}
	if slice.IncreaseType == "" {
		slice.IncreaseType = formula.TypeLinear
	}
	if slice.DecreaseType == "" {
		slice.DecreaseType = formula.TypeLinear
	}
	if slice.TemporalType == "" {
		slice.TemporalType = models.TemporalTypeManual
	}

	if !slice.IsComposite {
		slice.CurrentValue = formula.Value(slice.IncreaseConfig(), 0)
	}

	if err := s.db.Create(slice).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return slice, nil
}

// GetSlices returns a paginated list of slice definitions.
func (s *sliceService) GetSlices(page pagination.PageRequest) (*pagination.PageResponse[models.Slice], error) {
	page.Defaults()

	base := s.db.Model(&models.Slice{})

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var slices []models.Slice
	if err := base.Preload("Components").Order("slug").Scopes(pagination.Paginate(page)).Find(&slices).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(slices, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetSliceByID returns a slice by ID.
func (s *sliceService) GetSliceByID(sliceID string) (*models.Slice, error) {
	var slice models.Slice
	if err := s.db.Preload("Components").Where("id = ?", sliceID).First(&slice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSliceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &slice, nil
}

// GetSliceBySlug returns a slice by its unique slug.
func (s *sliceService) GetSliceBySlug(slug string) (*models.Slice, error) {
	var slice models.Slice
	if err := s.db.Preload("Components").Where("slug = ?", slug).First(&slice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSliceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &slice, nil
}

// UpdateSlice applies a partial update to a slice definition. Nil fields stay
// untouched. Index and value are not touched here; they only move through the
// update engine.
func (s *sliceService) UpdateSlice(sliceID string, input SliceUpdateInput) (*models.Slice, error) {
	slice, err := s.GetSliceByID(sliceID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if input.Name != "" {
		updates["name"] = input.Name
	}
	if input.IncreaseType != "" {
		updates["increase_type"] = input.IncreaseType
		updates["increase_params"] = input.IncreaseParams
	}
	if input.DecreaseType != "" {
		updates["decrease_type"] = input.DecreaseType
		updates["decrease_params"] = input.DecreaseParams
	}
	if input.TemporalType != "" {
		updates["temporal_type"] = input.TemporalType
	}
	if input.ExpectedTime != "" {
		updates["expected_time"] = input.ExpectedTime
	}
	if input.GracePeriod != nil {
		updates["grace_period"] = *input.GracePeriod
	}
	if input.PenaltyInterval != nil {
		updates["penalty_interval"] = *input.PenaltyInterval
	}
	if input.PenaltyAmount != nil {
		updates["penalty_amount"] = *input.PenaltyAmount
	}
	if input.MaxInterval != nil {
		updates["max_interval"] = *input.MaxInterval
	}
	if input.ResetDaily != nil {
		updates["reset_daily"] = *input.ResetDaily
	}
	if len(updates) == 0 {
		return slice, nil
	}

	if err := s.db.Model(slice).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return slice, nil
}

// DeleteSlice soft-deletes a slice definition.
func (s *sliceService) DeleteSlice(sliceID string) error {
	slice, err := s.GetSliceByID(sliceID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(slice).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetSliceStatus returns the read model for one slice, looked up by slug.
func (s *sliceService) GetSliceStatus(slug string) (*SliceStatus, error) {
	slice, err := s.GetSliceBySlug(slug)
	if err != nil {
		return nil, err
	}

	status := &SliceStatus{
		Slug:         slice.Slug,
		Name:         slice.Name,
		CurrentValue: slice.CurrentValue,
		CurrentIndex: slice.CurrentIndex,
		TemporalType: slice.TemporalType,
		IsComposite:  slice.IsComposite,
	}

	var last models.SliceUpdate
	err = s.db.Where("slice_id = ?", slice.ID).Order("date DESC, created_at DESC").First(&last).Error
	if err == nil {
		status.LastUpdateAt = &last.Date
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if slice.IsComposite {
		for _, c := range slice.Components {
			status.Components = append(status.Components, ComponentStatus{
				Key:          c.Key,
				Name:         c.Name,
				CurrentValue: c.CurrentValue,
				MaxValue:     c.MaxValue,
				Weight:       c.Weight,
				DecayType:    string(c.DecayType),
				LastChecked:  c.LastChecked,
			})
		}
	}

	return status, nil
}

// GetSliceUpdates returns the paginated update history of a slice, newest first.
func (s *sliceService) GetSliceUpdates(sliceID string, page pagination.PageRequest) (*pagination.PageResponse[models.SliceUpdate], error) {
	if _, err := s.GetSliceByID(sliceID); err != nil {
		return nil, err
	}

	page.Defaults()
	base := s.db.Model(&models.SliceUpdate{}).Where("slice_id = ?", sliceID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var updates []models.SliceUpdate
	if err := base.Order("date DESC, created_at DESC").Scopes(pagination.Paginate(page)).Find(&updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(updates, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// clampIndex bounds an index to [0, formula.MaxIndex].
func clampIndex(index int) int {
	if index < 0 {
		return 0
	}
	if index > formula.MaxIndex {
		return formula.MaxIndex
	}
	return index
}

// loadUpdatableSlice fetches a slice and rejects composite targets, which have
// no index semantics.
func (s *sliceService) loadUpdatableSlice(tx *gorm.DB, sliceID string) (*models.Slice, error) {
	var slice models.Slice
	if err := tx.Where("id = ?", sliceID).First(&slice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrSliceNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if slice.IsComposite {
		return nil, apperrors.ErrCompositeSlice
	}
	return &slice, nil
}

// applyUpdate writes the audit row and mutates the slice as one unit inside
// the caller's transaction.
func (s *sliceService) applyUpdate(
	tx *gorm.DB,
	slice *models.Slice,
	newIndex, newValue, delta int,
	deltaType models.DeltaType,
	notes string,
	automatic bool,
) error {
	update := &models.SliceUpdate{
		SliceID:     slice.ID,
		Delta:       delta,
		DeltaType:   deltaType,
		ValueBefore: slice.CurrentValue,
		ValueAfter:  newValue,
		IndexBefore: slice.CurrentIndex,
		IndexAfter:  newIndex,
		Date:        s.now(),
		Notes:       notes,
		Automatic:   automatic,
	}
	if err := tx.Create(update).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := tx.Model(slice).Updates(map[string]interface{}{
		"current_index": newIndex,
		"current_value": newValue,
	}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("slice updated",
		"slug", slice.Slug,
		"delta_type", deltaType,
		"delta", delta,
		"value_before", slice.CurrentValue,
		"value_after", newValue,
		"index_before", slice.CurrentIndex,
		"index_after", newIndex,
		"automatic", automatic,
	)

	slice.CurrentIndex = newIndex
	slice.CurrentValue = newValue
	return nil
}

// UpdateByStepsTx applies a step delta to an already-loaded slice inside the
// caller's transaction. Direction picks the increase or decrease curve.
func (s *sliceService) UpdateByStepsTx(tx *gorm.DB, slice *models.Slice, steps int, notes string, automatic bool) error {
	if slice.IsComposite {
		return apperrors.ErrCompositeSlice
	}

	cfg := slice.IncreaseConfig()
	if steps < 0 {
		cfg = slice.DecreaseConfig()
	}

	newIndex := clampIndex(slice.CurrentIndex + steps)
	newValue := formula.Value(cfg, newIndex)

	return s.applyUpdate(tx, slice, newIndex, newValue, steps, models.DeltaTypeSteps, notes, automatic)
}

// UpdateBySteps moves a slice by a signed number of steps along its curve.
func (s *sliceService) UpdateBySteps(sliceID string, steps int, notes string, automatic bool) (*models.Slice, error) {
	var slice *models.Slice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		slice, txErr = s.loadUpdatableSlice(tx, sliceID)
		if txErr != nil {
			return txErr
		}
		return s.UpdateByStepsTx(tx, slice, steps, notes, automatic)
	})
	if err != nil {
		return nil, err
	}
	if !automatic {
		metrics.SliceUpdates.WithLabelValues(string(models.DeltaTypeSteps)).Inc()
	}
	return slice, nil
}

// UpdateByPercentage moves a slice to the index whose value is closest to the
// current value scaled by the given percentage.
func (s *sliceService) UpdateByPercentage(sliceID string, percentage int, notes string) (*models.Slice, error) {
	var slice *models.Slice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		slice, txErr = s.loadUpdatableSlice(tx, sliceID)
		if txErr != nil {
			return txErr
		}

		target := int(math.Floor(float64(slice.CurrentValue) * (1 + float64(percentage)/100)))
		if target < 0 {
			target = 0
		}

		cfg := slice.IncreaseConfig()
		if percentage < 0 {
			cfg = slice.DecreaseConfig()
		}

		newIndex := formula.ClosestIndex(cfg, target, formula.MaxIndex)
		newValue := formula.Value(cfg, newIndex)

		return s.applyUpdate(tx, slice, newIndex, newValue, percentage, models.DeltaTypePercentage, notes, false)
	})
	if err != nil {
		return nil, err
	}
	metrics.SliceUpdates.WithLabelValues(string(models.DeltaTypePercentage)).Inc()
	return slice, nil
}

// UpdateToValue moves a slice to the index whose value is closest to the given
// absolute target.
func (s *sliceService) UpdateToValue(sliceID string, value int, notes string) (*models.Slice, error) {
	if value < 0 {
		return nil, apperrors.ErrNegativeTarget
	}

	var slice *models.Slice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		slice, txErr = s.loadUpdatableSlice(tx, sliceID)
		if txErr != nil {
			return txErr
		}

		cfg := slice.IncreaseConfig()
		if value < slice.CurrentValue {
			cfg = slice.DecreaseConfig()
		}

		newIndex := formula.ClosestIndex(cfg, value, formula.MaxIndex)
		newValue := formula.Value(cfg, newIndex)

		return s.applyUpdate(tx, slice, newIndex, newValue, value, models.DeltaTypeAbsolute, notes, false)
	})
	if err != nil {
		return nil, err
	}
	metrics.SliceUpdates.WithLabelValues(string(models.DeltaTypeAbsolute)).Inc()
	return slice, nil
}
