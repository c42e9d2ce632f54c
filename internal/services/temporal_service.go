package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "lifeslice/internal/errors"
	"lifeslice/internal/logger"
	"lifeslice/internal/metrics"
	"lifeslice/internal/models"
)

// temporalService runs the periodic evaluators: scheduled-deadline penalties,
// continuous-interval penalties, composite decay, and the daily reset.
//
// Every slice is evaluated independently and idempotently on each sweep. There
// is no per-window lock state; correctness comes from counting automatic
// penalties already recorded in the relevant window, and that count is read
// inside the same transaction as the penalty write.
type temporalService struct {
	db         *gorm.DB
	slices     SliceServicer
	composites CompositeServicer
	loc        *time.Location
	now        func() time.Time
}

// NewTemporalService creates a new TemporalServicer evaluating in the given
// reference timezone.
func NewTemporalService(db *gorm.DB, slices SliceServicer, composites CompositeServicer, loc *time.Location) TemporalServicer {
	return &temporalService{
		db:         db,
		slices:     slices,
		composites: composites,
		loc:        loc,
		now:        time.Now,
	}
}

// startOfDay truncates t to midnight in the reference timezone.
func (s *temporalService) startOfDay(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// sameDay reports whether both instants fall on the same calendar day in the
// reference timezone.
func (s *temporalService) sameDay(a, b time.Time) bool {
	a, b = a.In(s.loc), b.In(s.loc)
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// deadlineFor resolves a scheduled slice's deadline for the given day:
// expected time plus grace period, in the reference timezone.
func (s *temporalService) deadlineFor(slice *models.Slice, day time.Time) (time.Time, error) {
	expected, err := time.Parse("15:04", slice.ExpectedTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expected time %q: %w", slice.ExpectedTime, err)
	}
	day = day.In(s.loc)
	deadline := time.Date(day.Year(), day.Month(), day.Day(), expected.Hour(), expected.Minute(), 0, 0, s.loc)
	return deadline.Add(time.Duration(slice.GracePeriod) * time.Minute), nil
}

// latestUpdate returns the most recent update row for a slice within the
// given transaction, or nil when the slice has no history.
func latestUpdate(tx *gorm.DB, sliceID string) (*models.SliceUpdate, error) {
	var update models.SliceUpdate
	err := tx.Where("slice_id = ?", sliceID).Order("date DESC, created_at DESC").First(&update).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &update, nil
}

// checkScheduledSlice evaluates one scheduled slice and applies any overdue
// penalties as a single aggregate step update.
func (s *temporalService) checkScheduledSlice(slice *models.Slice) (bool, error) {
	if slice.PenaltyInterval <= 0 || slice.PenaltyAmount == 0 {
		logger.Get().Warnw("scheduled slice has no usable penalty configuration", "slug", slice.Slug)
		return false, nil
	}

	now := s.now().In(s.loc)
	applied := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var fresh models.Slice
		if err := tx.Where("id = ?", slice.ID).First(&fresh).Error; err != nil {
			return err
		}

		last, err := latestUpdate(tx, fresh.ID)
		if err != nil {
			return err
		}
		// The user already reported today; nothing is overdue.
		if last != nil && !last.Automatic && s.sameDay(last.Date, now) {
			return nil
		}

		deadline, err := s.deadlineFor(&fresh, now)
		if err != nil {
			return err
		}
		if now.Before(deadline) {
			return nil
		}

		minutesLate := int(now.Sub(deadline).Minutes())
		penaltiesDue := minutesLate / fresh.PenaltyInterval

		// One automatic row can aggregate several penalty steps, so the
		// already-applied count comes from the summed deltas, not the row count.
		var appliedDelta int64
		if err := tx.Model(&models.SliceUpdate{}).
			Where("slice_id = ? AND automatic = ? AND date >= ?", fresh.ID, true, s.startOfDay(now)).
			Select("COALESCE(SUM(delta), 0)").
			Scan(&appliedDelta).Error; err != nil {
			return err
		}
		alreadyApplied := int(appliedDelta) / fresh.PenaltyAmount

		toApply := penaltiesDue - alreadyApplied
		if toApply <= 0 {
			return nil
		}

		note := fmt.Sprintf("missed %s deadline, %d penalty step(s)", fresh.ExpectedTime, toApply)
		if err := s.slices.UpdateByStepsTx(tx, &fresh, toApply*fresh.PenaltyAmount, note, true); err != nil {
			return err
		}
		metrics.PenaltiesApplied.WithLabelValues(fresh.Slug).Add(float64(toApply))
		applied = true
		return nil
	})
	return applied, err
}

// checkContinuousSlice evaluates one continuous slice: penalties accrue for
// every penalty interval past the allowed maximum gap since the last update.
func (s *temporalService) checkContinuousSlice(slice *models.Slice) (bool, error) {
	if slice.PenaltyInterval <= 0 || slice.PenaltyAmount == 0 {
		logger.Get().Warnw("continuous slice has no usable penalty configuration", "slug", slice.Slug)
		return false, nil
	}

	now := s.now().In(s.loc)
	applied := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var fresh models.Slice
		if err := tx.Where("id = ?", slice.ID).First(&fresh).Error; err != nil {
			return err
		}

		last, err := latestUpdate(tx, fresh.ID)
		if err != nil {
			return err
		}
		// Never updated: no baseline to penalize against.
		if last == nil {
			return nil
		}

		minutesSince := int(now.Sub(last.Date).Minutes())
		if minutesSince <= fresh.MaxInterval {
			return nil
		}

		excess := minutesSince - fresh.MaxInterval
		penaltiesDue := excess / fresh.PenaltyInterval

		var alreadyApplied int64
		if err := tx.Model(&models.SliceUpdate{}).
			Where("slice_id = ? AND automatic = ? AND date > ?", fresh.ID, true, last.Date).
			Count(&alreadyApplied).Error; err != nil {
			return err
		}

		toApply := penaltiesDue - int(alreadyApplied)
		if toApply <= 0 {
			return nil
		}

		note := fmt.Sprintf("no update for %d minute(s), %d penalty step(s)", minutesSince, toApply)
		if err := s.slices.UpdateByStepsTx(tx, &fresh, toApply*fresh.PenaltyAmount, note, true); err != nil {
			return err
		}
		metrics.PenaltiesApplied.WithLabelValues(fresh.Slug).Add(float64(toApply))
		applied = true
		return nil
	})
	return applied, err
}

// sweep runs one evaluator over a set of slices, converting per-slice failures
// into log lines so the batch always runs to completion.
func (s *temporalService) sweep(evaluator string, slices []models.Slice, check func(*models.Slice) (bool, error)) TemporalRunResult {
	result := TemporalRunResult{Evaluator: evaluator, Evaluated: len(slices)}
	for i := range slices {
		applied, err := check(&slices[i])
		if err != nil {
			result.Errors++
			logger.Get().Errorw("temporal check failed", "evaluator", evaluator, "slug", slices[i].Slug, "error", err)
			continue
		}
		if applied {
			result.PenaltiesApplied++
		}
	}

	outcome := "ok"
	if result.Errors > 0 {
		outcome = "partial"
	}
	metrics.EvaluatorRuns.WithLabelValues(evaluator, outcome).Inc()

	logger.Get().Infow("temporal sweep complete",
		"evaluator", evaluator,
		"evaluated", result.Evaluated,
		"applied", result.PenaltiesApplied,
		"errors", result.Errors,
	)
	return result
}

// RunScheduledChecks evaluates every scheduled slice against today's deadline.
func (s *temporalService) RunScheduledChecks() TemporalRunResult {
	var slices []models.Slice
	if err := s.db.Where("temporal_type = ?", models.TemporalTypeScheduled).Find(&slices).Error; err != nil {
		logger.Get().Errorw("failed to load scheduled slices", "error", err)
		metrics.EvaluatorRuns.WithLabelValues("scheduled", "error").Inc()
		return TemporalRunResult{Evaluator: "scheduled", Errors: 1}
	}
	return s.sweep("scheduled", slices, s.checkScheduledSlice)
}

// RunContinuousChecks evaluates every continuous slice against its maximum
// update interval.
func (s *temporalService) RunContinuousChecks() TemporalRunResult {
	var slices []models.Slice
	if err := s.db.Where("temporal_type = ?", models.TemporalTypeContinuous).Find(&slices).Error; err != nil {
		logger.Get().Errorw("failed to load continuous slices", "error", err)
		metrics.EvaluatorRuns.WithLabelValues("continuous", "error").Inc()
		return TemporalRunResult{Evaluator: "continuous", Errors: 1}
	}
	return s.sweep("continuous", slices, s.checkContinuousSlice)
}

// RunCompositeDecay decays every composite slice's components.
func (s *temporalService) RunCompositeDecay() TemporalRunResult {
	var slices []models.Slice
	if err := s.db.Where("is_composite = ?", true).Find(&slices).Error; err != nil {
		logger.Get().Errorw("failed to load composite slices", "error", err)
		metrics.EvaluatorRuns.WithLabelValues("decay", "error").Inc()
		return TemporalRunResult{Evaluator: "decay", Errors: 1}
	}
	return s.sweep("decay", slices, func(slice *models.Slice) (bool, error) {
		changed, err := s.composites.DecayComponents(slice.ID)
		return changed > 0, err
	})
}

// RunDailyReset hard-resets every reset_daily slice to index 0 and value 0,
// bypassing the formula.
func (s *temporalService) RunDailyReset() TemporalRunResult {
	var slices []models.Slice
	if err := s.db.Where("reset_daily = ?", true).Find(&slices).Error; err != nil {
		logger.Get().Errorw("failed to load daily-reset slices", "error", err)
		metrics.EvaluatorRuns.WithLabelValues("reset", "error").Inc()
		return TemporalRunResult{Evaluator: "reset", Errors: 1}
	}
	return s.sweep("reset", slices, func(slice *models.Slice) (bool, error) {
		err := s.db.Model(slice).Updates(map[string]interface{}{
			"current_index": 0,
			"current_value": 0,
		}).Error
		if err != nil {
			return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return true, nil
	})
}

// RunAllChecks runs every evaluator once, for operational testing. It must
// produce identical results to the independent scheduled invocations, which
// holds because each evaluator is idempotent on its own.
func (s *temporalService) RunAllChecks() []TemporalRunResult {
	return []TemporalRunResult{
		s.RunScheduledChecks(),
		s.RunContinuousChecks(),
		s.RunCompositeDecay(),
	}
}
