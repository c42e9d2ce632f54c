package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"lifeslice/internal/models"
	"lifeslice/internal/testutil"
)

// newTemporalFixture wires a temporal service with a fixed clock shared by the
// slice and composite services it drives.
func newTemporalFixture(db *gorm.DB, at time.Time) (*temporalService, *sliceService, *compositeService) {
	clock := func() time.Time { return at }
	slices := &sliceService{db: db, now: clock}
	composites := &compositeService{db: db, now: clock}
	return &temporalService{
		db:         db,
		slices:     slices,
		composites: composites,
		loc:        time.UTC,
		now:        clock,
	}, slices, composites
}

func TestRunScheduledChecks(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("applies_aggregate_penalty", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		// Deadline 09:00 + 30m grace = 09:30; at 10:00 two 15-minute
		// penalty intervals have elapsed.
		svc, _, _ := newTemporalFixture(db, day.Add(10*time.Hour))
		slice := testutil.CreateTestScheduledSlice(t, db, "09:00", 30, 15, -1)
		db.Model(slice).Updates(map[string]interface{}{"current_index": 10, "current_value": 10})

		result := svc.RunScheduledChecks()
		if result.Evaluated != 1 || result.PenaltiesApplied != 1 || result.Errors != 0 {
			t.Fatalf("unexpected result: %+v", result)
		}

		fresh := &models.Slice{}
		testutil.AssertNoError(t, db.Where("id = ?", slice.ID).First(fresh).Error)
		if fresh.CurrentIndex != 8 {
			t.Errorf("expected index 8 after two penalty steps, got %d", fresh.CurrentIndex)
		}

		var updates []models.SliceUpdate
		testutil.AssertNoError(t, db.Where("slice_id = ?", slice.ID).Find(&updates).Error)
		if len(updates) != 1 {
			t.Fatalf("expected one aggregate penalty row, got %d", len(updates))
		}
		if updates[0].Delta != -2 || !updates[0].Automatic {
			t.Errorf("expected automatic delta -2, got %d (automatic=%v)", updates[0].Delta, updates[0].Automatic)
		}
	})

	t.Run("second_sweep_is_idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		svc, _, _ := newTemporalFixture(db, day.Add(10*time.Hour))
		slice := testutil.CreateTestScheduledSlice(t, db, "09:00", 30, 15, -1)
		db.Model(slice).Updates(map[string]interface{}{"current_index": 10, "current_value": 10})

		svc.RunScheduledChecks()
		result := svc.RunScheduledChecks()
		if result.PenaltiesApplied != 0 {
			t.Errorf("expected no penalties on repeat sweep, got %d", result.PenaltiesApplied)
		}

		fresh := &models.Slice{}
		testutil.AssertNoError(t, db.Where("id = ?", slice.ID).First(fresh).Error)
		if fresh.CurrentIndex != 8 {
			t.Errorf("expected index to remain 8, got %d", fresh.CurrentIndex)
		}
	})

	t.Run("later_sweep_applies_only_new_penalties", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		svc, _, _ := newTemporalFixture(db, day.Add(10*time.Hour))
		slice := testutil.CreateTestScheduledSlice(t, db, "09:00", 30, 15, -1)
		db.Model(slice).Updates(map[string]interface{}{"current_index": 10, "current_value": 10})

		svc.RunScheduledChecks()

		// Half an hour later two more intervals have elapsed.
		later, _, _ := newTemporalFixture(db, day.Add(10*time.Hour+30*time.Minute))
		later.RunScheduledChecks()

		fresh := &models.Slice{}
		testutil.AssertNoError(t, db.Where("id = ?", slice.ID).First(fresh).Error)
		if fresh.CurrentIndex != 6 {
			t.Errorf("expected index 6 after four total penalty steps, got %d", fresh.CurrentIndex)
		}
	})

	t.Run("before_deadline_no_penalty", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		svc, _, _ := newTemporalFixture(db, day.Add(9*time.Hour))
		testutil.CreateTestScheduledSlice(t, db, "09:00", 30, 15, -1)

		result := svc.RunScheduledChecks()
		if result.PenaltiesApplied != 0 {
			t.Errorf("expected no penalties before the deadline, got %d", result.PenaltiesApplied)
		}
	})

	t.Run("report_today_clears_deadline", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		svc, slices, _ := newTemporalFixture(db, day.Add(10*time.Hour))
		slice := testutil.CreateTestScheduledSlice(t, db, "09:00", 30, 15, -1)

		_, err := slices.UpdateBySteps(slice.ID, 1, "reported", false)
		testutil.AssertNoError(t, err)

		result := svc.RunScheduledChecks()
		if result.PenaltiesApplied != 0 {
			t.Errorf("expected no penalties after reporting today, got %d", result.PenaltiesApplied)
		}
	})

	t.Run("invalid_expected_time_is_batch_item_error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		svc, _, _ := newTemporalFixture(db, day.Add(10*time.Hour))
		testutil.CreateTestScheduledSlice(t, db, "not-a-time", 30, 15, -1)
		good := testutil.CreateTestScheduledSlice(t, db, "09:00", 30, 15, -1)
		db.Model(good).Updates(map[string]interface{}{"current_index": 10, "current_value": 10})

		result := svc.RunScheduledChecks()
		if result.Errors != 1 {
			t.Errorf("expected 1 batch item error, got %d", result.Errors)
		}
		// The bad slice must not block the good one.
		if result.PenaltiesApplied != 1 {
			t.Errorf("expected the valid slice to be penalized, got %d", result.PenaltiesApplied)
		}
	})
}

func TestRunContinuousChecks(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("applies_penalty_past_max_interval", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		// Max gap 180m, one penalty per 60m past it.
		svc, _, _ := newTemporalFixture(db, day.Add(13*time.Hour))
		slice := testutil.CreateTestContinuousSlice(t, db, 180, 60, -1)
		db.Model(slice).Updates(map[string]interface{}{"current_index": 10, "current_value": 10})

		// Last update at 08:00; at 13:00 the gap is 300m, 120m over: 2 penalties.
		testutil.CreateTestSliceUpdate(t, db, slice.ID, day.Add(8*time.Hour), false)

		result := svc.RunContinuousChecks()
		if result.PenaltiesApplied != 1 {
			t.Fatalf("unexpected result: %+v", result)
		}

		fresh := &models.Slice{}
		testutil.AssertNoError(t, db.Where("id = ?", slice.ID).First(fresh).Error)
		if fresh.CurrentIndex != 8 {
			t.Errorf("expected index 8, got %d", fresh.CurrentIndex)
		}
	})

	t.Run("penalty_restarts_the_interval", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		svc, _, _ := newTemporalFixture(db, day.Add(13*time.Hour))
		slice := testutil.CreateTestContinuousSlice(t, db, 180, 60, -1)
		db.Model(slice).Updates(map[string]interface{}{"current_index": 10, "current_value": 10})
		testutil.CreateTestSliceUpdate(t, db, slice.ID, day.Add(8*time.Hour), false)

		svc.RunScheduledChecks() // unrelated evaluator, must not touch this slice
		svc.RunContinuousChecks()

		// The penalty row is now the baseline; immediately after, nothing is due.
		repeat := svc.RunContinuousChecks()
		if repeat.PenaltiesApplied != 0 {
			t.Errorf("expected no penalties right after a penalty, got %d", repeat.PenaltiesApplied)
		}
	})

	t.Run("never_updated_is_skipped", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		svc, _, _ := newTemporalFixture(db, day.Add(13*time.Hour))
		testutil.CreateTestContinuousSlice(t, db, 180, 60, -1)

		result := svc.RunContinuousChecks()
		if result.PenaltiesApplied != 0 {
			t.Errorf("expected no penalties without a baseline, got %d", result.PenaltiesApplied)
		}
	})

	t.Run("within_max_interval_no_penalty", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		svc, _, _ := newTemporalFixture(db, day.Add(10*time.Hour))
		slice := testutil.CreateTestContinuousSlice(t, db, 180, 60, -1)
		testutil.CreateTestSliceUpdate(t, db, slice.ID, day.Add(8*time.Hour), false)

		result := svc.RunContinuousChecks()
		if result.PenaltiesApplied != 0 {
			t.Errorf("expected no penalties within the max interval, got %d", result.PenaltiesApplied)
		}
	})
}

func TestRunCompositeDecay(t *testing.T) {
	t.Run("decays_composite_slices", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		checked := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
		svc, _, _ := newTemporalFixture(db, checked.Add(48*time.Hour))

		slice := testutil.CreateTestCompositeSlice(t, db)
		component := testutil.CreateTestComponent(t, db, slice.ID, "dishes", 100, 100, models.DecayTypeDaily, 25)
		testutil.AssertNoError(t, db.Model(component).Updates(map[string]interface{}{
			"current_value": 100,
			"last_checked":  checked,
		}).Error)

		result := svc.RunCompositeDecay()
		if result.PenaltiesApplied != 1 {
			t.Fatalf("unexpected result: %+v", result)
		}

		fresh := &models.SliceComponent{}
		testutil.AssertNoError(t, db.Where("id = ?", component.ID).First(fresh).Error)
		if fresh.CurrentValue != 50 {
			t.Errorf("expected value 50 after two periods, got %d", fresh.CurrentValue)
		}
	})
}

func TestRunDailyReset(t *testing.T) {
	t.Run("resets_flagged_slices_without_history", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)

		svc, _, _ := newTemporalFixture(db, time.Date(2026, 3, 11, 0, 0, 30, 0, time.UTC))

		slice := testutil.CreateTestSlice(t, db)
		db.Model(slice).Updates(map[string]interface{}{
			"current_index": 7,
			"current_value": 7,
			"reset_daily":   true,
		})
		untouched := testutil.CreateTestSlice(t, db)
		db.Model(untouched).Updates(map[string]interface{}{"current_index": 4, "current_value": 4})

		result := svc.RunDailyReset()
		if result.Evaluated != 1 {
			t.Fatalf("expected only flagged slices evaluated, got %d", result.Evaluated)
		}

		fresh := &models.Slice{}
		testutil.AssertNoError(t, db.Where("id = ?", slice.ID).First(fresh).Error)
		if fresh.CurrentIndex != 0 || fresh.CurrentValue != 0 {
			t.Errorf("expected hard reset to 0/0, got %d/%d", fresh.CurrentIndex, fresh.CurrentValue)
		}

		// Resets bypass the update engine and leave no history row.
		var count int64
		testutil.AssertNoError(t, db.Model(&models.SliceUpdate{}).Where("slice_id = ?", slice.ID).Count(&count).Error)
		if count != 0 {
			t.Errorf("expected no history rows from a reset, got %d", count)
		}

		other := &models.Slice{}
		testutil.AssertNoError(t, db.Where("id = ?", untouched.ID).First(other).Error)
		if other.CurrentIndex != 4 {
			t.Errorf("expected unflagged slice untouched, got index %d", other.CurrentIndex)
		}
	})
}
