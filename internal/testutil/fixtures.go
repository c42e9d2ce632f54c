package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"lifeslice/internal/formula"
	"lifeslice/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Float is a convenience for building optional formula parameters.
func Float(v float64) *float64 { return &v }

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    fmt.Sprintf("user%d@test.com", nextID()),
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestSlice creates a manual linear slice at index 0.
func CreateTestSlice(t *testing.T, db *gorm.DB) *models.Slice {
	t.Helper()
	return CreateTestSliceWithConfig(t, db,
		formula.Config{Type: formula.TypeLinear},
		formula.Config{Type: formula.TypeLinear},
	)
}

// CreateTestSliceWithConfig creates a manual slice with the given increase and
// decrease curves, at index 0.
func CreateTestSliceWithConfig(t *testing.T, db *gorm.DB, increase, decrease formula.Config) *models.Slice {
	t.Helper()

	n := nextID()
	slice := &models.Slice{
		Slug:            fmt.Sprintf("test-slice-%d", n),
		Name:            fmt.Sprintf("Test Slice %d", n),
		IncreaseType:    increase.Type,
		IncreaseParams:  increase.Params,
		DecreaseType:    decrease.Type,
		DecreaseParams:  decrease.Params,
		TemporalType:    models.TemporalTypeManual,
		PenaltyInterval: 60,
		PenaltyAmount:   -1,
	}
	slice.CurrentValue = formula.Value(increase, 0)
	if err := db.Create(slice).Error; err != nil {
		t.Fatalf("failed to create test slice: %v", err)
	}
	return slice
}

// CreateTestScheduledSlice creates a scheduled linear slice with the given
// deadline parameters.
func CreateTestScheduledSlice(t *testing.T, db *gorm.DB, expectedTime string, gracePeriod, penaltyInterval, penaltyAmount int) *models.Slice {
	t.Helper()

	n := nextID()
	slice := &models.Slice{
		Slug:            fmt.Sprintf("test-scheduled-%d", n),
		Name:            fmt.Sprintf("Test Scheduled %d", n),
		IncreaseType:    formula.TypeLinear,
		DecreaseType:    formula.TypeLinear,
		TemporalType:    models.TemporalTypeScheduled,
		ExpectedTime:    expectedTime,
		GracePeriod:     gracePeriod,
		PenaltyInterval: penaltyInterval,
		PenaltyAmount:   penaltyAmount,
	}
	if err := db.Create(slice).Error; err != nil {
		t.Fatalf("failed to create test scheduled slice: %v", err)
	}
	return slice
}

// CreateTestContinuousSlice creates a continuous linear slice with the given
// interval parameters.
func CreateTestContinuousSlice(t *testing.T, db *gorm.DB, maxInterval, penaltyInterval, penaltyAmount int) *models.Slice {
	t.Helper()

	n := nextID()
	slice := &models.Slice{
		Slug:            fmt.Sprintf("test-continuous-%d", n),
		Name:            fmt.Sprintf("Test Continuous %d", n),
		IncreaseType:    formula.TypeLinear,
		DecreaseType:    formula.TypeLinear,
		TemporalType:    models.TemporalTypeContinuous,
		MaxInterval:     maxInterval,
		PenaltyInterval: penaltyInterval,
		PenaltyAmount:   penaltyAmount,
	}
	if err := db.Create(slice).Error; err != nil {
		t.Fatalf("failed to create test continuous slice: %v", err)
	}
	return slice
}

// CreateTestCompositeSlice creates a composite slice with no components.
func CreateTestCompositeSlice(t *testing.T, db *gorm.DB) *models.Slice {
	t.Helper()

	n := nextID()
	slice := &models.Slice{
		Slug:         fmt.Sprintf("test-composite-%d", n),
		Name:         fmt.Sprintf("Test Composite %d", n),
		IncreaseType: formula.TypeLinear,
		DecreaseType: formula.TypeLinear,
		TemporalType: models.TemporalTypeManual,
		IsComposite:  true,
	}
	if err := db.Create(slice).Error; err != nil {
		t.Fatalf("failed to create test composite slice: %v", err)
	}
	return slice
}

// CreateTestComponent adds a component to a composite slice. LastChecked is
// left nil; tests set it when decay timing matters.
func CreateTestComponent(t *testing.T, db *gorm.DB, sliceID, key string, weight float64, maxValue int, decayType models.DecayType, decayRate float64) *models.SliceComponent {
	t.Helper()

	component := &models.SliceComponent{
		SliceID:   sliceID,
		Key:       key,
		Name:      fmt.Sprintf("Component %s", key),
		Weight:    weight,
		MaxValue:  maxValue,
		DecayType: decayType,
		DecayRate: decayRate,
	}
	if err := db.Create(component).Error; err != nil {
		t.Fatalf("failed to create test component: %v", err)
	}
	return component
}

// CreateTestSliceUpdate writes a history row for a slice with the given date
// and automatic flag.
func CreateTestSliceUpdate(t *testing.T, db *gorm.DB, sliceID string, date time.Time, automatic bool) *models.SliceUpdate {
	t.Helper()

	update := &models.SliceUpdate{
		SliceID:   sliceID,
		Delta:     1,
		DeltaType: models.DeltaTypeSteps,
		Date:      date,
		Automatic: automatic,
	}
	if err := db.Create(update).Error; err != nil {
		t.Fatalf("failed to create test slice update: %v", err)
	}
	return update
}
