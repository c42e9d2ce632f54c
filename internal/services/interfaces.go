package services

import (
	"time"

	"gorm.io/gorm"

	"lifeslice/internal/formula"
	"lifeslice/internal/models"
	"lifeslice/internal/pagination"
)

// SliceInput holds the fields for creating or updating a slice definition.
type SliceInput struct {
	Slug string
	Name string

	IncreaseType   formula.Type
	IncreaseParams formula.Params
	DecreaseType   formula.Type
	DecreaseParams formula.Params

	TemporalType    models.TemporalType
	ExpectedTime    string
	GracePeriod     int
	PenaltyInterval int
	PenaltyAmount   int
	MaxInterval     int
	ResetDaily      bool

	IsComposite bool
}

// ComponentStatus is the read model for one component of a composite slice.
type ComponentStatus struct {
	Key          string     `json:"key"`
	Name         string     `json:"name"`
	CurrentValue int        `json:"current_value"`
	MaxValue     int        `json:"max_value"`
	Weight       float64    `json:"weight"`
	DecayType    string     `json:"decay_type"`
	LastChecked  *time.Time `json:"last_checked,omitempty"`
}

// SliceStatus is the read model returned for status queries.
type SliceStatus struct {
	Slug         string              `json:"slug"`
	Name         string              `json:"name"`
	CurrentValue int                 `json:"current_value"`
	CurrentIndex int                 `json:"current_index"`
	TemporalType models.TemporalType `json:"temporal_type"`
	IsComposite  bool                `json:"is_composite"`
	LastUpdateAt *time.Time          `json:"last_update_at,omitempty"`
	Components   []ComponentStatus   `json:"components,omitempty"`
}

// SliceUpdateInput holds a partial update of a slice definition. Nil numeric
// and boolean fields mean "leave unchanged", so zero remains a settable value.
type SliceUpdateInput struct {
	Name string

	IncreaseType   formula.Type
	IncreaseParams formula.Params
	DecreaseType   formula.Type
	DecreaseParams formula.Params

	TemporalType    models.TemporalType
	ExpectedTime    string
	GracePeriod     *int
	PenaltyInterval *int
	PenaltyAmount   *int
	MaxInterval     *int
	ResetDaily      *bool
}

// SliceServicer defines the contract for slice definitions and the update engine.
type SliceServicer interface {
	CreateSlice(input SliceInput) (*models.Slice, error)
	GetSlices(page pagination.PageRequest) (*pagination.PageResponse[models.Slice], error)
	GetSliceByID(sliceID string) (*models.Slice, error)
	GetSliceBySlug(slug string) (*models.Slice, error)
	UpdateSlice(sliceID string, input SliceUpdateInput) (*models.Slice, error)
	DeleteSlice(sliceID string) error

	GetSliceStatus(slug string) (*SliceStatus, error)
	GetSliceUpdates(sliceID string, page pagination.PageRequest) (*pagination.PageResponse[models.SliceUpdate], error)

	UpdateBySteps(sliceID string, steps int, notes string, automatic bool) (*models.Slice, error)
	UpdateByPercentage(sliceID string, percentage int, notes string) (*models.Slice, error)
	UpdateToValue(sliceID string, value int, notes string) (*models.Slice, error)

	// UpdateByStepsTx applies a step update to an already-loaded slice inside
	// the caller's transaction. The temporal evaluators use it so the penalty
	// count and the penalty write share one atomic unit.
	UpdateByStepsTx(tx *gorm.DB, slice *models.Slice, steps int, notes string, automatic bool) error
}

// ComponentInput holds the fields for adding a component to a composite slice.
type ComponentInput struct {
	Key       string
	Name      string
	Weight    float64
	MaxValue  int
	DecayType models.DecayType
	DecayRate float64
}

// CompositeServicer defines the contract for composite slice aggregation.
type CompositeServicer interface {
	AddComponent(sliceID string, input ComponentInput) (*models.SliceComponent, error)
	// CalculateCompositeValue computes the weighted aggregate for a slice whose
	// Components are loaded, applying fractional decay as of the given time.
	CalculateCompositeValue(slice *models.Slice, at time.Time) int

	UpdateComponent(sliceID, key string, value *int, notes string) (*models.SliceComponent, error)
	UpdateMultipleComponents(sliceID string, keys []string, notes string) (int, error)
	GetComponentStatus(sliceID string) ([]ComponentStatus, error)
	RecalculateComposite(sliceID string) (int, error)
	RecalculateAllCompositeSlices() error

	// DecayComponents applies whole-period decay to every component of a
	// composite slice and recomputes the parent when anything changed, all in
	// one transaction. Returns the number of components that changed.
	DecayComponents(sliceID string) (int, error)
}

// TemporalRunResult summarizes one evaluator sweep.
type TemporalRunResult struct {
	Evaluator        string `json:"evaluator"`
	Evaluated        int    `json:"evaluated"`
	PenaltiesApplied int    `json:"penalties_applied"`
	Errors           int    `json:"errors"`
}

// TemporalServicer defines the contract for the periodic evaluators.
type TemporalServicer interface {
	RunScheduledChecks() TemporalRunResult
	RunContinuousChecks() TemporalRunResult
	RunCompositeDecay() TemporalRunResult
	RunDailyReset() TemporalRunResult
	RunAllChecks() []TemporalRunResult
}

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID string, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// TelegramServicer defines the contract for Telegram account linking and
// command dispatch.
type TelegramServicer interface {
	GetLinkByUserID(userID string) (*models.TelegramLink, error)
	GetLinkByTelegramID(telegramUserID int64) (*models.TelegramLink, error)
	GenerateLinkCode(userID string) (*models.TelegramLink, error)
	CompleteLink(linkCode string, telegramUserID int64, username, firstName string) error
	UnlinkAccount(userID string) error
	HandleCommand(telegramUserID int64, text string) (string, error)
}

// AuditServicer defines the contract for recording audit log entries.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any)
}
