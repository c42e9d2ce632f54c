package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "lifeslice/internal/errors"
	"lifeslice/internal/services"
)

// ScheduleReader exposes the next planned run time of each evaluator.
type ScheduleReader interface {
	NextRuns() map[string]time.Time
}

// TemporalHandler handles the pipeline endpoints that trigger and inspect the
// temporal evaluators.
type TemporalHandler struct {
	temporalService services.TemporalServicer
	schedule        ScheduleReader
}

// NewTemporalHandler creates a new TemporalHandler.
func NewTemporalHandler(temporalService services.TemporalServicer, schedule ScheduleReader) *TemporalHandler {
	return &TemporalHandler{
		temporalService: temporalService,
		schedule:        schedule,
	}
}

// RunRequest selects which evaluator to run. An empty evaluator runs the full
// sweep (scheduled, continuous, decay).
type RunRequest struct {
	Evaluator string `json:"evaluator" binding:"omitempty,oneof=scheduled continuous decay daily_reset all"`
}

// Run triggers a temporal evaluator sweep immediately (called by cron or ops).
// @Summary     Run temporal evaluators
// @Description Trigger one evaluator, or the full sweep when none is named (internal endpoint)
// @Tags        internal
// @Accept      json
// @Produce     json
// @Param       request body RunRequest false "Evaluator selection"
// @Success     200 {object} object "Run results"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /internal/temporal/run [post]
// @Security    InternalSecret
func (h *TemporalHandler) Run(c *gin.Context) {
	var req RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	var results []services.TemporalRunResult
	switch req.Evaluator {
	case "scheduled":
		results = []services.TemporalRunResult{h.temporalService.RunScheduledChecks()}
	case "continuous":
		results = []services.TemporalRunResult{h.temporalService.RunContinuousChecks()}
	case "decay":
		results = []services.TemporalRunResult{h.temporalService.RunCompositeDecay()}
	case "daily_reset":
		results = []services.TemporalRunResult{h.temporalService.RunDailyReset()}
	default:
		results = h.temporalService.RunAllChecks()
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GetSchedule returns the next planned run time of each evaluator.
// @Summary     Get evaluator schedule
// @Description Get the next planned run time of each temporal evaluator (internal endpoint)
// @Tags        internal
// @Produce     json
// @Success     200 {object} object "Next run times"
// @Router      /internal/temporal/schedule [get]
// @Security    InternalSecret
func (h *TemporalHandler) GetSchedule(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"next_runs": h.schedule.NextRuns()})
}
