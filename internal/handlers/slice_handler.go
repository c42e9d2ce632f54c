package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "lifeslice/internal/errors"
	"lifeslice/internal/formula"
	"lifeslice/internal/models"
	"lifeslice/internal/pagination"
	"lifeslice/internal/services"
)

// SliceHandler handles slice-related requests.
type SliceHandler struct {
	sliceService services.SliceServicer
	auditService services.AuditServicer
}

// NewSliceHandler creates a new SliceHandler.
func NewSliceHandler(sliceService services.SliceServicer, auditService services.AuditServicer) *SliceHandler {
	return &SliceHandler{sliceService: sliceService, auditService: auditService}
}

// CreateSliceRequest represents the request payload for creating a slice.
type CreateSliceRequest struct {
	Slug string `json:"slug" binding:"required,min=1,max=50"`
	Name string `json:"name" binding:"required,min=1,max=100"`

	IncreaseType   formula.Type   `json:"increase_type" binding:"omitempty,formula_type"`
	IncreaseParams formula.Params `json:"increase_params"`
	DecreaseType   formula.Type   `json:"decrease_type" binding:"omitempty,formula_type"`
	DecreaseParams formula.Params `json:"decrease_params"`

	TemporalType    models.TemporalType `json:"temporal_type" binding:"omitempty,temporal_type"`
	ExpectedTime    string              `json:"expected_time" binding:"omitempty,hhmm"`
	GracePeriod     int                 `json:"grace_period" binding:"omitempty,min=0"`
	PenaltyInterval int                 `json:"penalty_interval" binding:"omitempty,min=1"`
	PenaltyAmount   int                 `json:"penalty_amount"`
	MaxInterval     int                 `json:"max_interval" binding:"omitempty,min=1"`
	ResetDaily      bool                `json:"reset_daily"`

	IsComposite bool `json:"is_composite"`
}

// UpdateSliceRequest represents the request payload for updating a slice
// definition. Pointer fields distinguish "not sent" from an explicit zero.
type UpdateSliceRequest struct {
	Name string `json:"name" binding:"omitempty,min=1,max=100"`

	IncreaseType   formula.Type   `json:"increase_type" binding:"omitempty,formula_type"`
	IncreaseParams formula.Params `json:"increase_params"`
	DecreaseType   formula.Type   `json:"decrease_type" binding:"omitempty,formula_type"`
	DecreaseParams formula.Params `json:"decrease_params"`

	TemporalType    models.TemporalType `json:"temporal_type" binding:"omitempty,temporal_type"`
	ExpectedTime    string              `json:"expected_time" binding:"omitempty,hhmm"`
	GracePeriod     *int                `json:"grace_period" binding:"omitempty,min=0"`
	PenaltyInterval *int                `json:"penalty_interval" binding:"omitempty,min=1"`
	PenaltyAmount   *int                `json:"penalty_amount"`
	MaxInterval     *int                `json:"max_interval" binding:"omitempty,min=1"`
	ResetDaily      *bool               `json:"reset_daily"`
}

// UpdateSliceValueRequest dispatches one of the three update modes.
type UpdateSliceValueRequest struct {
	Type string `json:"type" binding:"required,update_type"`
	// Value is the signed step count, percentage, or absolute target. Zero is
	// meaningful for absolute updates.
	Value int    `json:"value"`
	Notes string `json:"notes" binding:"max=500"`
}

// CreateSlice handles the creation of a new slice definition.
// @Summary     Create a slice
// @Description Create a new tracked metric definition
// @Tags        slices
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateSliceRequest true "Slice definition"
// @Success     201 {object} models.Slice "Slice created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Slug already exists"
// @Router      /slices [post]
func (h *SliceHandler) CreateSlice(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateSliceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	slice, err := h.sliceService.CreateSlice(services.SliceInput{
		Slug:            req.Slug,
		Name:            req.Name,
		IncreaseType:    req.IncreaseType,
		IncreaseParams:  req.IncreaseParams,
		DecreaseType:    req.DecreaseType,
		DecreaseParams:  req.DecreaseParams,
		TemporalType:    req.TemporalType,
		ExpectedTime:    req.ExpectedTime,
		GracePeriod:     req.GracePeriod,
		PenaltyInterval: req.PenaltyInterval,
		PenaltyAmount:   req.PenaltyAmount,
		MaxInterval:     req.MaxInterval,
		ResetDaily:      req.ResetDaily,
		IsComposite:     req.IsComposite,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_SLICE", "slice", slice.ID, c.ClientIP(),
		map[string]interface{}{"slug": req.Slug, "temporal_type": req.TemporalType})

	c.JSON(http.StatusCreated, gin.H{"slice": slice})
}

// GetSlices handles listing slice definitions.
// @Summary     List slices
// @Description Get a paginated list of all slice definitions
// @Tags        slices
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Slice] "Paginated slices"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /slices [get]
func (h *SliceHandler) GetSlices(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.sliceService.GetSlices(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetSlice handles retrieving a specific slice.
// @Summary     Get slice by ID
// @Description Get a single slice definition with its components
// @Tags        slices
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Slice ID"
// @Success     200 {object} models.Slice "Slice"
// @Failure     404 {object} ErrorResponse "Slice not found"
// @Router      /slices/{id} [get]
func (h *SliceHandler) GetSlice(c *gin.Context) {
	slice, err := h.sliceService.GetSliceByID(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slice": slice})
}

// GetSliceStatus handles the status read model, looked up by slug.
// @Summary     Get slice status
// @Description Get the current value, index, last update time, and component state of a slice
// @Tags        slices
// @Produce     json
// @Security    BearerAuth
// @Param       slug path string true "Slice slug"
// @Success     200 {object} services.SliceStatus "Status"
// @Failure     404 {object} ErrorResponse "Slice not found"
// @Router      /status/{slug} [get]
func (h *SliceHandler) GetSliceStatus(c *gin.Context) {
	status, err := h.sliceService.GetSliceStatus(c.Param("slug"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// GetSliceUpdates handles listing a slice's update history.
// @Summary     Get slice history
// @Description Get a paginated list of a slice's updates, newest first
// @Tags        slices
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Slice ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.SliceUpdate] "Paginated updates"
// @Failure     404 {object} ErrorResponse "Slice not found"
// @Router      /slices/{id}/updates [get]
func (h *SliceHandler) GetSliceUpdates(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.sliceService.GetSliceUpdates(c.Param("id"), page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateSlice handles updating a slice definition.
// @Summary     Update a slice definition
// @Description Update a slice's name, curves, or temporal settings
// @Tags        slices
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string             true "Slice ID"
// @Param       request body UpdateSliceRequest true "Fields to update"
// @Success     200 {object} models.Slice "Updated slice"
// @Failure     404 {object} ErrorResponse "Slice not found"
// @Router      /slices/{id} [put]
func (h *SliceHandler) UpdateSlice(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateSliceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	slice, err := h.sliceService.UpdateSlice(c.Param("id"), services.SliceUpdateInput{
		Name:            req.Name,
		IncreaseType:    req.IncreaseType,
		IncreaseParams:  req.IncreaseParams,
		DecreaseType:    req.DecreaseType,
		DecreaseParams:  req.DecreaseParams,
		TemporalType:    req.TemporalType,
		ExpectedTime:    req.ExpectedTime,
		GracePeriod:     req.GracePeriod,
		PenaltyInterval: req.PenaltyInterval,
		PenaltyAmount:   req.PenaltyAmount,
		MaxInterval:     req.MaxInterval,
		ResetDaily:      req.ResetDaily,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_SLICE", "slice", slice.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"slice": slice})
}

// DeleteSlice handles deleting a slice definition.
// @Summary     Delete a slice
// @Description Soft-delete a slice definition
// @Tags        slices
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Slice ID"
// @Success     200 {object} object "Deleted"
// @Failure     404 {object} ErrorResponse "Slice not found"
// @Router      /slices/{id} [delete]
func (h *SliceHandler) DeleteSlice(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	sliceID := c.Param("id")
	if err := h.sliceService.DeleteSlice(sliceID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_SLICE", "slice", sliceID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "slice deleted"})
}

// UpdateSliceValue dispatches one of the three value update modes.
// @Summary     Update a slice's value
// @Description Apply a steps, percentage, or absolute update to a slice
// @Tags        slices
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                  true "Slice ID"
// @Param       request body UpdateSliceValueRequest true "Update"
// @Success     200 {object} models.Slice "Updated slice"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Slice not found"
// @Router      /slices/{id}/update [post]
func (h *SliceHandler) UpdateSliceValue(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateSliceValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	sliceID := c.Param("id")
	var slice *models.Slice

	switch models.DeltaType(req.Type) {
	case models.DeltaTypeSteps:
		slice, err = h.sliceService.UpdateBySteps(sliceID, req.Value, req.Notes, false)
	case models.DeltaTypePercentage:
		slice, err = h.sliceService.UpdateByPercentage(sliceID, req.Value, req.Notes)
	case models.DeltaTypeAbsolute:
		slice, err = h.sliceService.UpdateToValue(sliceID, req.Value, req.Notes)
	default:
		err = apperrors.ErrInvalidUpdateType
	}
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_SLICE_VALUE", "slice", slice.ID, c.ClientIP(),
		map[string]interface{}{"type": req.Type, "value": req.Value})

	c.JSON(http.StatusOK, gin.H{"slice": slice})
}
