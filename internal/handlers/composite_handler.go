package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "lifeslice/internal/errors"
	"lifeslice/internal/models"
	"lifeslice/internal/services"
)

// CompositeHandler handles composite slice component requests.
type CompositeHandler struct {
	compositeService services.CompositeServicer
	auditService     services.AuditServicer
}

// NewCompositeHandler creates a new CompositeHandler.
func NewCompositeHandler(compositeService services.CompositeServicer, auditService services.AuditServicer) *CompositeHandler {
	return &CompositeHandler{
		compositeService: compositeService,
		auditService:     auditService,
	}
}

// UpdateComponentRequest represents a single component update. When Value is
// omitted the component is checked off at its maximum.
type UpdateComponentRequest struct {
	Value *int   `json:"value" binding:"omitempty,min=0"`
	Notes string `json:"notes" binding:"max=500"`
}

// CheckOffComponentsRequest checks off several components at once.
type CheckOffComponentsRequest struct {
	Keys  []string `json:"keys" binding:"required,min=1,dive,required"`
	Notes string   `json:"notes" binding:"max=500"`
}

// AddComponentRequest represents the request payload for adding a component.
type AddComponentRequest struct {
	Key       string  `json:"key" binding:"required,min=1,max=50"`
	Name      string  `json:"name" binding:"required,min=1,max=100"`
	Weight    float64 `json:"weight" binding:"required,gt=0"`
	MaxValue  int     `json:"max_value" binding:"required,gt=0"`
	DecayType string  `json:"decay_type" binding:"omitempty,decay_type"`
	DecayRate float64 `json:"decay_rate" binding:"omitempty,min=0"`
}

// AddComponent attaches a new component to a composite slice.
// @Summary     Add a component
// @Description Attach a new weighted component to a composite slice
// @Tags        composites
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Slice ID"
// @Param       request body AddComponentRequest true "Component definition"
// @Success     201 {object} object "Component created"
// @Failure     404 {object} ErrorResponse "Slice not found"
// @Failure     409 {object} ErrorResponse "Duplicate component key"
// @Router      /slices/{id}/components [post]
func (h *CompositeHandler) AddComponent(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	component, err := h.compositeService.AddComponent(c.Param("id"), services.ComponentInput{
		Key:       req.Key,
		Name:      req.Name,
		Weight:    req.Weight,
		MaxValue:  req.MaxValue,
		DecayType: models.DecayType(req.DecayType),
		DecayRate: req.DecayRate,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ADD_COMPONENT", "slice_component", component.ID, c.ClientIP(),
		map[string]interface{}{"key": req.Key, "weight": req.Weight})

	c.JSON(http.StatusCreated, gin.H{"component": component})
}

// GetComponents returns the component status of a composite slice.
// @Summary     Get components
// @Description Get the current state of every component of a composite slice
// @Tags        composites
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Slice ID"
// @Success     200 {object} object "Component statuses"
// @Failure     404 {object} ErrorResponse "Slice not found"
// @Router      /slices/{id}/components [get]
func (h *CompositeHandler) GetComponents(c *gin.Context) {
	components, err := h.compositeService.GetComponentStatus(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"components": components})
}

// UpdateComponent sets or checks off one component and recomputes the parent.
// @Summary     Update a component
// @Description Set a component's value, or check it off at maximum when value is omitted
// @Tags        composites
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                 true "Slice ID"
// @Param       key     path string                 true "Component key"
// @Param       request body UpdateComponentRequest true "Update"
// @Success     200 {object} object "Updated component"
// @Failure     400 {object} ErrorResponse "Value out of range"
// @Failure     404 {object} ErrorResponse "Slice or component not found"
// @Router      /slices/{id}/components/{key} [post]
func (h *CompositeHandler) UpdateComponent(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	component, err := h.compositeService.UpdateComponent(c.Param("id"), c.Param("key"), req.Value, req.Notes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_COMPONENT", "slice_component", component.ID, c.ClientIP(),
		map[string]interface{}{"key": component.Key, "value": component.CurrentValue})

	c.JSON(http.StatusOK, gin.H{"component": component})
}

// CheckOffComponents checks off several components in one call.
// @Summary     Check off components
// @Description Check off several components at their maximum in one recompute
// @Tags        composites
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                    true "Slice ID"
// @Param       request body CheckOffComponentsRequest true "Component keys"
// @Success     200 {object} object "Number of components checked off"
// @Failure     404 {object} ErrorResponse "Slice not found"
// @Router      /slices/{id}/components/check-off [post]
func (h *CompositeHandler) CheckOffComponents(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CheckOffComponentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	sliceID := c.Param("id")
	updated, err := h.compositeService.UpdateMultipleComponents(sliceID, req.Keys, req.Notes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CHECK_OFF_COMPONENTS", "slice", sliceID, c.ClientIP(),
		map[string]interface{}{"keys": req.Keys})

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// Recalculate forces a recompute of a composite slice's aggregate value.
// @Summary     Recalculate a composite slice
// @Description Recompute the weighted aggregate from current component values
// @Tags        composites
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Slice ID"
// @Success     200 {object} object "New aggregate value"
// @Failure     404 {object} ErrorResponse "Slice not found"
// @Router      /slices/{id}/recalculate [post]
func (h *CompositeHandler) Recalculate(c *gin.Context) {
	value, err := h.compositeService.RecalculateComposite(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"value": value})
}
