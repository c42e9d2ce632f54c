package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "lifeslice/internal/errors"
	"lifeslice/internal/models"
	"lifeslice/internal/pagination"
	"lifeslice/internal/services"
	"lifeslice/internal/validator"
)

// --- mock services ---

type mockSliceService struct {
	createSliceFn        func(input services.SliceInput) (*models.Slice, error)
	getSliceStatusFn     func(slug string) (*services.SliceStatus, error)
	updateByStepsFn      func(sliceID string, steps int, notes string, automatic bool) (*models.Slice, error)
	updateByPercentageFn func(sliceID string, percentage int, notes string) (*models.Slice, error)
	updateToValueFn      func(sliceID string, value int, notes string) (*models.Slice, error)
}

func (m *mockSliceService) CreateSlice(input services.SliceInput) (*models.Slice, error) {
	if m.createSliceFn != nil {
		return m.createSliceFn(input)
	}
	return &models.Slice{}, nil
}

func (m *mockSliceService) GetSlices(page pagination.PageRequest) (*pagination.PageResponse[models.Slice], error) {
	resp := pagination.NewPageResponse([]models.Slice{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockSliceService) GetSliceByID(sliceID string) (*models.Slice, error) {
	return &models.Slice{Base: models.Base{ID: sliceID}}, nil
}

func (m *mockSliceService) GetSliceBySlug(slug string) (*models.Slice, error) {
	return &models.Slice{Slug: slug}, nil
}

func (m *mockSliceService) UpdateSlice(sliceID string, input services.SliceUpdateInput) (*models.Slice, error) {
	return &models.Slice{Base: models.Base{ID: sliceID}}, nil
}

func (m *mockSliceService) DeleteSlice(sliceID string) error { return nil }

func (m *mockSliceService) GetSliceStatus(slug string) (*services.SliceStatus, error) {
	if m.getSliceStatusFn != nil {
		return m.getSliceStatusFn(slug)
	}
	return &services.SliceStatus{Slug: slug}, nil
}

func (m *mockSliceService) GetSliceUpdates(sliceID string, page pagination.PageRequest) (*pagination.PageResponse[models.SliceUpdate], error) {
	resp := pagination.NewPageResponse([]models.SliceUpdate{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockSliceService) UpdateBySteps(sliceID string, steps int, notes string, automatic bool) (*models.Slice, error) {
	if m.updateByStepsFn != nil {
		return m.updateByStepsFn(sliceID, steps, notes, automatic)
	}
	return &models.Slice{Base: models.Base{ID: sliceID}}, nil
}

func (m *mockSliceService) UpdateByPercentage(sliceID string, percentage int, notes string) (*models.Slice, error) {
	if m.updateByPercentageFn != nil {
		return m.updateByPercentageFn(sliceID, percentage, notes)
	}
	return &models.Slice{Base: models.Base{ID: sliceID}}, nil
}

func (m *mockSliceService) UpdateToValue(sliceID string, value int, notes string) (*models.Slice, error) {
	if m.updateToValueFn != nil {
		return m.updateToValueFn(sliceID, value, notes)
	}
	return &models.Slice{Base: models.Base{ID: sliceID}}, nil
}

func (m *mockSliceService) UpdateByStepsTx(tx *gorm.DB, slice *models.Slice, steps int, notes string, automatic bool) error {
	return nil
}

type mockAuditService struct{}

func (m *mockAuditService) Log(_, _, _, _, _ string, _ map[string]any) {}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func setupSliceRouter(handler *SliceHandler) *gin.Engine {
	r := gin.New()
	slices := r.Group("/slices", injectUserID("user-1"))
	slices.POST("", handler.CreateSlice)
	slices.POST("/:id/update", handler.UpdateSliceValue)
	r.GET("/status/:slug", injectUserID("user-1"), handler.GetSliceStatus)
	return r
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// --- tests ---

func TestSliceHandler_CreateSlice(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		sliceSvc := &mockSliceService{
			createSliceFn: func(input services.SliceInput) (*models.Slice, error) {
				return &models.Slice{Base: models.Base{ID: "slice-1"}, Slug: input.Slug, Name: input.Name}, nil
			},
		}
		handler := NewSliceHandler(sliceSvc, &mockAuditService{})
		r := setupSliceRouter(handler)

		rec := doRequest(r, "POST", "/slices",
			`{"slug":"sleep","name":"Sleep","increase_type":"linear","temporal_type":"scheduled","expected_time":"23:30"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		slice := result["slice"].(map[string]interface{})
		if slice["slug"] != "sleep" {
			t.Errorf("expected slug sleep, got %v", slice["slug"])
		}
	})

	t.Run("returns 400 on missing slug", func(t *testing.T) {
		handler := NewSliceHandler(&mockSliceService{}, &mockAuditService{})
		r := setupSliceRouter(handler)

		rec := doRequest(r, "POST", "/slices", `{"name":"No Slug"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on bad formula type", func(t *testing.T) {
		handler := NewSliceHandler(&mockSliceService{}, &mockAuditService{})
		r := setupSliceRouter(handler)

		rec := doRequest(r, "POST", "/slices", `{"slug":"x","name":"X","increase_type":"cubic"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on bad expected time", func(t *testing.T) {
		handler := NewSliceHandler(&mockSliceService{}, &mockAuditService{})
		r := setupSliceRouter(handler)

		rec := doRequest(r, "POST", "/slices", `{"slug":"x","name":"X","expected_time":"25:99"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 409 on duplicate slug", func(t *testing.T) {
		sliceSvc := &mockSliceService{
			createSliceFn: func(input services.SliceInput) (*models.Slice, error) {
				return nil, apperrors.ErrDuplicateSlug
			},
		}
		handler := NewSliceHandler(sliceSvc, &mockAuditService{})
		r := setupSliceRouter(handler)

		rec := doRequest(r, "POST", "/slices", `{"slug":"sleep","name":"Sleep"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_SLUG")
	})
}

func TestSliceHandler_UpdateSliceValue(t *testing.T) {
	t.Run("dispatches_steps", func(t *testing.T) {
		var gotSteps int
		sliceSvc := &mockSliceService{
			updateByStepsFn: func(sliceID string, steps int, notes string, automatic bool) (*models.Slice, error) {
				gotSteps = steps
				if automatic {
					t.Error("handler updates must never be automatic")
				}
				return &models.Slice{Base: models.Base{ID: sliceID}}, nil
			},
		}
		handler := NewSliceHandler(sliceSvc, &mockAuditService{})
		r := setupSliceRouter(handler)

		rec := doRequest(r, "POST", "/slices/slice-1/update", `{"type":"steps","value":2}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotSteps != 2 {
			t.Errorf("expected steps 2, got %d", gotSteps)
		}
	})

	t.Run("dispatches_percentage", func(t *testing.T) {
		var gotPct int
		sliceSvc := &mockSliceService{
			updateByPercentageFn: func(sliceID string, percentage int, notes string) (*models.Slice, error) {
				gotPct = percentage
				return &models.Slice{Base: models.Base{ID: sliceID}}, nil
			},
		}
		handler := NewSliceHandler(sliceSvc, &mockAuditService{})
		r := setupSliceRouter(handler)

		rec := doRequest(r, "POST", "/slices/slice-1/update", `{"type":"percentage","value":-10}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotPct != -10 {
			t.Errorf("expected percentage -10, got %d", gotPct)
		}
	})

	t.Run("dispatches_absolute", func(t *testing.T) {
		var gotValue int
		sliceSvc := &mockSliceService{
			updateToValueFn: func(sliceID string, value int, notes string) (*models.Slice, error) {
				gotValue = value
				return &models.Slice{Base: models.Base{ID: sliceID}}, nil
			},
		}
		handler := NewSliceHandler(sliceSvc, &mockAuditService{})
		r := setupSliceRouter(handler)

		rec := doRequest(r, "POST", "/slices/slice-1/update", `{"type":"absolute","value":40}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotValue != 40 {
			t.Errorf("expected value 40, got %d", gotValue)
		}
	})

	t.Run("returns 400 on unknown type", func(t *testing.T) {
		handler := NewSliceHandler(&mockSliceService{}, &mockAuditService{})
		r := setupSliceRouter(handler)

		rec := doRequest(r, "POST", "/slices/slice-1/update", `{"type":"magic","value":1}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestSliceHandler_GetSliceStatus(t *testing.T) {
	t.Run("returns 404 on unknown slug", func(t *testing.T) {
		sliceSvc := &mockSliceService{
			getSliceStatusFn: func(slug string) (*services.SliceStatus, error) {
				return nil, apperrors.ErrSliceNotFound
			},
		}
		handler := NewSliceHandler(sliceSvc, &mockAuditService{})
		r := setupSliceRouter(handler)

		rec := doRequest(r, "GET", "/status/nope", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SLICE_NOT_FOUND")
	})
}
