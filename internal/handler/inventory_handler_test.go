package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"save-the-fridge/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockInventoryService is a mock implementation of InventoryService.
type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) List(ctx context.Context) ([]model.ProductView, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProductView), args.Error(1)
}

func (m *MockInventoryService) Get(ctx context.Context, id int64) (*model.ProductView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProductView), args.Error(1)
}

func (m *MockInventoryService) Add(ctx context.Context, req *model.AddProductRequest) (*model.Product, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockInventoryService) Update(ctx context.Context, id int64, update *model.ProductUpdate) (*model.Product, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockInventoryService) Remove(ctx context.Context, id int64, confirmed bool) error {
	args := m.Called(ctx, id, confirmed)
	return args.Error(0)
}

func (m *MockInventoryService) Notifications(ctx context.Context) []model.Notification {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]model.Notification)
}

func inventoryRouter(svc *MockInventoryService) http.Handler {
	h := NewInventoryHandler(svc, zerolog.Nop())
	r := chi.NewRouter()
	r.Get("/api/products", h.List)
	r.Post("/api/products", h.Add)
	r.Get("/api/products/{id}", h.Get)
	r.Patch("/api/products/{id}", h.Update)
	r.Delete("/api/products/{id}", h.Remove)
	r.Get("/api/notifications", h.Notifications)
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestInventoryHandler_List(t *testing.T) {
	tests := []struct {
		name           string
		mockReturn     []model.ProductView
		mockError      error
		expectedStatus int
		expectedCount  int
	}{
		{
			name: "Success",
			mockReturn: []model.ProductView{
				{Product: model.Product{ID: 1, Name: "Milk", ExpiryDate: "2026-03-02"}, DaysLeft: 1, Urgency: "urgent", Status: "Expires tomorrow"},
				{Product: model.Product{ID: 2, Name: "Cheese", ExpiryDate: "2026-04-01"}, DaysLeft: 31, Urgency: "ok", Status: "31 days left"},
			},
			expectedStatus: http.StatusOK,
			expectedCount:  2,
		},
		{
			name:           "Empty inventory",
			mockReturn:     []model.ProductView{},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Service error",
			mockError:      errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockInventoryService)
			svc.On("List", mock.Anything).Return(tt.mockReturn, tt.mockError)

			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			w := httptest.NewRecorder()
			inventoryRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var views []model.ProductView
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &views))
				assert.Len(t, views, tt.expectedCount)
			} else {
				assert.Equal(t, model.ErrCodeInternalError, decodeError(t, w).Error)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestInventoryHandler_Get(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		setup          func(svc *MockInventoryService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "Found",
			path: "/api/products/7",
			setup: func(svc *MockInventoryService) {
				svc.On("Get", mock.Anything, int64(7)).
					Return(&model.ProductView{Product: model.Product{ID: 7, Name: "Milk"}}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Not found",
			path: "/api/products/8",
			setup: func(svc *MockInventoryService) {
				svc.On("Get", mock.Anything, int64(8)).Return(nil, model.ErrProductNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   model.ErrCodeProductNotFound,
		},
		{
			name:           "Invalid ID",
			path:           "/api/products/abc",
			setup:          func(*MockInventoryService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockInventoryService)
			tt.setup(svc)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			inventoryRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Error)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestInventoryHandler_Add(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		setup           func(svc *MockInventoryService)
		expectedStatus  int
		expectedCode    string
		expectedWarning bool
	}{
		{
			name: "Created",
			body: `{"barcode":"3017620422003","expiryDate":"2026-06-01","reminderDays":3}`,
			setup: func(svc *MockInventoryService) {
				svc.On("Add", mock.Anything, &model.AddProductRequest{
					Barcode:      "3017620422003",
					ExpiryDate:   "2026-06-01",
					ReminderDays: 3,
				}).Return(&model.Product{ID: 1, Barcode: "3017620422003", Name: "Nutella"}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Malformed JSON",
			body:           `{"expiryDate":`,
			setup:          func(*MockInventoryService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidJSON,
		},
		{
			name:           "Unknown field",
			body:           `{"expiryDate":"2026-06-01","price":3}`,
			setup:          func(*MockInventoryService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeInvalidJSON,
		},
		{
			name: "Validation failure",
			body: `{"name":"Milk","expiryDate":"tomorrow"}`,
			setup: func(svc *MockInventoryService) {
				svc.On("Add", mock.Anything, mock.Anything).
					Return(nil, model.NewDomainError(model.ErrCodeValidationFailed, "expiryDate must be a YYYY-MM-DD date"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   model.ErrCodeValidationFailed,
		},
		{
			name: "Persist failure",
			body: `{"name":"Milk","expiryDate":"2026-06-01"}`,
			setup: func(svc *MockInventoryService) {
				svc.On("Add", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("failed to add product: %w", model.ErrPersistFailed))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   model.ErrCodePersistFailed,
		},
		{
			name: "Kept but not saved",
			body: `{"name":"Milk","expiryDate":"2026-06-01"}`,
			setup: func(svc *MockInventoryService) {
				svc.On("Add", mock.Anything, mock.Anything).
					Return(&model.Product{ID: 5, Name: "Milk"}, fmt.Errorf("failed to save added product: %w", model.ErrPersistFailed))
			},
			expectedStatus:  http.StatusCreated,
			expectedWarning: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockInventoryService)
			tt.setup(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			inventoryRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Error)
			}
			if tt.expectedWarning {
				assert.Equal(t, unsavedWarning, w.Header().Get("Warning"))
				var product model.Product
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
				assert.Equal(t, int64(5), product.ID)
			} else {
				assert.Empty(t, w.Header().Get("Warning"))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestInventoryHandler_Update(t *testing.T) {
	svc := new(MockInventoryService)
	name := "Skimmed milk"
	svc.On("Update", mock.Anything, int64(3), &model.ProductUpdate{Name: &name}).
		Return(&model.Product{ID: 3, Name: name}, nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/products/3", strings.NewReader(`{"name":"Skimmed milk"}`))
	w := httptest.NewRecorder()
	inventoryRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var product model.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	assert.Equal(t, name, product.Name)
	svc.AssertExpectations(t)
}

func TestInventoryHandler_Update_KeptButNotSaved(t *testing.T) {
	svc := new(MockInventoryService)
	name := "Skimmed milk"
	svc.On("Update", mock.Anything, int64(3), &model.ProductUpdate{Name: &name}).
		Return(&model.Product{ID: 3, Name: name}, fmt.Errorf("failed to save updated product: %w", model.ErrPersistFailed))

	req := httptest.NewRequest(http.MethodPatch, "/api/products/3", strings.NewReader(`{"name":"Skimmed milk"}`))
	w := httptest.NewRecorder()
	inventoryRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, unsavedWarning, w.Header().Get("Warning"))
	var product model.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
	assert.Equal(t, name, product.Name)
	svc.AssertExpectations(t)
}

func TestInventoryHandler_Remove(t *testing.T) {
	tests := []struct {
		name            string
		path            string
		setup           func(svc *MockInventoryService)
		expectedStatus  int
		expectedWarning string
	}{
		{
			name: "Confirmed",
			path: "/api/products/1?confirm=true",
			setup: func(svc *MockInventoryService) {
				svc.On("Remove", mock.Anything, int64(1), true).Return(nil)
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name: "Missing confirmation",
			path: "/api/products/1",
			setup: func(svc *MockInventoryService) {
				svc.On("Remove", mock.Anything, int64(1), false).Return(model.ErrConfirmationRequired)
			},
			expectedStatus: http.StatusPreconditionRequired,
		},
		{
			name: "Garbage confirmation",
			path: "/api/products/1?confirm=maybe",
			setup: func(svc *MockInventoryService) {
				svc.On("Remove", mock.Anything, int64(1), false).Return(model.ErrConfirmationRequired)
			},
			expectedStatus: http.StatusPreconditionRequired,
		},
		{
			name: "Absent product",
			path: "/api/products/99?confirm=1",
			setup: func(svc *MockInventoryService) {
				svc.On("Remove", mock.Anything, int64(99), true).Return(model.ErrProductNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "Removed but not saved",
			path: "/api/products/1?confirm=true",
			setup: func(svc *MockInventoryService) {
				svc.On("Remove", mock.Anything, int64(1), true).
					Return(fmt.Errorf("failed to remove product: %w", model.ErrPersistFailed))
			},
			expectedStatus:  http.StatusNoContent,
			expectedWarning: unsavedWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockInventoryService)
			tt.setup(svc)

			req := httptest.NewRequest(http.MethodDelete, tt.path, nil)
			w := httptest.NewRecorder()
			inventoryRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedWarning, w.Header().Get("Warning"))
			svc.AssertExpectations(t)
		})
	}
}

func TestInventoryHandler_Notifications(t *testing.T) {
	t.Run("lists notifications", func(t *testing.T) {
		svc := new(MockInventoryService)
		svc.On("Notifications", mock.Anything).
			Return([]model.Notification{{ProductID: 1, Name: "Milk", DaysLeft: 1}})

		req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
		w := httptest.NewRecorder()
		inventoryRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[{"productId":1,"name":"Milk","daysLeft":1}]`, w.Body.String())
	})

	t.Run("empty set is an empty array", func(t *testing.T) {
		svc := new(MockInventoryService)
		svc.On("Notifications", mock.Anything).Return(nil)

		req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
		w := httptest.NewRecorder()
		inventoryRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{model.ErrCodeInvalidJSON, http.StatusBadRequest},
		{model.ErrCodeValidationFailed, http.StatusBadRequest},
		{model.ErrCodePermissionDenied, http.StatusForbidden},
		{model.ErrCodeProductNotFound, http.StatusNotFound},
		{model.ErrCodeScanInProgress, http.StatusConflict},
		{model.ErrCodeDeviceBusy, http.StatusConflict},
		{model.ErrCodeConfirmationRequired, http.StatusPreconditionRequired},
		{model.ErrCodeLookupUnavailable, http.StatusServiceUnavailable},
		{model.ErrCodeDeviceAbsent, http.StatusServiceUnavailable},
		{model.ErrCodePersistFailed, http.StatusInternalServerError},
		{model.ErrCodeCameraFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.code))
		})
	}
}
