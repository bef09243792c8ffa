package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"save-the-fridge/internal/middleware"
	"save-the-fridge/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockScanService is a mock implementation of ScanService.
type MockScanService struct {
	mock.Mock
}

func (m *MockScanService) Lookup(ctx context.Context, barcode string) (*model.ProductInfo, error) {
	args := m.Called(ctx, barcode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProductInfo), args.Error(1)
}

func (m *MockScanService) Start(ctx context.Context) (*model.ScanStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScanStatus), args.Error(1)
}

func (m *MockScanService) Stop(ctx context.Context) (*model.ScanStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScanStatus), args.Error(1)
}

func (m *MockScanService) Status(ctx context.Context) *model.ScanStatus {
	args := m.Called(ctx)
	return args.Get(0).(*model.ScanStatus)
}

func (m *MockScanService) TakePending(barcode string) (*model.ProductInfo, bool) {
	args := m.Called(barcode)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*model.ProductInfo), args.Bool(1)
}

func scanRouter(svc *MockScanService) http.Handler {
	h := NewScanHandler(svc, zerolog.Nop())
	r := chi.NewRouter()
	r.Use(middleware.CorrelationID)
	r.Get("/api/lookup/{barcode}", h.Lookup)
	r.Get("/api/scan", h.Status)
	r.Post("/api/scan/start", h.Start)
	r.Post("/api/scan/stop", h.Stop)
	return r
}

func TestScanHandler_Lookup(t *testing.T) {
	nutella := &model.ProductInfo{Barcode: "3017620422003", Name: "Nutella", Brand: "Ferrero"}

	tests := []struct {
		name           string
		barcode        string
		mockReturn     *model.ProductInfo
		mockError      error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Found",
			barcode:        "3017620422003",
			mockReturn:     nutella,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Not found",
			barcode:        "0000000000000",
			mockError:      model.NewDomainError(model.ErrCodeProductNotFound, "Product not found. Check the barcode and try again."),
			expectedStatus: http.StatusNotFound,
			expectedCode:   model.ErrCodeProductNotFound,
		},
		{
			name:           "Transient failure",
			barcode:        "3017620422003",
			mockError:      fmt.Errorf("%w: status 502", model.ErrLookupUnavailable),
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   model.ErrCodeLookupUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockScanService)
			svc.On("Lookup", mock.Anything, tt.barcode).Return(tt.mockReturn, tt.mockError)

			req := httptest.NewRequest(http.MethodGet, "/api/lookup/"+tt.barcode, nil)
			w := httptest.NewRecorder()
			scanRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				resp := decodeError(t, w)
				assert.Equal(t, tt.expectedCode, resp.Error)
				assert.Equal(t, w.Header().Get(middleware.CorrelationIDHeader), resp.CorrelationID)
			} else {
				var info model.ProductInfo
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
				assert.Equal(t, "Nutella", info.Name)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestScanHandler_Start(t *testing.T) {
	tests := []struct {
		name           string
		mockReturn     *model.ScanStatus
		mockError      error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Started",
			mockReturn:     &model.ScanStatus{State: "active", Device: "back"},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "Already scanning",
			mockError:      model.ErrScanInProgress,
			expectedStatus: http.StatusConflict,
			expectedCode:   model.ErrCodeScanInProgress,
		},
		{
			name:           "Permission denied",
			mockError:      model.NewDomainError(model.ErrCodePermissionDenied, "Unable to access camera. Please allow camera access and try again."),
			expectedStatus: http.StatusForbidden,
			expectedCode:   model.ErrCodePermissionDenied,
		},
		{
			name:           "No device",
			mockError:      model.NewDomainError(model.ErrCodeDeviceAbsent, "Unable to access camera. No cameras found on this device."),
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   model.ErrCodeDeviceAbsent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockScanService)
			svc.On("Start", mock.Anything).Return(tt.mockReturn, tt.mockError)

			req := httptest.NewRequest(http.MethodPost, "/api/scan/start", nil)
			w := httptest.NewRecorder()
			scanRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Error)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestScanHandler_StopAndStatus(t *testing.T) {
	svc := new(MockScanService)
	svc.On("Stop", mock.Anything).Return(&model.ScanStatus{State: "idle"}, nil)
	svc.On("Status", mock.Anything).Return(&model.ScanStatus{
		State:       "idle",
		LastBarcode: "3017620422003",
		Pending:     &model.ProductInfo{Barcode: "3017620422003", Name: "Nutella"},
	})
	router := scanRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/scan/stop", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/scan", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var status model.ScanStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "idle", status.State)
	require.NotNil(t, status.Pending)
	assert.Equal(t, "Nutella", status.Pending.Name)
	svc.AssertExpectations(t)
}
