// internal/handlers/intakes_handler_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/smartbook-be/internal/core/domain"
	"github.com/ammerola/smartbook-be/internal/core/ports"
	"github.com/ammerola/smartbook-be/internal/handlers"
	"github.com/ammerola/smartbook-be/test/helpers"
	"github.com/ammerola/smartbook-be/test/mocks"
)

func recordedIntake() *domain.Intake {
	return &domain.Intake{
		ID:           12,
		BookID:       11,
		LotCode:      "2026-1",
		Units:        40,
		PurchaseCost: decimal.RequireFromString("15.00"),
		SalePrice:    decimal.RequireFromString("25.00"),
		ReceivedAt:   time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC),
		BookName:     "English File A1",
	}
}

func TestIntakeHandler_CreateIntake(t *testing.T) {
	logger := helpers.TestLogger()

	validBody := handlers.CreateIntakeRequest{
		BookID:       11,
		Units:        40,
		PurchaseCost: decimal.RequireFromString("15.00"),
		SalePrice:    decimal.RequireFromString("25.00"),
	}

	tests := []struct {
		name           string
		body           interface{}
		rawBody        string
		setupMocks     func(*mocks.MockIntakeService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name: "records_intake_with_assigned_lot_code",
			body: validBody,
			setupMocks: func(m *mocks.MockIntakeService) {
				m.EXPECT().
					Create(gomock.Any(), ports.CreateIntakeParams{
						BookID:       11,
						Units:        40,
						PurchaseCost: decimal.RequireFromString("15.00"),
						SalePrice:    decimal.RequireFromString("25.00"),
					}).
					Return(recordedIntake(), nil)
			},
			expectedStatus: http.StatusCreated,
			validateBody: func(t *testing.T, body []byte) {
				var intake domain.Intake
				require.NoError(t, json.Unmarshal(body, &intake))
				assert.Equal(t, int64(12), intake.ID)
				assert.Equal(t, "2026-1", intake.LotCode)
			},
		},
		{
			name:           "rejects_malformed_json",
			rawBody:        "{not json",
			setupMocks:     func(m *mocks.MockIntakeService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "maps_validation_error_to_400",
			body: handlers.CreateIntakeRequest{BookID: 11},
			setupMocks: func(m *mocks.MockIntakeService) {
				m.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Return(nil, domain.NewValidationError("units must be greater than 0"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "maps_unknown_book_to_404",
			body: validBody,
			setupMocks: func(m *mocks.MockIntakeService) {
				m.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					Return(nil, &domain.NotFoundError{Entity: "book"})
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := mocks.NewMockIntakeService(ctrl)
			tt.setupMocks(mockService)

			handler := handlers.NewIntakeHandler(mockService, nil, logger)

			var buf bytes.Buffer
			if tt.rawBody != "" {
				buf.WriteString(tt.rawBody)
			} else {
				require.NoError(t, json.NewEncoder(&buf).Encode(tt.body))
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/intakes", &buf)
			w := httptest.NewRecorder()

			handler.CreateIntake(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.validateBody != nil {
				tt.validateBody(t, w.Body.Bytes())
			}
		})
	}
}

func TestIntakeHandler_ListIntakes(t *testing.T) {
	logger := helpers.TestLogger()

	t.Run("filters_by_lot_code", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockIntakeService(ctrl)
		mockService.EXPECT().
			Search(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ interface{}, params ports.IntakeSearchParams) ([]domain.Intake, error) {
				assert.Equal(t, "2026-1", params.LotCode)
				return []domain.Intake{*recordedIntake()}, nil
			})

		handler := handlers.NewIntakeHandler(mockService, nil, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/intakes?lot_code=2026-1", nil)
		w := httptest.NewRecorder()

		handler.ListIntakes(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Intakes []domain.Intake `json:"intakes"`
			Count   int             `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("rejects_bad_book_id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockIntakeService(ctrl)
		handler := handlers.NewIntakeHandler(mockService, nil, logger)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/intakes?book_id=abc", nil)
		w := httptest.NewRecorder()

		handler.ListIntakes(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
