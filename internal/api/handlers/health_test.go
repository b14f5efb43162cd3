package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/netinventory/internal/logging"
)

// MockDB is a mock implementation of Pinger.
type MockDB struct {
	mock.Mock
}

func (m *MockDB) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type fixedJobs int

func (f fixedJobs) ActiveCount() int { return int(f) }

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		name           string
		setupDB        func() Pinger
		expectedStatus int
		expectedCheck  string
	}{
		{
			name: "healthy system",
			setupDB: func() Pinger {
				db := &MockDB{}
				db.On("Ping", mock.Anything).Return(nil)
				return db
			},
			expectedStatus: http.StatusOK,
			expectedCheck:  "ok",
		},
		{
			name: "database down",
			setupDB: func() Pinger {
				db := &MockDB{}
				db.On("Ping", mock.Anything).Return(errors.New("connection refused"))
				return db
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedCheck:  "failed: connection refused",
		},
		{
			name:           "no database configured",
			setupDB:        func() Pinger { return nil },
			expectedStatus: http.StatusOK,
			expectedCheck:  StatusNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.setupDB(), fixedJobs(2), logging.NewDiscard())

			rec := httptest.NewRecorder()
			handler.Health(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			var response HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedCheck, response.Checks["database"])
			assert.Equal(t, 2, response.ActiveJobs)
		})
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	db := &MockDB{}
	handler := NewHealthHandler(db, nil, logging.NewDiscard())

	rec := httptest.NewRecorder()
	handler.Liveness(rec, httptest.NewRequest(http.MethodGet, "/api/v1/liveness", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var response LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "alive", response.Status)
	db.AssertNotCalled(t, "Ping", mock.Anything)
}
