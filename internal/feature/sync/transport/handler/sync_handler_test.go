package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"crypto_backend/internal/feature/sync/domain"
	"crypto_backend/internal/feature/sync/domain/entity"
	"crypto_backend/internal/feature/sync/transport/handler"
)

type mockPipelineStarter struct {
	StartFunc func(ctx context.Context) (string, error)
}

func (m *mockPipelineStarter) Start(ctx context.Context) (string, error) {
	return m.StartFunc(ctx)
}

type mockRunsUsecase struct {
	ListRunsFunc func(ctx context.Context, limit int) ([]entity.RunLog, error)
}

func (m *mockRunsUsecase) ListRuns(ctx context.Context, limit int) ([]entity.RunLog, error) {
	return m.ListRunsFunc(ctx, limit)
}

func TestSyncHandler_StartSync(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		startFunc      func(ctx context.Context) (string, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "success: run started",
			startFunc:      func(ctx context.Context) (string, error) { return "run-42", nil },
			expectedStatus: http.StatusAccepted,
			expectedBody:   `{"run_id":"run-42","status":"started"}`,
		},
		{
			name:           "conflict: run already in progress",
			startFunc:      func(ctx context.Context) (string, error) { return "", domain.ErrRunInProgress },
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"a pipeline run is already in progress"}`,
		},
		{
			name:           "error: lock backend failure",
			startFunc:      func(ctx context.Context) (string, error) { return "", errors.New("acquire run lock: dial tcp: refused") },
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"acquire run lock: dial tcp: refused"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewSyncHandler(&mockPipelineStarter{StartFunc: tt.startFunc}, nil)

			router := gin.New()
			router.POST("/sync", h.StartSync)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/sync", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestSyncHandler_StartSync_DetachesFromRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var runCtx context.Context
	h := handler.NewSyncHandler(&mockPipelineStarter{StartFunc: func(ctx context.Context) (string, error) {
		runCtx = ctx
		return "run-1", nil
	}}, nil)

	router := gin.New()
	router.POST("/sync", h.StartSync)

	reqCtx, cancel := context.WithCancel(context.Background())
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(reqCtx, http.MethodPost, "/sync", nil)
	router.ServeHTTP(w, req)
	cancel()

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.NoError(t, runCtx.Err())
}

func TestSyncHandler_ListRuns(t *testing.T) {
	gin.SetMode(gin.TestMode)

	started := time.Date(2024, 1, 10, 2, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		url            string
		listFunc       func(ctx context.Context, limit int) ([]entity.RunLog, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success: entries mapped to response",
			url:  "/runs?limit=5",
			listFunc: func(ctx context.Context, limit int) ([]entity.RunLog, error) {
				assert.Equal(t, 5, limit)
				return []entity.RunLog{{
					ID: 7, RunID: "run-1", Stage: entity.StageFill, Status: entity.RunSuccess,
					SymbolsProcessed: 900, RecordsWritten: 12000, ErrorsCount: 4,
					StartedAt: started, FinishedAt: started.Add(time.Hour),
				}}, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody: `[{"run_id":"run-1","stage":"fill","status":"success","symbols_processed":900,"records_written":12000,"errors_count":4,
				"started_at":"2024-01-10T02:00:00Z","finished_at":"2024-01-10T03:00:00Z"}]`,
		},
		{
			name: "success: default limit",
			url:  "/runs",
			listFunc: func(ctx context.Context, limit int) ([]entity.RunLog, error) {
				assert.Equal(t, 50, limit)
				return nil, nil
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `[]`,
		},
		{
			name: "error: usecase returns error",
			url:  "/runs",
			listFunc: func(ctx context.Context, limit int) ([]entity.RunLog, error) {
				return nil, errors.New("database unavailable")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"database unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewSyncHandler(nil, &mockRunsUsecase{ListRunsFunc: tt.listFunc})

			router := gin.New()
			router.GET("/runs", h.ListRuns)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}
