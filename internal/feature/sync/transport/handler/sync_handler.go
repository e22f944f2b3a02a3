package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"crypto_backend/internal/feature/sync/domain"
	"crypto_backend/internal/feature/sync/domain/entity"
	"crypto_backend/internal/feature/sync/transport/http/dto"
)

// PipelineStarter はパイプライン実行をバックグラウンドで開始します。
type PipelineStarter interface {
	Start(ctx context.Context) (string, error)
}

// RunsUsecase は実行ログの参照を提供します。
type RunsUsecase interface {
	ListRuns(ctx context.Context, limit int) ([]entity.RunLog, error)
}

// SyncHandler serves the pipeline trigger and the run log.
type SyncHandler struct {
	pipeline PipelineStarter
	runs     RunsUsecase
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(pipeline PipelineStarter, runs RunsUsecase) *SyncHandler {
	return &SyncHandler{pipeline: pipeline, runs: runs}
}

// StartSync は POST /sync を処理します。
// 実行中のパイプラインがあれば409、開始できれば202を返します。
func (h *SyncHandler) StartSync(c *gin.Context) {
	// the run must outlive this request
	runID, err := h.pipeline.Start(context.WithoutCancel(c.Request.Context()))
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, dto.SyncStartedResponse{RunID: runID, Status: "started"})
}

// ListRuns は GET /runs?limit=N を処理します。
func (h *SyncHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}

	out := make([]dto.RunLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.RunLogResponse{
			RunID:            l.RunID,
			Stage:            string(l.Stage),
			Status:           string(l.Status),
			SymbolsProcessed: l.SymbolsProcessed,
			RecordsWritten:   l.RecordsWritten,
			ErrorsCount:      l.ErrorsCount,
			ErrorMessage:     l.ErrorMessage,
			Metadata:         l.Metadata,
			StartedAt:        l.StartedAt.UTC(),
			FinishedAt:       l.FinishedAt.UTC(),
		})
	}
	c.JSON(http.StatusOK, out)
}
