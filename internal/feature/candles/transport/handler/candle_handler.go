// Package handler はcandlesフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"crypto_backend/internal/feature/candles/domain/entity"
	"crypto_backend/internal/feature/candles/transport/http/dto"
)

// CandlesUsecase は保存済み日足の参照ユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type CandlesUsecase interface {
	GetCandles(ctx context.Context, symbol, exchange string, limit int) ([]entity.OHLCVRecord, error)
}

// CandlesHandler は日足データのHTTPリクエストを処理します。
type CandlesHandler struct {
	uc CandlesUsecase
}

// NewCandlesHandler は指定されたusecaseでCandlesHandlerの新しいインスタンスを生成します。
func NewCandlesHandler(uc CandlesUsecase) *CandlesHandler {
	return &CandlesHandler{uc: uc}
}

// GetCandlesHandler はシンボルを受け取り、保存済みの日足データをJSONで返します。
//
// エンドポイント例:
// GET /candles/:symbol?exchange=binance&limit=200
func (h *CandlesHandler) GetCandlesHandler(c *gin.Context) {
	symbol := c.Param("symbol")
	exchange := c.Query("exchange")
	// 不正な値は0になり、usecase側でデフォルト値に置き換えられる
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))

	records, err := h.uc.GetCandles(c.Request.Context(), symbol, exchange, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}

	out := make([]dto.CandleResponse, 0, len(records))
	for _, r := range records {
		out = append(out, dto.CandleResponse{
			Date:          r.Date.UTC().Format(time.DateOnly),
			Exchange:      r.Exchange,
			QuoteCurrency: r.QuoteCurrency,
			Open:          r.Open.String(),
			High:          r.High.String(),
			Low:           r.Low.String(),
			Close:         r.Close.String(),
			Volume:        r.Volume.String(),
		})
	}

	c.JSON(http.StatusOK, out)
}
