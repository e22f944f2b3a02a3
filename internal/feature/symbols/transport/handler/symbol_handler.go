package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"crypto_backend/internal/feature/symbols/domain/entity"
	"crypto_backend/internal/feature/symbols/transport/http/dto"
)

// SymbolUsecase は銘柄情報に関するユースケースのインターフェースです。
// Goの慣例に従い、インターフェースは利用者側で定義します。
type SymbolUsecase interface {
	ListActiveSymbols(ctx context.Context) ([]entity.Symbol, error)
}

// SymbolHandler は銘柄情報に関するHTTPリクエストを処理します。
type SymbolHandler struct {
	uc SymbolUsecase
}

// NewSymbolHandler は新しい SymbolHandler を作成します。
func NewSymbolHandler(uc SymbolUsecase) *SymbolHandler {
	return &SymbolHandler{uc: uc}
}

// List はrank順のアクティブな銘柄一覧を同期状況とともに返します。
// Usecaseでエラーが発生した場合は500 Internal Server Errorを返します。
func (h *SymbolHandler) List(c *gin.Context) {
	symbols, err := h.uc.ListActiveSymbols(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]dto.SymbolItem, 0, len(symbols))
	for _, s := range symbols {
		item := dto.SymbolItem{
			Symbol:       s.Symbol,
			Name:         s.Name,
			Rank:         s.Rank,
			TradingPairs: s.TradingPairs,
			TotalRecords: s.TotalRecords,
		}
		if s.LastSyncDate != nil {
			d := s.LastSyncDate.UTC().Format("2006-01-02")
			item.LastSyncDate = &d
		}
		if item.TradingPairs == nil {
			item.TradingPairs = map[string]string{}
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, out)
}
