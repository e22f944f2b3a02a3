// Package router はHTTPルーティングを定義します。
package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	candleshandler "crypto_backend/internal/feature/candles/transport/handler"
	symbolshandler "crypto_backend/internal/feature/symbols/transport/handler"
	synchandler "crypto_backend/internal/feature/sync/transport/handler"
	"crypto_backend/internal/platform/http/handler"
	jwtmw "crypto_backend/internal/platform/jwt"
)

// Options holds router settings that do not come from handlers.
type Options struct {
	// AllowOrigins enables CORS for the listed origins. Empty disables CORS.
	AllowOrigins []string
	// Readiness lists the dependencies checked by /readyz.
	Readiness map[string]handler.Pinger
}

func NewRouter(candles *candleshandler.CandlesHandler, symbol *symbolshandler.SymbolHandler,
	sync *synchandler.SyncHandler, opts Options) *gin.Engine {
	r := gin.Default()

	if len(opts.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.AllowOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Authorization", "Content-Type"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)
	r.HEAD("/healthz", handler.Health)
	r.GET("/readyz", handler.Readiness(opts.Readiness))

	// 参照系
	r.GET("/symbols", symbol.List)
	r.GET("/candles/:symbol", candles.GetCandlesHandler)
	r.GET("/runs", sync.ListRuns)

	// 同期の起動は sync スコープを持つトークンが必要
	ops := r.Group("/")
	ops.Use(jwtmw.RequireScope(jwtmw.ScopeSync))
	{
		ops.POST("/sync", sync.StartSync)
	}

	return r
}
