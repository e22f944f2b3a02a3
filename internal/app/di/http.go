package di

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	candleshandler "crypto_backend/internal/feature/candles/transport/handler"
	candlesusecase "crypto_backend/internal/feature/candles/usecase"
	symbolshandler "crypto_backend/internal/feature/symbols/transport/handler"
	symbolsusecase "crypto_backend/internal/feature/symbols/usecase"
	synchandler "crypto_backend/internal/feature/sync/transport/handler"
	syncusecase "crypto_backend/internal/feature/sync/usecase"
	healthhandler "crypto_backend/internal/platform/http/handler"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Candles *candleshandler.CandlesHandler
	Symbols *symbolshandler.SymbolHandler
	Sync    *synchandler.SyncHandler
}

// NewHandlers creates the HTTP handlers on top of the repositories and pipeline.
func NewHandlers(repos *Repositories, pipeline *syncusecase.PipelineUsecase) *Handlers {
	return &Handlers{
		Candles: candleshandler.NewCandlesHandler(candlesusecase.NewCandlesUsecase(repos.OHLCV)),
		Symbols: symbolshandler.NewSymbolHandler(symbolsusecase.NewSymbolUsecase(repos.Symbols)),
		Sync:    synchandler.NewSyncHandler(pipeline, syncusecase.NewRunsUsecase(repos.RunLogs)),
	}
}

// redisPinger adapts a redis client to the readiness check.
type redisPinger struct {
	rdb *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// NewReadinessChecks returns the dependencies checked by /readyz.
// Redis is reported as disabled when rdb is nil.
func NewReadinessChecks(db *gorm.DB, rdb *redis.Client) (map[string]healthhandler.Pinger, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	checks := map[string]healthhandler.Pinger{"database": sqlDB, "redis": nil}
	if rdb != nil {
		checks["redis"] = redisPinger{rdb: rdb}
	}
	return checks, nil
}
