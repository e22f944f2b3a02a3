package di

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"crypto_backend/internal/config"
	candlesadapters "crypto_backend/internal/feature/candles/adapters"
	candlesusecase "crypto_backend/internal/feature/candles/usecase"
	symbolsadapters "crypto_backend/internal/feature/symbols/adapters"
	symbolsusecase "crypto_backend/internal/feature/symbols/usecase"
	syncadapters "crypto_backend/internal/feature/sync/adapters"
	syncusecase "crypto_backend/internal/feature/sync/usecase"
	"crypto_backend/internal/platform/cache"
)

// Repositories groups the gorm repositories shared by the pipeline and the API.
type Repositories struct {
	Symbols symbolsRepository
	OHLCV   *cache.CachingOHLCVRepository
	RunLogs runLogRepository
}

type symbolsRepository interface {
	symbolsusecase.SymbolRepository
	symbolsusecase.SymbolWriter
	syncusecase.LastSyncReader
	candlesusecase.SyncMarker
}

type runLogRepository interface {
	syncusecase.RunLogWriter
	syncusecase.RunLogReader
}

// NewRepositories creates the repositories. OHLCV reads are cached in Redis
// when rdb is not nil.
func NewRepositories(db *gorm.DB, rdb *redis.Client, s *config.Settings) *Repositories {
	return &Repositories{
		Symbols: symbolsadapters.NewSymbolRepository(db),
		OHLCV:   cache.NewCachingOHLCVRepository(rdb, s.Redis.OHLCVTTL, candlesadapters.NewOHLCVRepository(db), "ohlcv"),
		RunLogs: syncadapters.NewRunLogRepository(db),
	}
}

// NewPipeline wires the directory, planner, fetcher, persister and
// orchestrator into a PipelineUsecase. rdb may be nil, in which case runs are
// serialized only within this process.
func NewPipeline(repos *Repositories, markets *Markets, rdb *redis.Client, s *config.Settings) *syncusecase.PipelineUsecase {
	directory := symbolsusecase.NewDirectoryUsecase(markets.Listing, markets.Loaders, repos.Symbols, symbolsusecase.DirectoryConfig{
		MinVolume24h:    s.Directory.MinVolume24h,
		MinMarketCap:    s.Directory.MinMarketCap,
		PageConcurrency: s.Directory.PageConcurrency,
	})

	planner := syncusecase.NewPlanner(repos.Symbols, s.Sync.LookbackDays(), nil)

	fetcher := candlesusecase.NewExchangeFetcher(markets.Sources, candlesusecase.FetcherConfig{
		PageLimit:  s.Sync.PageLimit,
		MaxRetries: s.Sync.MaxRetries,
		RetryDelay: s.Sync.RetryDelay,
	})
	slog.Info("exchange sources configured", "priority", fetcher.Sources())

	persister := candlesusecase.NewPersister(repos.OHLCV, repos.Symbols, candlesusecase.PersisterConfig{
		BatchSize:    s.Sync.BatchSize,
		MaxMagnitude: s.Sync.MaxMagnitude,
	})

	orchestrator := syncusecase.NewOrchestrator(fetcher, persister, syncusecase.OrchestratorConfig{
		MaxConcurrency: s.Sync.MaxConcurrency,
		TaskDelay:      s.Sync.TaskDelay,
	}, nil)

	var lock syncusecase.RunLock
	if rdb != nil {
		lock = cache.NewRunLock(rdb, s.Redis.LockKey, s.Redis.LockTTL)
	}

	return syncusecase.NewPipelineUsecase(directory, repos.Symbols, planner, orchestrator, repos.RunLogs, lock, syncusecase.PipelineConfig{
		TargetCount:       s.CoinGecko.TargetCount,
		PageSize:          s.CoinGecko.PageSize,
		LockRenewInterval: s.Redis.LockTTL / 3,
	})
}
