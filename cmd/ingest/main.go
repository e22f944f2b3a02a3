package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"crypto_backend/internal/app/di"
	"crypto_backend/internal/config"
	infradb "crypto_backend/internal/platform/db"
	infraredis "crypto_backend/internal/platform/redis"
)

func main() {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	settings, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal("failed to load settings: ", err)
	}

	// SIGINT/SIGTERM で新規タスクの投入を止め、実行中のタスクを打ち切る
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db, err := infradb.OpenDB(infradb.LoadConfigFromEnv())
	if err != nil {
		log.Fatal("failed to connect database: ", err)
	}
	if err := di.MigrateIfEnabled(db); err != nil {
		log.Fatal(err)
	}

	// Redis（なくても動作する）
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx, infraredis.LoadConfigFromEnv()); err != nil {
		log.Println("[WARN] Redis unavailable. Running without cache and distributed run lock.")
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Println("[ERROR] Failed to close Redis client:", err)
			}
		}()
	}

	markets, err := di.NewMarkets(settings, rdb)
	if err != nil {
		log.Fatal(err)
	}
	repos := di.NewRepositories(db, rdb, settings)
	pipeline := di.NewPipeline(repos, markets, rdb, settings)

	res, err := pipeline.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("pipeline run failed: ", err)
	}

	slog.Info("run summary",
		"run_id", res.RunID,
		"interrupted", res.Interrupted,
		"directory_symbols", len(res.Directory.Symbols),
		"no_prior_data", res.Plan.NoPriorData,
		"incremental", res.Plan.Incremental,
		"up_to_date", res.Plan.UpToDate,
		"succeeded", res.Stats.Succeeded,
		"failed", res.Stats.Failed(),
		"skipped", res.Stats.Skipped,
		"not_dispatched", res.Stats.NotDispatched,
		"records_written", res.Stats.RecordsWritten,
		"per_source", res.Stats.PerSource,
		"duration", res.Stats.Duration(),
	)
}
