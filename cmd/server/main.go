package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"crypto_backend/internal/app/di"
	"crypto_backend/internal/app/router"
	"crypto_backend/internal/config"
	infradb "crypto_backend/internal/platform/db"
	jwtmw "crypto_backend/internal/platform/jwt"
	infraredis "crypto_backend/internal/platform/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	settings, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal("failed to load settings: ", err)
	}

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

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(ctx, infraredis.LoadConfigFromEnv()); err != nil {
		log.Println("[WARN] Redis unavailable. Running without cache.")
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
	handlers := di.NewHandlers(repos, pipeline)

	readiness, err := di.NewReadinessChecks(db, rdb)
	if err != nil {
		log.Fatal(err)
	}

	// ルータ生成
	r := router.NewRouter(handlers.Candles, handlers.Symbols, handlers.Sync, router.Options{
		AllowOrigins: settings.Server.AllowOrigins,
		Readiness:    readiness,
	})

	// JWT_SECRETチェック（未設定だと POST /sync は常に500）
	if os.Getenv(jwtmw.EnvKeyJWTSecret) == "" {
		log.Println("[WARN] JWT_SECRET is not set. POST /sync is unavailable.")
	}

	srv := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()
	log.Println("[INFO] listening on", settings.Server.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("[ERROR] server shutdown:", err)
	}
	// 実行中の同期を中断し、ロック解放と実行ログの書き込みを待つ
	if err := pipeline.Shutdown(shutdownCtx); err != nil {
		log.Println("[ERROR] pipeline shutdown:", err)
	}
}
