package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"crypto_backend/internal/feature/candles/domain/entity"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	err = db.AutoMigrate(&OHLCVModel{})
	require.NoError(t, err, "failed to migrate table")

	return db
}

func record(symbol, exchange string, d time.Time, price float64) entity.OHLCVRecord {
	c := decimal.NewFromFloat(price)
	return entity.OHLCVRecord{
		Symbol:        symbol,
		Name:          symbol + " coin",
		Date:          d,
		Exchange:      exchange,
		QuoteCurrency: "USDT",
		Open:          c,
		High:          c,
		Low:           c,
		Close:         c,
		Volume:        decimal.NewFromInt(10),
		IsActive:      true,
	}
}

func TestNewOHLCVRepository(t *testing.T) {
	db := setupTestDB(t)

	repo := NewOHLCVRepository(db)

	assert.NotNil(t, repo, "repository is nil")
	assert.NotNil(t, repo.db, "database connection is nil")
}

func TestOHLCVMySQL_UpsertOHLCV(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		records      []entity.OHLCVRecord
		setupFunc    func(t *testing.T, repo *ohlcvMySQL)
		validateFunc func(t *testing.T, db *gorm.DB)
	}{
		{
			name:    "success: insert multiple records",
			records: []entity.OHLCVRecord{record("BTC", "binance", base, 100), record("BTC", "binance", base.AddDate(0, 0, 1), 101)},
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var count int64
				db.Model(&OHLCVModel{}).Count(&count)
				assert.Equal(t, int64(2), count)
			},
		},
		{
			name:    "success: empty slice",
			records: []entity.OHLCVRecord{},
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var count int64
				db.Model(&OHLCVModel{}).Count(&count)
				assert.Zero(t, count)
			},
		},
		{
			name:    "success: same date on another exchange is a separate row",
			records: []entity.OHLCVRecord{record("BTC", "kraken", base, 99)},
			setupFunc: func(t *testing.T, repo *ohlcvMySQL) {
				require.NoError(t, repo.UpsertOHLCV(context.Background(), []entity.OHLCVRecord{record("BTC", "binance", base, 100)}))
			},
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var count int64
				db.Model(&OHLCVModel{}).Count(&count)
				assert.Equal(t, int64(2), count)
			},
		},
		{
			name:    "success: upsert updates values and keeps one row",
			records: []entity.OHLCVRecord{record("BTC", "binance", base, 200.12345678)},
			setupFunc: func(t *testing.T, repo *ohlcvMySQL) {
				require.NoError(t, repo.UpsertOHLCV(context.Background(), []entity.OHLCVRecord{record("BTC", "binance", base, 100)}))
			},
			validateFunc: func(t *testing.T, db *gorm.DB) {
				var rows []OHLCVModel
				require.NoError(t, db.Find(&rows).Error)
				require.Len(t, rows, 1)
				assert.True(t, rows[0].Close.Equal(decimal.RequireFromString("200.12345678")), "close %s", rows[0].Close)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db := setupTestDB(t)
			repo := NewOHLCVRepository(db)

			if tt.setupFunc != nil {
				tt.setupFunc(t, repo)
			}

			err := repo.UpsertOHLCV(context.Background(), tt.records)
			require.NoError(t, err)
			tt.validateFunc(t, db)
		})
	}
}

func TestOHLCVMySQL_UpsertIsIdempotent(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewOHLCVRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	batch := []entity.OHLCVRecord{
		record("BTC", "binance", base, 1),
		record("BTC", "binance", base.AddDate(0, 0, 1), 2),
		record("BTC", "binance", base.AddDate(0, 0, 2), 3),
	}

	require.NoError(t, repo.UpsertOHLCV(ctx, batch))
	first, err := repo.CountBySymbol(ctx, "BTC")
	require.NoError(t, err)

	require.NoError(t, repo.UpsertOHLCV(ctx, batch))
	second, err := repo.CountBySymbol(ctx, "BTC")
	require.NoError(t, err)

	assert.Equal(t, int64(3), first)
	assert.Equal(t, first, second)
}

func TestOHLCVMySQL_CountBySymbol(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewOHLCVRepository(db)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertOHLCV(ctx, []entity.OHLCVRecord{
		record("BTC", "binance", base, 1),
		record("BTC", "coinbase", base, 1),
		record("ETH", "binance", base, 1),
	}))

	n, err := repo.CountBySymbol(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.CountBySymbol(ctx, "DOGE")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOHLCVMySQL_Find(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []entity.OHLCVRecord{
		record("BTC", "binance", base, 1),
		record("BTC", "binance", base.AddDate(0, 0, 2), 3),
		record("BTC", "binance", base.AddDate(0, 0, 1), 2),
		record("BTC", "kraken", base.AddDate(0, 0, 3), 4),
		record("ETH", "binance", base, 10),
	}

	tests := []struct {
		name         string
		symbol       string
		exchange     string
		limit        int
		validateFunc func(t *testing.T, records []entity.OHLCVRecord)
	}{
		{
			name:     "success: filter by symbol and exchange in ascending order",
			symbol:   "BTC",
			exchange: "binance",
			limit:    10,
			validateFunc: func(t *testing.T, records []entity.OHLCVRecord) {
				require.Len(t, records, 3)
				assert.Equal(t, base, records[0].Date)
				assert.Equal(t, base.AddDate(0, 0, 2), records[2].Date)
			},
		},
		{
			name:   "success: empty exchange returns all exchanges",
			symbol: "BTC",
			limit:  10,
			validateFunc: func(t *testing.T, records []entity.OHLCVRecord) {
				assert.Len(t, records, 4)
				assert.Equal(t, "kraken", records[3].Exchange)
			},
		},
		{
			name:     "success: limit keeps the newest rows",
			symbol:   "BTC",
			exchange: "binance",
			limit:    2,
			validateFunc: func(t *testing.T, records []entity.OHLCVRecord) {
				require.Len(t, records, 2)
				assert.Equal(t, base.AddDate(0, 0, 1), records[0].Date)
				assert.Equal(t, base.AddDate(0, 0, 2), records[1].Date)
			},
		},
		{
			name:   "success: unknown symbol returns empty slice",
			symbol: "NOTFOUND",
			limit:  10,
			validateFunc: func(t *testing.T, records []entity.OHLCVRecord) {
				assert.Empty(t, records)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db := setupTestDB(t)
			repo := NewOHLCVRepository(db)
			require.NoError(t, repo.UpsertOHLCV(context.Background(), seed))

			records, err := repo.Find(context.Background(), tt.symbol, tt.exchange, tt.limit)
			require.NoError(t, err)
			tt.validateFunc(t, records)
		})
	}
}

func TestOHLCVMySQL_Find_EntityMapping(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	repo := NewOHLCVRepository(db)

	d := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	in := record("SOL", "coinbase", d, 150.5)
	in.QuoteCurrency = "USD"
	require.NoError(t, repo.UpsertOHLCV(context.Background(), []entity.OHLCVRecord{in}))

	result, err := repo.Find(context.Background(), "SOL", "coinbase", 1)
	require.NoError(t, err)
	require.Len(t, result, 1)

	got := result[0]
	assert.Equal(t, "SOL", got.Symbol)
	assert.Equal(t, "SOL coin", got.Name)
	assert.Equal(t, "coinbase", got.Exchange)
	assert.Equal(t, "USD", got.QuoteCurrency)
	assert.Equal(t, d.Unix(), got.Date.Unix())
	assert.True(t, got.Close.Equal(decimal.NewFromFloat(150.5)))
	assert.True(t, got.Volume.Equal(decimal.NewFromInt(10)))
	assert.True(t, got.IsActive)
}
