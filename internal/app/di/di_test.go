package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"crypto_backend/internal/config"
)

func TestNewMarkets_SourcePriority(t *testing.T) {
	t.Parallel()

	s := config.Default()
	m, err := NewMarkets(s, nil)
	require.NoError(t, err)

	names := make([]string, 0, len(m.Sources))
	for _, src := range m.Sources {
		names = append(names, src.Name())
	}
	assert.Equal(t, []string{"binance", "coinbase", "kraken", "coingecko"}, names)
	assert.Len(t, m.Loaders, 3)
	assert.NotNil(t, m.Listing)
}

func TestNewMarkets_DisabledAndNoFallback(t *testing.T) {
	t.Parallel()

	off := false
	s := config.Default()
	s.CoinGecko.OHLCVFallback = &off
	s.Exchanges[0].Disabled = true

	m, err := NewMarkets(s, nil)
	require.NoError(t, err)

	names := make([]string, 0, len(m.Sources))
	for _, src := range m.Sources {
		names = append(names, src.Name())
	}
	assert.Equal(t, []string{"coinbase", "kraken"}, names)
}

func TestNewMarkets_UnknownExchange(t *testing.T) {
	t.Parallel()

	s := config.Default()
	s.Exchanges = append(s.Exchanges, config.ExchangeConfig{Name: "ftx"})

	_, err := NewMarkets(s, nil)
	assert.ErrorContains(t, err, `unsupported exchange "ftx"`)
}

func TestMigrate_AndWirePipeline(t *testing.T) {
	t.Parallel()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"symbols", "ohlcv_daily", "pipeline_logs"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	s := config.Default()
	m, err := NewMarkets(s, nil)
	require.NoError(t, err)
	repos := NewRepositories(db, nil, s)
	pipeline := NewPipeline(repos, m, nil, s)
	handlers := NewHandlers(repos, pipeline)

	assert.NotNil(t, pipeline)
	assert.NotNil(t, handlers.Candles)
	assert.NotNil(t, handlers.Symbols)
	assert.NotNil(t, handlers.Sync)

	checks, err := NewReadinessChecks(db, nil)
	require.NoError(t, err)
	assert.Nil(t, checks["redis"])
	assert.NotNil(t, checks["database"])
}

func TestMigrateIfEnabled_Disabled(t *testing.T) {
	t.Setenv(EnvKeyRunMigrations, "")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, MigrateIfEnabled(db))
	assert.False(t, db.Migrator().HasTable("symbols"))
}
