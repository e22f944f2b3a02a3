package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"crypto_backend/internal/feature/candles/domain"
	"crypto_backend/internal/feature/candles/domain/entity"
	candlesusecase "crypto_backend/internal/feature/candles/usecase"
	symbolsusecase "crypto_backend/internal/feature/symbols/usecase"
	"crypto_backend/internal/platform/externalapi"
	"crypto_backend/internal/platform/externalapi/coinbase/dto"
	"crypto_backend/internal/shared/ratelimiter"
)

// Client はCoinbase ExchangeのREST APIから日足とプロダクト一覧を取得します。
type Client struct {
	cfg    Config
	client *http.Client
	pacer  ratelimiter.Limiter
}

var (
	_ candlesusecase.Source          = (*Client)(nil)
	_ symbolsusecase.MarketSetLoader = (*Client)(nil)
)

// NewClient は指定された設定とHTTPクライアントでClientを生成します。
func NewClient(cfg Config, client *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		cfg:    cfg,
		client: client,
		pacer:  ratelimiter.NewPacer(cfg.RequestDelay),
	}
}

func (c *Client) Name() string          { return Name }
func (c *Client) QuoteCurrency() string { return QuoteCurrency }
func (c *Client) MaxPageSize() int      { return MaxCandles }
func (c *Client) Windowed() bool        { return true }

// Pair returns the resolved product id or BASE-USD.
func (c *Client) Pair(ref entity.SymbolRef) (string, bool) {
	return ref.ResolvePair(Name, ref.Base()+"-"+QuoteCurrency)
}

// FetchPage は /products/{id}/candles から日足を取得し、古い順に並べて返します。
// Coinbase は新しい順で返すため並べ替えが必要です。
func (c *Client) FetchPage(ctx context.Context, req candlesusecase.PageRequest) ([]entity.Candle, error) {
	limit := req.Limit
	if limit <= 0 || limit > MaxCandles {
		limit = MaxCandles
	}

	start := req.Since.UTC()
	end := start.AddDate(0, 0, limit).Add(-time.Second)
	if !req.Until.IsZero() && req.Until.Add(-time.Second).Before(end) {
		end = req.Until.Add(-time.Second).UTC()
	}

	q := url.Values{}
	q.Set("granularity", strconv.Itoa(dailyGranularity))
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))

	var rows []dto.Candle
	if err := c.get(ctx, "/products/"+url.PathEscape(req.Pair)+"/candles", q, &rows); err != nil {
		return nil, err
	}

	candles := make([]entity.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("coinbase %s: candle has %d fields", req.Pair, len(row))
		}
		candles = append(candles, entity.Candle{
			Time:   time.Unix(int64(row[0]), 0).UTC(),
			Low:    row[1],
			High:   row[2],
			Open:   row[3],
			Close:  row[4],
			Volume: row[5],
		})
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	return candles, nil
}

// LoadQuoteMarkets は USD 建てでオンラインのプロダクトを base ごとに返します。
func (c *Client) LoadQuoteMarkets(ctx context.Context) (map[string]string, error) {
	var products []dto.Product
	if err := c.get(ctx, "/products", nil, &products); err != nil {
		return nil, err
	}

	markets := make(map[string]string, len(products))
	for _, p := range products {
		if p.QuoteCurrency != QuoteCurrency || p.TradingDisabled || p.Status != "online" {
			continue
		}
		markets[strings.ToUpper(p.BaseCurrency)] = p.ID
	}
	return markets, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	u := c.cfg.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", externalapi.UserAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return externalapi.TransportError(ctx, Name, err)
	}
	defer externalapi.CloseBody(Name, res.Body)

	if res.StatusCode >= 400 {
		body := externalapi.ReadErrorBody(res.Body)
		if res.StatusCode == http.StatusNotFound {
			var apiErr dto.APIError
			_ = json.Unmarshal(body, &apiErr)
			return fmt.Errorf("coinbase %s: %s: %w", path, apiErr.Message, domain.ErrUnsupportedPair)
		}
		return externalapi.StatusError(Name, res.StatusCode, body)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("coinbase decode %s: %w", path, err)
	}
	return nil
}
