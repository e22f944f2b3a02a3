package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto_backend/internal/feature/candles/domain"
	"crypto_backend/internal/feature/candles/domain/entity"
	candlesusecase "crypto_backend/internal/feature/candles/usecase"
	symbolsusecase "crypto_backend/internal/feature/symbols/usecase"
	"crypto_backend/internal/platform/externalapi"
	"crypto_backend/internal/platform/externalapi/binance/dto"
	"crypto_backend/internal/shared/ratelimiter"
)

// codeInvalidSymbol is returned for pairs Binance does not list.
const codeInvalidSymbol = -1121

// Client はBinanceのREST APIから日足と取引ペア一覧を取得します。
type Client struct {
	cfg    Config
	client *http.Client
	pacer  ratelimiter.Limiter
}

// Clientがソースおよびマーケット一覧ローダーを実装していることをコンパイル時に検証します。
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
func (c *Client) MaxPageSize() int      { return MaxKlines }
func (c *Client) Windowed() bool        { return false }

// Pair returns the resolved pair or BASE+USDT when the directory did not resolve Binance.
func (c *Client) Pair(ref entity.SymbolRef) (string, bool) {
	return ref.ResolvePair(Name, ref.Base()+QuoteCurrency)
}

// FetchPage は /api/v3/klines から日足を取得します。
func (c *Client) FetchPage(ctx context.Context, req candlesusecase.PageRequest) ([]entity.Candle, error) {
	limit := req.Limit
	if limit <= 0 || limit > MaxKlines {
		limit = MaxKlines
	}

	q := url.Values{}
	q.Set("symbol", req.Pair)
	q.Set("interval", "1d")
	q.Set("startTime", strconv.FormatInt(req.Since.UnixMilli(), 10))
	if !req.Until.IsZero() {
		q.Set("endTime", strconv.FormatInt(req.Until.UnixMilli()-1, 10))
	}
	q.Set("limit", strconv.Itoa(limit))

	var rows []dto.Kline
	if err := c.get(ctx, "/api/v3/klines", q, &rows); err != nil {
		return nil, err
	}

	candles := make([]entity.Candle, 0, len(rows))
	for _, row := range rows {
		cd, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("binance %s: %w", req.Pair, err)
		}
		candles = append(candles, cd)
	}
	return candles, nil
}

// LoadQuoteMarkets は USDT 建てで取引中のペアを base asset ごとに返します。
func (c *Client) LoadQuoteMarkets(ctx context.Context) (map[string]string, error) {
	var info dto.ExchangeInfo
	if err := c.get(ctx, "/api/v3/exchangeInfo", nil, &info); err != nil {
		return nil, err
	}

	markets := make(map[string]string, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.QuoteAsset != QuoteCurrency || s.Status != "TRADING" {
			continue
		}
		markets[strings.ToUpper(s.BaseAsset)] = s.Symbol
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

	res, err := c.client.Do(req)
	if err != nil {
		return externalapi.TransportError(ctx, Name, err)
	}
	defer externalapi.CloseBody(Name, res.Body)

	if res.StatusCode >= 400 {
		body := externalapi.ReadErrorBody(res.Body)
		var apiErr dto.APIError
		if res.StatusCode == http.StatusBadRequest && json.Unmarshal(body, &apiErr) == nil && apiErr.Code == codeInvalidSymbol {
			return fmt.Errorf("binance %s: %s: %w", q.Get("symbol"), apiErr.Msg, domain.ErrUnsupportedPair)
		}
		return externalapi.StatusError(Name, res.StatusCode, body)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("binance decode %s: %w", path, err)
	}
	return nil
}

func parseKline(row dto.Kline) (entity.Candle, error) {
	if len(row) < 6 {
		return entity.Candle{}, fmt.Errorf("kline has %d fields", len(row))
	}

	var openTime int64
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return entity.Candle{}, fmt.Errorf("parse open time %s: %w", row[0], err)
	}

	names := [5]string{"open", "high", "low", "close", "volume"}
	var vals [5]float64
	for i, name := range names {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return entity.Candle{}, fmt.Errorf("parse %s %s: %w", name, row[i+1], err)
		}
		v, err := externalapi.ParseFloat(name, s)
		if err != nil {
			return entity.Candle{}, err
		}
		vals[i] = v
	}

	return entity.Candle{
		Time:   time.UnixMilli(openTime).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
