package coingecko

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
	symbolentity "crypto_backend/internal/feature/symbols/domain/entity"
	symbolsusecase "crypto_backend/internal/feature/symbols/usecase"
	"crypto_backend/internal/platform/externalapi"
	"crypto_backend/internal/platform/externalapi/coingecko/dto"
	"crypto_backend/internal/shared/ratelimiter"
)

const day = 24 * time.Hour

// Client はCoinGecko APIからマーケット一覧と日次価格を取得します。
// 一覧取得と価格取得は同じ分間リクエスト枠を共有します。
type Client struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.Limiter
}

var (
	_ candlesusecase.Source        = (*Client)(nil)
	_ symbolsusecase.MarketListing = (*Client)(nil)
)

// NewClient は指定された設定とHTTPクライアントでClientを生成します。
func NewClient(cfg Config, client *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CallsPerMinute <= 0 {
		cfg.CallsPerMinute = DefaultCallsPerMinute
	}
	return &Client{
		cfg:     cfg,
		client:  client,
		limiter: ratelimiter.NewRateLimiter(cfg.CallsPerMinute, time.Minute),
	}
}

func (c *Client) Name() string          { return Name }
func (c *Client) QuoteCurrency() string { return QuoteCurrency }
func (c *Client) MaxPageSize() int      { return 0 }
func (c *Client) Windowed() bool        { return true }

// Pair returns the CoinGecko coin id; symbols without one are skipped.
func (c *Client) Pair(ref entity.SymbolRef) (string, bool) {
	return ref.ResolvePair(Name, ref.CatalogID)
}

// ListMarkets は時価総額順のマーケット一覧から1ページ分を取得します。
func (c *Client) ListMarkets(ctx context.Context, page, perPage int) ([]symbolentity.MarketListing, error) {
	q := url.Values{}
	q.Set("vs_currency", strings.ToLower(QuoteCurrency))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("sparkline", "false")

	var coins []dto.MarketCoin
	if err := c.get(ctx, "/coins/markets", q, &coins); err != nil {
		return nil, err
	}

	out := make([]symbolentity.MarketListing, 0, len(coins))
	for _, coin := range coins {
		out = append(out, symbolentity.MarketListing{
			CatalogID: coin.ID,
			Symbol:    coin.Symbol,
			Name:      coin.Name,
			Rank:      coin.MarketCapRank,
			Price:     coin.CurrentPrice,
			MarketCap: coin.MarketCap,
			Volume24h: coin.TotalVolume,
		})
	}
	return out, nil
}

// FetchPage は /coins/{id}/market_chart/range の価格系列をUTC日ごとのOHLCに集約します。
// 始値は日の最初の価格、終値は最後の価格、出来高は日の最後の24時間出来高です。
func (c *Client) FetchPage(ctx context.Context, req candlesusecase.PageRequest) ([]entity.Candle, error) {
	to := req.Until
	if req.Limit > 0 {
		if capped := req.Since.Add(time.Duration(req.Limit) * day); to.IsZero() || capped.Before(to) {
			to = capped
		}
	}

	q := url.Values{}
	q.Set("vs_currency", strings.ToLower(QuoteCurrency))
	q.Set("from", strconv.FormatInt(req.Since.Unix(), 10))
	q.Set("to", strconv.FormatInt(to.Unix()-1, 10))

	var chart dto.MarketChart
	if err := c.get(ctx, "/coins/"+url.PathEscape(req.Pair)+"/market_chart/range", q, &chart); err != nil {
		return nil, err
	}
	return aggregateDaily(chart, req.Since, to), nil
}

func aggregateDaily(chart dto.MarketChart, since, until time.Time) []entity.Candle {
	byDay := map[time.Time]*entity.Candle{}
	for _, p := range chart.Prices {
		ts := time.UnixMilli(int64(p[0])).UTC()
		if ts.Before(since) || !ts.Before(until) {
			continue
		}
		d := externalapi.DayStart(ts)
		price := p[1]
		cd, ok := byDay[d]
		if !ok {
			byDay[d] = &entity.Candle{Time: d, Open: price, High: price, Low: price, Close: price}
			continue
		}
		cd.High = max(cd.High, price)
		cd.Low = min(cd.Low, price)
		cd.Close = price
	}
	for _, v := range chart.TotalVolumes {
		d := externalapi.DayStart(time.UnixMilli(int64(v[0])))
		if cd, ok := byDay[d]; ok {
			cd.Volume = v[1]
		}
	}

	out := make([]entity.Candle, 0, len(byDay))
	for _, cd := range byDay {
		out = append(out, *cd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
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
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", externalapi.UserAgent)
	if c.cfg.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.cfg.APIKey)
	}

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
			return fmt.Errorf("coingecko %s: %s: %w", path, apiErr.Error, domain.ErrUnsupportedPair)
		}
		return externalapi.StatusError(Name, res.StatusCode, body)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("coingecko decode %s: %w", path, err)
	}
	return nil
}
