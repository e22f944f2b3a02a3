package kraken

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
	"crypto_backend/internal/platform/externalapi/kraken/dto"
	"crypto_backend/internal/shared/ratelimiter"
)

// Kraken uses its own codes for a few assets.
var (
	toKraken   = map[string]string{"BTC": "XBT", "DOGE": "XDG"}
	fromKraken = map[string]string{"XBT": "BTC", "XDG": "DOGE"}
)

// transientErrors are Kraken error prefixes worth retrying.
var transientErrors = []string{
	"EAPI:Rate limit exceeded",
	"EGeneral:Temporary lockout",
	"EService:Unavailable",
	"EService:Busy",
	"EGeneral:Internal error",
}

// Client はKrakenのREST APIから日足と取引ペア一覧を取得します。
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
func (c *Client) Windowed() bool        { return false }

// Pair returns the resolved pair or the Kraken altname for BASE/USD (BTC becomes XBTUSD).
func (c *Client) Pair(ref entity.SymbolRef) (string, bool) {
	base := ref.Base()
	if k, ok := toKraken[base]; ok {
		base = k
	}
	return ref.ResolvePair(Name, base+QuoteCurrency)
}

// FetchPage は /0/public/OHLC から日足を取得します。
// Kraken は since 以降の直近 720 本までしか返さないため、それより古い日付は取得できません。
func (c *Client) FetchPage(ctx context.Context, req candlesusecase.PageRequest) ([]entity.Candle, error) {
	q := url.Values{}
	q.Set("pair", req.Pair)
	q.Set("interval", strconv.Itoa(dailyInterval))
	q.Set("since", strconv.FormatInt(req.Since.Unix()-1, 10))

	result, err := c.get(ctx, "/0/public/OHLC", q)
	if err != nil {
		return nil, err
	}

	var candles []entity.Candle
	for key, raw := range result {
		if key == "last" {
			continue
		}
		var rows []dto.OHLC
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("kraken decode %s: %w", key, err)
		}
		for _, row := range rows {
			cd, err := parseOHLC(row)
			if err != nil {
				return nil, fmt.Errorf("kraken %s: %w", req.Pair, err)
			}
			if cd.Time.Before(req.Since) || (!req.Until.IsZero() && !cd.Time.Before(req.Until)) {
				continue
			}
			candles = append(candles, cd)
		}
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	if req.Limit > 0 && len(candles) > req.Limit {
		candles = candles[:req.Limit]
	}
	return candles, nil
}

// LoadQuoteMarkets は USD 建てのペアを base（BTC/DOGE 表記）ごとに返します。
func (c *Client) LoadQuoteMarkets(ctx context.Context) (map[string]string, error) {
	result, err := c.get(ctx, "/0/public/AssetPairs", nil)
	if err != nil {
		return nil, err
	}

	markets := make(map[string]string, len(result))
	for key, raw := range result {
		var p dto.AssetPair
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("kraken decode pair %s: %w", key, err)
		}
		if strings.HasSuffix(p.Altname, ".d") {
			continue
		}
		base, quote, ok := strings.Cut(p.WSName, "/")
		if !ok || quote != QuoteCurrency {
			continue
		}
		if b, ok := fromKraken[base]; ok {
			base = b
		}
		markets[strings.ToUpper(base)] = p.Altname
	}
	return markets, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (map[string]json.RawMessage, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.cfg.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", externalapi.UserAgent)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, externalapi.TransportError(ctx, Name, err)
	}
	defer externalapi.CloseBody(Name, res.Body)

	if res.StatusCode >= 400 {
		return nil, externalapi.StatusError(Name, res.StatusCode, externalapi.ReadErrorBody(res.Body))
	}

	var body dto.Response
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("kraken decode %s: %w", path, err)
	}
	if len(body.Error) > 0 {
		return nil, apiError(q.Get("pair"), body.Error)
	}
	return body.Result, nil
}

func apiError(pair string, errs []string) error {
	msg := strings.Join(errs, "; ")
	for _, e := range errs {
		if strings.HasPrefix(e, "EQuery:Unknown asset pair") {
			return fmt.Errorf("kraken %s: %s: %w", pair, msg, domain.ErrUnsupportedPair)
		}
		for _, t := range transientErrors {
			if strings.HasPrefix(e, t) {
				return fmt.Errorf("kraken: %s: %w", msg, domain.ErrTransient)
			}
		}
	}
	return fmt.Errorf("kraken: %s", msg)
}

func parseOHLC(row dto.OHLC) (entity.Candle, error) {
	if len(row) < 7 {
		return entity.Candle{}, fmt.Errorf("ohlc has %d fields", len(row))
	}

	var ts int64
	if err := json.Unmarshal(row[0], &ts); err != nil {
		return entity.Candle{}, fmt.Errorf("parse time %s: %w", row[0], err)
	}

	// row[5] is vwap and is not stored.
	fields := []struct {
		name string
		idx  int
	}{{"open", 1}, {"high", 2}, {"low", 3}, {"close", 4}, {"volume", 6}}

	var vals [5]float64
	for i, f := range fields {
		var s string
		if err := json.Unmarshal(row[f.idx], &s); err != nil {
			return entity.Candle{}, fmt.Errorf("parse %s %s: %w", f.name, row[f.idx], err)
		}
		v, err := externalapi.ParseFloat(f.name, s)
		if err != nil {
			return entity.Candle{}, err
		}
		vals[i] = v
	}

	return entity.Candle{
		Time:   time.Unix(ts, 0).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
