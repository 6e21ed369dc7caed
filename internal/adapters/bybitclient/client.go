package bybitclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"candleloader/internal/domain"
	"candleloader/internal/ports"
)

const (
	defaultBaseURL  = "https://api.bybit.com"
	klinePath       = "/v5/market/kline"
	instrumentsPath = "/v5/market/instruments-info"

	// Bybit rejects or silently caps kline requests above 1000 rows.
	maxPageLimit = 1000

	defaultCategory = "linear"
	defaultInterval = 240
	defaultTimeout  = 15 * time.Second
)

// Bybit v5 retCode values the client classifies specially.
const (
	retCodeOK          = 0
	retCodeRateLimited = 10006
	retCodeServerBusy  = 10016
)

// Client implements the ports.KlineProvider interface against the Bybit v5
// public market API. All endpoints it uses are unauthenticated.
type Client struct {
	httpClient *http.Client
	baseURL    string
	category   string
	interval   int
	limit      int
	logger     ports.Logger
}

// Config holds configuration specific to the Bybit client adapter.
type Config struct {
	BaseURL  string        // Defaults to the production API
	Category string        // Product category, e.g. "linear"
	Interval int           // Kline interval in minutes
	Limit    int           // Page size per request, capped at 1000
	Timeout  time.Duration // Per-request timeout
	Logger   ports.Logger
}

// New creates a new Bybit client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for Bybit client", ports.ErrConfigurationError)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	category := cfg.Category
	if category == "" {
		category = defaultCategory
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	limit := cfg.Limit
	if limit <= 0 || limit > maxPageLimit {
		limit = maxPageLimit
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cfg.Logger.Info(context.Background(), "Bybit client configured",
		map[string]interface{}{"baseURL": baseURL, "category": category, "interval": interval, "limit": limit})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		category:   category,
		interval:   interval,
		limit:      limit,
		logger:     cfg.Logger,
	}, nil
}

// classifyRetCode translates a non-zero Bybit retCode into a standardized
// ports error carrying the provider's message.
func classifyRetCode(code int64, msg string) error {
	switch code {
	case retCodeRateLimited:
		return fmt.Errorf("%w: retCode=%d msg=%s", ports.ErrRateLimited, code, msg)
	case retCodeServerBusy:
		return fmt.Errorf("%w: retCode=%d msg=%s", ports.ErrExchangeUnavailable, code, msg)
	default:
		return fmt.Errorf("%w: retCode=%d msg=%s", ports.ErrInvalidRequest, code, msg)
	}
}

// get issues one GET request and returns the parsed response envelope after
// checking retCode. No retry: a single failure is the complete signal.
func (c *Client) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	reqURL := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", ports.ErrInvalidRequest, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", ports.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: reading body: %v", ports.ErrConnectionFailed, err)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON (HTTP %d)", ports.ErrMalformedResponse, resp.StatusCode)
	}

	root := gjson.ParseBytes(body)
	retCode := root.Get("retCode")
	if !retCode.Exists() {
		return gjson.Result{}, fmt.Errorf("%w: missing retCode (HTTP %d)", ports.ErrMalformedResponse, resp.StatusCode)
	}
	if code := retCode.Int(); code != retCodeOK {
		return gjson.Result{}, classifyRetCode(code, root.Get("retMsg").String())
	}
	return root, nil
}

// FetchKlines issues a single bounded request for the closed window
// [startMs, endMs]. The returned batch is in provider order, which for
// Bybit is newest-first; callers must not rely on that.
func (c *Client) FetchKlines(ctx context.Context, symbol string, startMs, endMs int64) ([]*domain.Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ports.ErrInvalidRequest)
	}
	if startMs < 0 || startMs > endMs {
		return nil, fmt.Errorf("%w: bad window [%d, %d]", ports.ErrInvalidRequest, startMs, endMs)
	}

	query := url.Values{}
	query.Set("category", c.category)
	query.Set("symbol", symbol)
	query.Set("interval", strconv.Itoa(c.interval))
	query.Set("limit", strconv.Itoa(c.limit))
	query.Set("start", strconv.FormatInt(startMs, 10))
	query.Set("end", strconv.FormatInt(endMs, 10))

	root, err := c.get(ctx, klinePath, query)
	if err != nil {
		return nil, err
	}

	rows := root.Get("result.list")
	if !rows.Exists() || !rows.IsArray() {
		return nil, fmt.Errorf("%w: missing result.list", ports.ErrMalformedResponse)
	}

	var candles []*domain.Candle
	var rowErr error
	rows.ForEach(func(_, row gjson.Result) bool {
		// Each row is [timestamp, open, high, low, close, volume, turnover],
		// all string-encoded.
		fields := row.Array()
		if len(fields) < 7 {
			rowErr = fmt.Errorf("%w: kline row has %d fields", ports.ErrMalformedResponse, len(fields))
			return false
		}
		ts, err := strconv.ParseInt(fields[0].String(), 10, 64)
		if err != nil {
			rowErr = fmt.Errorf("%w: kline timestamp %q: %v", ports.ErrMalformedResponse, fields[0].String(), err)
			return false
		}
		candles = append(candles, &domain.Candle{
			Timestamp: ts,
			Open:      fields[1].String(),
			High:      fields[2].String(),
			Low:       fields[3].String(),
			Close:     fields[4].String(),
			Volume:    fields[5].String(),
			Turnover:  fields[6].String(),
		})
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	c.logger.Debug(ctx, "Fetched kline page", map[string]interface{}{"symbol": symbol, "count": len(candles)})
	return candles, nil
}

// FetchLinearSymbols lists all actively trading USDT linear-perpetual
// tickers, sorted alphabetically.
func (c *Client) FetchLinearSymbols(ctx context.Context) ([]string, error) {
	query := url.Values{}
	query.Set("category", c.category)
	query.Set("status", "Trading")
	query.Set("limit", strconv.Itoa(maxPageLimit))

	root, err := c.get(ctx, instrumentsPath, query)
	if err != nil {
		return nil, err
	}

	rows := root.Get("result.list")
	if !rows.Exists() || !rows.IsArray() {
		return nil, fmt.Errorf("%w: missing result.list", ports.ErrMalformedResponse)
	}

	var symbols []string
	rows.ForEach(func(_, item gjson.Result) bool {
		if item.Get("quoteCoin").String() == "USDT" {
			if s := item.Get("symbol").String(); s != "" {
				symbols = append(symbols, s)
			}
		}
		return true
	})
	sort.Strings(symbols)

	c.logger.Info(ctx, "Listed linear symbols", map[string]interface{}{"count": len(symbols)})
	return symbols, nil
}
