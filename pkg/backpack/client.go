package backpack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"tradewatch/pkg/analysis"
	"tradewatch/pkg/models"
)

const (
	defaultBaseURL = "https://api.backpack.exchange"
	signingWindow  = 5000 // milliseconds
)

// Client is a Backpack REST client for the public market-data endpoints. The
// rate limiter is injected by the caller so pacing is configured once at
// process start rather than hidden in package state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	signer     *Signer
	logger     *logrus.Logger
}

func NewClient(limiter *rate.Limiter, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		logger:     logger,
	}
}

// WithSigner attaches API credentials for endpoints that require them.
func (c *Client) WithSigner(signer *Signer) *Client {
	c.signer = signer
	return c
}

// WithBaseURL overrides the API host, for tests and staging.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// GetMarkets lists all markets on the exchange.
func (c *Client) GetMarkets(ctx context.Context) ([]models.Market, error) {
	var markets []models.Market
	if err := c.get(ctx, "/api/v1/markets", nil, "", &markets); err != nil {
		return nil, fmt.Errorf("get markets: %w", err)
	}
	c.logger.WithField("count", len(markets)).Debug("Fetched markets")
	return markets, nil
}

type wireTrade struct {
	ID            int64  `json:"id"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	QuoteQuantity string `json:"quoteQuantity"`
	Timestamp     int64  `json:"timestamp"`
	IsBuyerMaker  bool   `json:"isBuyerMaker"`
}

// GetTrades returns up to limit recent trades for the symbol, newest first as
// the venue delivers them.
func (c *Client) GetTrades(ctx context.Context, symbol string, limit int) ([]models.RawTrade, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var wire []wireTrade
	if err := c.get(ctx, "/api/v1/trades", params, "", &wire); err != nil {
		return nil, fmt.Errorf("get trades %s: %w", symbol, err)
	}

	trades := make([]models.RawTrade, len(wire))
	for i, t := range wire {
		trades[i] = models.RawTrade{
			Symbol:        symbol,
			Price:         t.Price,
			Quantity:      t.Quantity,
			QuoteQuantity: t.QuoteQuantity,
			IsBuyerMaker:  t.IsBuyerMaker,
			Timestamp:     t.Timestamp,
		}
	}
	c.logger.WithFields(logrus.Fields{"symbol": symbol, "count": len(trades)}).Debug("Fetched trades")
	return trades, nil
}

// GetKlines fetches candles for the symbol, clamping the requested window to
// the last 24 hours when the caller gives no explicit range. Cells arrive as
// a mix of JSON numbers and decimal strings; coercion failures are dropped
// per record, not fatal to the batch.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Kline, error) {
	now := time.Now().UnixMilli()
	startTime := now - 24*time.Hour.Milliseconds()

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	params.Set("startTime", strconv.FormatInt(startTime, 10))
	params.Set("endTime", strconv.FormatInt(now, 10))

	var rows [][]json.RawMessage
	if err := c.get(ctx, "/api/v1/klines", params, "klineQuery", &rows); err != nil {
		return nil, fmt.Errorf("get klines %s: %w", symbol, err)
	}

	klines := make([]models.Kline, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		fields := make([]string, len(row))
		for i, cell := range row {
			fields[i] = cellString(cell)
		}
		k, err := analysis.NormalizeKline(fields)
		if err != nil {
			dropped++
			continue
		}
		klines = append(klines, k)
	}
	if dropped > 0 {
		c.logger.WithFields(logrus.Fields{"symbol": symbol, "dropped": dropped}).Warn("Dropped malformed klines")
	}
	return klines, nil
}

type wireDepth struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
}

// GetOrderBook fetches a depth snapshot. Both sides come back best-first.
func (c *Client) GetOrderBook(ctx context.Context, symbol string, limit int) (*models.OrderBook, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var wire wireDepth
	if err := c.get(ctx, "/api/v1/depth", params, "", &wire); err != nil {
		return nil, fmt.Errorf("get order book %s: %w", symbol, err)
	}

	book := &models.OrderBook{Symbol: symbol, Timestamp: time.Now()}
	book.Bids = parseLevels(wire.Bids)
	book.Asks = parseLevels(wire.Asks)
	return book, nil
}

func parseLevels(rows [][]string) []models.OrderBookLevel {
	levels := make([]models.OrderBookLevel, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		price, err1 := strconv.ParseFloat(row[0], 64)
		size, err2 := strconv.ParseFloat(row[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		levels = append(levels, models.OrderBookLevel{Price: price, Size: size})
	}
	return levels
}

func (c *Client) get(ctx context.Context, path string, params url.Values, instruction string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if c.signer != nil && instruction != "" {
		timestamp := time.Now().UnixMilli()
		req.Header.Set("X-API-Key", c.signer.APIKey())
		req.Header.Set("X-Timestamp", strconv.FormatInt(timestamp, 10))
		req.Header.Set("X-Window", strconv.Itoa(signingWindow))
		req.Header.Set("X-Signature", c.signer.Sign(instruction, params, timestamp, signingWindow))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// cellString flattens a JSON cell to its text form, unquoting strings.
func cellString(cell json.RawMessage) string {
	var s string
	if err := json.Unmarshal(cell, &s); err == nil {
		return s
	}
	return string(cell)
}
