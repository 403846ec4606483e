package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"tradewatch/pkg/models"
)

const (
	defaultBaseURL = "https://api.hyperliquid.xyz"
	mainnetWSURL   = "wss://api.hyperliquid.xyz/ws"
)

// Client talks to the Hyperliquid info API. All queries go through a single
// POST /info endpoint with a typed request body.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
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

// WithBaseURL overrides the API host, for tests and the testnet.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

type metaResponse struct {
	Universe []struct {
		Name       string `json:"name"`
		IsDelisted bool   `json:"isDelisted"`
	} `json:"universe"`
}

// GetMarkets lists the tradable perpetual markets, skipping delisted ones.
func (c *Client) GetMarkets(ctx context.Context) ([]models.Market, error) {
	var meta metaResponse
	if err := c.post(ctx, map[string]string{"type": "meta"}, &meta); err != nil {
		return nil, fmt.Errorf("get meta: %w", err)
	}

	markets := make([]models.Market, 0, len(meta.Universe))
	for _, asset := range meta.Universe {
		if asset.IsDelisted {
			continue
		}
		markets = append(markets, models.Market{
			Symbol:     asset.Name,
			BaseAsset:  asset.Name,
			QuoteAsset: "USDC",
			Status:     "ONLINE",
		})
	}
	c.logger.WithField("count", len(markets)).Debug("Fetched Hyperliquid markets")
	return markets, nil
}

// GetMids returns the current mid price per market.
func (c *Client) GetMids(ctx context.Context) (map[string]float64, error) {
	var raw map[string]string
	if err := c.post(ctx, map[string]string{"type": "allMids"}, &raw); err != nil {
		return nil, fmt.Errorf("get mids: %w", err)
	}

	mids := make(map[string]float64, len(raw))
	for symbol, value := range raw {
		price, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		mids[symbol] = price
	}
	return mids, nil
}

type wireFill struct {
	Coin      string `json:"coin"`
	Px        string `json:"px"`
	Sz        string `json:"sz"`
	Side      string `json:"side"`
	Time      int64  `json:"time"`
	ClosedPnl string `json:"closedPnl"`
}

// GetUserFills returns an address's fills as raw trades. Hyperliquid reports
// realized pnl per fill, so the normalizer keeps it instead of deriving the
// directional heuristic.
func (c *Client) GetUserFills(ctx context.Context, address string) ([]models.RawTrade, error) {
	var fills []wireFill
	body := map[string]string{"type": "userFills", "user": address}
	if err := c.post(ctx, body, &fills); err != nil {
		return nil, fmt.Errorf("get user fills %s: %w", address, err)
	}

	trades := make([]models.RawTrade, 0, len(fills))
	for _, f := range fills {
		raw := models.RawTrade{
			Address:   address,
			Symbol:    f.Coin,
			Price:     f.Px,
			Quantity:  f.Sz,
			Timestamp: f.Time,
			// Side "B" is a taker buy on this venue.
			IsBuyerMaker: f.Side != "B",
		}
		if pnl, err := strconv.ParseFloat(f.ClosedPnl, 64); err == nil {
			raw.Profit = &pnl
		}
		trades = append(trades, raw)
	}
	c.logger.WithFields(logrus.Fields{"address": address, "count": len(trades)}).Debug("Fetched user fills")
	return trades, nil
}

func (c *Client) post(ctx context.Context, body interface{}, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
