package collector

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tradewatch/pkg/analysis"
	"tradewatch/pkg/datastore"
	"tradewatch/pkg/models"
)

// MarketDataClient supplies market data for the scan; pkg/backpack satisfies it.
type MarketDataClient interface {
	GetMarkets(ctx context.Context) ([]models.Market, error)
	GetTrades(ctx context.Context, symbol string, limit int) ([]models.RawTrade, error)
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Kline, error)
	GetOrderBook(ctx context.Context, symbol string, limit int) (*models.OrderBook, error)
}

// TraderDataClient supplies per-address fills; pkg/hyperliquid satisfies it.
type TraderDataClient interface {
	GetUserFills(ctx context.Context, address string) ([]models.RawTrade, error)
}

// Options tunes the refresh cycle. Zero values fall back to the analysis
// package defaults.
type Options struct {
	TradeLimit       int
	OrderBookDepth   int
	KlineInterval    string
	KlineLimit       int
	MinTrades        int
	MinMarketTrades  int
	MinMarketVolume  float64
	RefreshInterval  time.Duration
	TrackedAddresses []string
}

func (o *Options) applyDefaults() {
	if o.TradeLimit <= 0 {
		o.TradeLimit = 100
	}
	if o.OrderBookDepth <= 0 {
		o.OrderBookDepth = 20
	}
	if o.KlineInterval == "" {
		o.KlineInterval = "1h"
	}
	if o.KlineLimit <= 0 {
		o.KlineLimit = 24
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = 5 * time.Minute
	}
}

// Collector periodically fetches exchange data, runs the analysis engines,
// and holds the latest snapshots for the API server and CLI.
type Collector struct {
	markets MarketDataClient
	traders TraderDataClient
	market  *analysis.MarketAnalyzer
	trader  *analysis.TraderAnalyzer
	store   *datastore.Store
	opts    Options
	logger  *logrus.Logger

	mu            sync.RWMutex
	marketStats   map[string]*models.MarketStats
	activeMarkets []models.ActiveMarket
	topTraders    []*models.AddressStats
	traderTrades  []models.TradeRecord
	liveTrades    map[string][]models.TradeRecord

	stopCh   chan struct{}
	stopOnce sync.Once
}

// liveBufferSize bounds the per-symbol live trade buffer.
const liveBufferSize = 500

func New(markets MarketDataClient, traders TraderDataClient, store *datastore.Store, opts Options, logger *logrus.Logger) *Collector {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	opts.applyDefaults()

	return &Collector{
		markets:     markets,
		traders:     traders,
		market:      analysis.NewMarketAnalyzer(logger),
		trader:      analysis.NewTraderAnalyzer(logger),
		store:       store,
		opts:        opts,
		logger:      logger,
		marketStats: make(map[string]*models.MarketStats),
		liveTrades:  make(map[string][]models.TradeRecord),
		stopCh:      make(chan struct{}),
	}
}

// Start kicks off the refresh loops and returns immediately.
func (c *Collector) Start(ctx context.Context) error {
	c.logger.Info("Starting collector")

	go c.refreshLoop(ctx, c.RefreshMarkets)
	go c.refreshLoop(ctx, c.RefreshTraders)

	return nil
}

// Stop halts the refresh loops. Safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		c.logger.Info("Stopping collector")
		close(c.stopCh)
	})
}

func (c *Collector) refreshLoop(ctx context.Context, refresh func(context.Context)) {
	refresh(ctx)

	ticker := time.NewTicker(c.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			refresh(ctx)
		}
	}
}

// RefreshMarkets scans every listed market, analyzes it, and replaces the
// active-market snapshot. A failed market is skipped, never fatal to the scan.
func (c *Collector) RefreshMarkets(ctx context.Context) {
	start := time.Now()

	markets, err := c.markets.GetMarkets(ctx)
	if err != nil {
		c.logger.WithError(err).Error("Failed to list markets")
		return
	}

	stats := make(map[string]*models.MarketStats, len(markets))
	analyzed := make([]models.ActiveMarket, 0, len(markets))
	for _, market := range markets {
		if market.Symbol == "" {
			continue
		}
		result, err := c.analyzeMarket(ctx, market.Symbol)
		if err != nil {
			c.logger.WithError(err).WithField("symbol", market.Symbol).Warn("Skipping market")
			continue
		}
		stats[market.Symbol] = result
		analyzed = append(analyzed, models.ActiveMarket{Symbol: market.Symbol, Stats: result})

		if c.store != nil {
			if err := c.store.SaveMarketStats(market.Symbol, result); err != nil {
				c.logger.WithError(err).WithField("symbol", market.Symbol).Warn("Failed to cache market stats")
			}
		}
	}

	active := c.market.FindActiveMarkets(analyzed, c.opts.MinMarketTrades, c.opts.MinMarketVolume)

	c.mu.Lock()
	c.marketStats = stats
	c.activeMarkets = active
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"markets":  len(markets),
		"analyzed": len(analyzed),
		"active":   len(active),
		"duration": time.Since(start),
	}).Info("Market scan completed")
}

func (c *Collector) analyzeMarket(ctx context.Context, symbol string) (*models.MarketStats, error) {
	book, err := c.markets.GetOrderBook(ctx, symbol, c.opts.OrderBookDepth)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Debug("No order book")
		book = nil
	}

	raws, err := c.markets.GetTrades(ctx, symbol, c.opts.TradeLimit)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Debug("No trades")
	}
	trades, dropped := analysis.NormalizeTrades(raws)
	if dropped > 0 {
		c.logger.WithFields(logrus.Fields{"symbol": symbol, "dropped": dropped}).Warn("Dropped malformed trades")
	}
	if len(trades) == 0 {
		// Fall back to whatever the live feed buffered for this symbol.
		c.mu.RLock()
		trades = append(trades, c.liveTrades[symbol]...)
		c.mu.RUnlock()
	}

	klines, err := c.markets.GetKlines(ctx, symbol, c.opts.KlineInterval, c.opts.KlineLimit)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Debug("No klines")
	}

	return c.market.AnalyzeMarket(symbol, book, trades, klines)
}

// RefreshTraders pulls fills for every tracked address and rebuilds the
// trader ranking.
func (c *Collector) RefreshTraders(ctx context.Context) {
	if c.traders == nil || len(c.opts.TrackedAddresses) == 0 {
		return
	}
	start := time.Now()

	var batch []models.TradeRecord
	for _, address := range c.opts.TrackedAddresses {
		raws, err := c.traders.GetUserFills(ctx, address)
		if err != nil {
			c.logger.WithError(err).WithField("address", address).Warn("Failed to fetch fills")
			continue
		}
		trades, dropped := analysis.NormalizeTrades(raws)
		if dropped > 0 {
			c.logger.WithFields(logrus.Fields{"address": address, "dropped": dropped}).Warn("Dropped malformed fills")
		}
		batch = append(batch, trades...)

		if c.store != nil {
			if err := c.store.SaveTrades(address, trades); err != nil {
				c.logger.WithError(err).WithField("address", address).Warn("Failed to cache trades")
			}
		}
	}

	top := c.trader.FindTopTraders(batch, c.opts.MinTrades)
	if c.store != nil {
		for _, stats := range top {
			if err := c.store.SaveTraderStats(stats.Address, stats); err != nil {
				c.logger.WithError(err).WithField("address", stats.Address).Warn("Failed to cache trader stats")
			}
		}
	}

	c.mu.Lock()
	c.traderTrades = batch
	c.topTraders = top
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"addresses": len(c.opts.TrackedAddresses),
		"trades":    len(batch),
		"ranked":    len(top),
		"duration":  time.Since(start),
	}).Info("Trader scan completed")
}

// ActiveMarkets returns the latest ranked market snapshot.
func (c *Collector) ActiveMarkets() []models.ActiveMarket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.ActiveMarket, len(c.activeMarkets))
	copy(out, c.activeMarkets)
	return out
}

// Market returns the latest analysis for one symbol.
func (c *Collector) Market(symbol string) (*models.MarketStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats, ok := c.marketStats[symbol]
	return stats, ok
}

// TopTraders returns the latest trader ranking.
func (c *Collector) TopTraders() []*models.AddressStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*models.AddressStats, len(c.topTraders))
	copy(out, c.topTraders)
	return out
}

// IngestLiveTrades folds trades from the websocket feed into per-symbol
// buffers used when the REST poller comes back empty.
func (c *Collector) IngestLiveTrades(raws []models.RawTrade) {
	trades, _ := analysis.NormalizeTrades(raws)
	if len(trades) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range trades {
		buf := append(c.liveTrades[t.Symbol], t)
		if len(buf) > liveBufferSize {
			buf = buf[len(buf)-liveBufferSize:]
		}
		c.liveTrades[t.Symbol] = buf
	}
}

// Trader analyzes one address against the most recent fill batch.
func (c *Collector) Trader(address string) (*models.AddressStats, error) {
	c.mu.RLock()
	batch := c.traderTrades
	c.mu.RUnlock()
	return c.trader.AnalyzeAddress(batch, address)
}
