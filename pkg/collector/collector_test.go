package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewatch/pkg/datastore"
	"tradewatch/pkg/models"
)

type fakeMarketClient struct {
	markets   []models.Market
	trades    map[string][]models.RawTrade
	klines    map[string][]models.Kline
	books     map[string]*models.OrderBook
	failBooks bool
}

func (f *fakeMarketClient) GetMarkets(ctx context.Context) ([]models.Market, error) {
	return f.markets, nil
}

func (f *fakeMarketClient) GetTrades(ctx context.Context, symbol string, limit int) ([]models.RawTrade, error) {
	return f.trades[symbol], nil
}

func (f *fakeMarketClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]models.Kline, error) {
	return f.klines[symbol], nil
}

func (f *fakeMarketClient) GetOrderBook(ctx context.Context, symbol string, limit int) (*models.OrderBook, error) {
	if f.failBooks {
		return nil, errors.New("depth unavailable")
	}
	return f.books[symbol], nil
}

type fakeTraderClient struct {
	fills map[string][]models.RawTrade
	err   error
}

func (f *fakeTraderClient) GetUserFills(ctx context.Context, address string) ([]models.RawTrade, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.fills[address], nil
}

func rawTrade(price, quantity string, buyerMaker bool, ts int64) models.RawTrade {
	return models.RawTrade{Price: price, Quantity: quantity, IsBuyerMaker: buyerMaker, Timestamp: ts}
}

func rawFill(address string, profit float64, ts int64) models.RawTrade {
	return models.RawTrade{
		Address:   address,
		Symbol:    "SOL",
		Price:     "150",
		Quantity:  "1",
		Timestamp: ts,
		Profit:    &profit,
	}
}

func newTestStore(t *testing.T) *datastore.Store {
	t.Helper()
	store, err := datastore.NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	return store
}

func TestRefreshMarkets(t *testing.T) {
	markets := &fakeMarketClient{
		markets: []models.Market{{Symbol: "SOL_USDC"}, {Symbol: "GHOST_USDC"}},
		trades: map[string][]models.RawTrade{
			"SOL_USDC": {
				rawTrade("100", "1", false, 1),
				rawTrade("101", "1", true, 2),
				rawTrade("102", "1", false, 3),
			},
		},
		failBooks: true,
	}
	store := newTestStore(t)

	coll := New(markets, nil, store, Options{
		MinMarketTrades: 1,
		MinMarketVolume: 1,
	}, nil)

	coll.RefreshMarkets(context.Background())

	stats, ok := coll.Market("SOL_USDC")
	require.True(t, ok)
	require.NotNil(t, stats.TradeFlow)
	assert.Equal(t, 3, stats.TradeFlow.TotalTrades)

	// GHOST_USDC had no data at all and must be skipped, not fatal.
	_, ok = coll.Market("GHOST_USDC")
	assert.False(t, ok)

	active := coll.ActiveMarkets()
	require.Len(t, active, 1)
	assert.Equal(t, "SOL_USDC", active[0].Symbol)

	// Results are cached for the next process start.
	cached, err := store.LoadMarketStats("SOL_USDC")
	require.NoError(t, err)
	assert.Equal(t, "SOL_USDC", cached.Symbol)
}

func TestRefreshTraders(t *testing.T) {
	traders := &fakeTraderClient{
		fills: map[string][]models.RawTrade{
			"0xaaa": {rawFill("0xaaa", 10, 1), rawFill("0xaaa", 12, 2), rawFill("0xaaa", 11, 3)},
			"0xbbb": {rawFill("0xbbb", -5, 1)},
		},
	}
	store := newTestStore(t)

	coll := New(nil, traders, store, Options{
		MinTrades:        1,
		TrackedAddresses: []string{"0xaaa", "0xbbb"},
	}, nil)

	coll.RefreshTraders(context.Background())

	top := coll.TopTraders()
	require.Len(t, top, 2)
	assert.Equal(t, "0xaaa", top[0].Address)
	assert.Equal(t, 3, top[0].TotalTrades)

	stats, err := coll.Trader("0xbbb")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTrades)

	cached, err := store.LoadTraderStats("0xaaa")
	require.NoError(t, err)
	assert.Equal(t, 3, cached.TotalTrades)
}

func TestRefreshTradersFetchFailureIsolated(t *testing.T) {
	traders := &fakeTraderClient{err: errors.New("venue down")}

	coll := New(nil, traders, nil, Options{
		MinTrades:        1,
		TrackedAddresses: []string{"0xaaa"},
	}, nil)

	coll.RefreshTraders(context.Background())
	assert.Empty(t, coll.TopTraders())
}

func TestStopIdempotent(t *testing.T) {
	coll := New(nil, nil, nil, Options{}, nil)

	coll.Stop()
	assert.NotPanics(t, func() { coll.Stop() })
}

func TestIngestLiveTrades(t *testing.T) {
	markets := &fakeMarketClient{
		markets: []models.Market{{Symbol: "SOL"}},
	}

	coll := New(markets, nil, nil, Options{
		MinMarketTrades: 1,
		MinMarketVolume: 1,
	}, nil)

	coll.IngestLiveTrades([]models.RawTrade{
		{Symbol: "SOL", Price: "150", Quantity: "1", Timestamp: 1},
		{Symbol: "SOL", Price: "151", Quantity: "2", Timestamp: 2},
		{Symbol: "SOL", Price: "bad", Quantity: "1", Timestamp: 3},
	})

	// REST returns nothing for SOL, so the scan falls back to the live buffer.
	coll.RefreshMarkets(context.Background())

	stats, ok := coll.Market("SOL")
	require.True(t, ok)
	require.NotNil(t, stats.TradeFlow)
	assert.Equal(t, 2, stats.TradeFlow.TotalTrades)
}

func TestIngestLiveTradesBounded(t *testing.T) {
	coll := New(nil, nil, nil, Options{}, nil)

	for i := 0; i < liveBufferSize+100; i++ {
		coll.IngestLiveTrades([]models.RawTrade{
			{Symbol: "SOL", Price: "150", Quantity: "1", Timestamp: int64(i)},
		})
	}

	coll.mu.RLock()
	defer coll.mu.RUnlock()
	assert.Len(t, coll.liveTrades["SOL"], liveBufferSize)
	// Oldest entries are evicted first.
	assert.Equal(t, int64(100), coll.liveTrades["SOL"][0].Timestamp)
}
