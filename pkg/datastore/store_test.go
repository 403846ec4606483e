package datastore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewatch/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	stats := &models.MarketStats{
		Symbol: "SOL_USDC",
		TradeFlow: &models.TradeFlowStats{
			TotalTrades: 120,
			TotalValue:  56000,
		},
	}
	require.NoError(t, store.SaveMarketStats("SOL_USDC", stats))

	loaded, err := store.LoadMarketStats("SOL_USDC")
	require.NoError(t, err)
	assert.Equal(t, "SOL_USDC", loaded.Symbol)
	require.NotNil(t, loaded.TradeFlow)
	assert.Equal(t, 120, loaded.TradeFlow.TotalTrades)
}

func TestStoreTraderStats(t *testing.T) {
	store := newTestStore(t)

	stats := &models.AddressStats{
		Address:     "0xabc",
		TotalTrades: 42,
		WinRate:     0.55,
	}
	require.NoError(t, store.SaveTraderStats("0xabc", stats))

	loaded, err := store.LoadTraderStats("0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", loaded.Address)
	assert.Equal(t, 42, loaded.TotalTrades)
}

func TestStoreTrades(t *testing.T) {
	store := newTestStore(t)

	trades := []models.TradeRecord{
		{Address: "0xabc", Symbol: "SOL", Price: 150, Quantity: 2, Profit: 10},
		{Address: "0xabc", Symbol: "BTC", Price: 60000, Quantity: 0.1, Profit: -5},
	}
	require.NoError(t, store.SaveTrades("0xabc", trades))

	loaded, err := store.LoadTrades("0xabc")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, trades, loaded)
}

func TestStoreMissingEntry(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LoadMarketStats("NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadFresh(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveKlines("SOL_USDC", "1h", []models.Kline{{Close: 150}}))

	var klines []models.Kline
	require.NoError(t, store.LoadFresh(TypeKlines, "SOL_USDC_1h", time.Minute, &klines))
	require.Len(t, klines, 1)

	err := store.LoadFresh(TypeKlines, "SOL_USDC_1h", -time.Second, &klines)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilePathSanitized(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, store.Save(TypeMarkets, ".."+string(os.PathSeparator)+"escape", "x"))

	entries, err := os.ReadDir(filepath.Join(dir, TypeMarkets))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), string(os.PathSeparator))
}
