package backpack

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, path, response string, capture *http.Request) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		if capture != nil {
			*capture = *r
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
}

func TestGetMarkets(t *testing.T) {
	srv := testServer(t, "/api/v1/markets", `[
		{"symbol":"SOL_USDC","baseSymbol":"SOL","quoteSymbol":"USDC","status":"ONLINE"},
		{"symbol":"BTC_USDC","baseSymbol":"BTC","quoteSymbol":"USDC","status":"ONLINE"}
	]`, nil)
	defer srv.Close()

	client := NewClient(nil, nil).WithBaseURL(srv.URL)
	markets, err := client.GetMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "SOL_USDC", markets[0].Symbol)
	assert.Equal(t, "SOL", markets[0].BaseAsset)
	assert.Equal(t, "USDC", markets[0].QuoteAsset)
}

func TestGetTrades(t *testing.T) {
	var captured http.Request
	srv := testServer(t, "/api/v1/trades", `[
		{"id":1,"price":"150.5","quantity":"2","quoteQuantity":"301","timestamp":1700000000000,"isBuyerMaker":false},
		{"id":2,"price":"150.4","quantity":"1","quoteQuantity":"150.4","timestamp":1699999999000,"isBuyerMaker":true}
	]`, &captured)
	defer srv.Close()

	client := NewClient(nil, nil).WithBaseURL(srv.URL)
	trades, err := client.GetTrades(context.Background(), "SOL_USDC", 50)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "SOL_USDC", captured.URL.Query().Get("symbol"))
	assert.Equal(t, "50", captured.URL.Query().Get("limit"))

	assert.Equal(t, "SOL_USDC", trades[0].Symbol)
	assert.Equal(t, "150.5", trades[0].Price)
	assert.False(t, trades[0].IsBuyerMaker)
	assert.True(t, trades[1].IsBuyerMaker)
}

func TestGetKlines(t *testing.T) {
	// Mixed numbers and strings, plus one malformed row that must be dropped.
	srv := testServer(t, "/api/v1/klines", `[
		[1700000000000,"100","105","99","103","42.5",1700003599999,"4300.1",318],
		[1700003600000,"103","bogus","101","104","10",1700007199999,"1040",50],
		[1700003600000,"103","106","101","104","10",1700007199999,"1040",50]
	]`, nil)
	defer srv.Close()

	client := NewClient(nil, nil).WithBaseURL(srv.URL)
	klines, err := client.GetKlines(context.Background(), "SOL_USDC", "1h", 24)
	require.NoError(t, err)
	require.Len(t, klines, 2)
	assert.Equal(t, 103.0, klines[0].Close)
	assert.Equal(t, int64(318), klines[0].TradeCount)
	assert.Equal(t, 104.0, klines[1].Close)
}

func TestGetOrderBook(t *testing.T) {
	srv := testServer(t, "/api/v1/depth", `{
		"bids":[["100","2"],["99","3"],["junk"]],
		"asks":[["101","1"],["102","notanumber"]]
	}`, nil)
	defer srv.Close()

	client := NewClient(nil, nil).WithBaseURL(srv.URL)
	book, err := client.GetOrderBook(context.Background(), "SOL_USDC", 20)
	require.NoError(t, err)

	require.Len(t, book.Bids, 2)
	require.Len(t, book.Asks, 1)
	assert.Equal(t, 100.0, book.Bids[0].Price)
	assert.Equal(t, 2.0, book.Bids[0].Size)
	assert.Equal(t, 101.0, book.Asks[0].Price)
}

func TestGetKlinesSignedHeaders(t *testing.T) {
	var captured http.Request
	srv := testServer(t, "/api/v1/klines", `[]`, &captured)
	defer srv.Close()

	signer, _ := testSigner(t)
	client := NewClient(nil, nil).WithBaseURL(srv.URL).WithSigner(signer)

	_, err := client.GetKlines(context.Background(), "SOL_USDC", "1h", 24)
	require.NoError(t, err)

	assert.Equal(t, signer.APIKey(), captured.Header.Get("X-API-Key"))
	assert.Equal(t, "5000", captured.Header.Get("X-Window"))
	assert.NotEmpty(t, captured.Header.Get("X-Timestamp"))
	assert.NotEmpty(t, captured.Header.Get("X-Signature"))
}

func TestGetMarketsUnsigned(t *testing.T) {
	var captured http.Request
	srv := testServer(t, "/api/v1/markets", `[]`, &captured)
	defer srv.Close()

	signer, _ := testSigner(t)
	client := NewClient(nil, nil).WithBaseURL(srv.URL).WithSigner(signer)

	_, err := client.GetMarkets(context.Background())
	require.NoError(t, err)
	// Public endpoints carry no signature even with credentials configured.
	assert.Empty(t, captured.Header.Get("X-Signature"))
}

func TestGetErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(nil, nil).WithBaseURL(srv.URL)
	_, err := client.GetMarkets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
