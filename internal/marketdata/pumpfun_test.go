package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPumpFunClient_LatestCoins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("limit") != "5" || q.Get("offset") != "0" {
			t.Errorf("unexpected paging: %s", r.URL.RawQuery)
		}
		if q.Get("sort") != "created_timestamp" || q.Get("order") != "DESC" {
			t.Errorf("unexpected sort: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[
			{"mint":"PumpMint1","name":"Frog","symbol":"FROG","created_timestamp":1700000000000,
			 "usd_market_cap":7500,"virtual_sol_reserves":32000000000}
		]`))
	}))
	defer server.Close()

	c := NewPumpFunClient(server.URL)
	coins, err := c.LatestCoins(context.Background(), 5)
	if err != nil {
		t.Fatalf("LatestCoins: %v", err)
	}

	if len(coins) != 1 {
		t.Fatalf("expected 1 coin, got %d", len(coins))
	}
	if coins[0].Symbol != "FROG" || coins[0].USDMarketCap != 7500 {
		t.Errorf("unexpected coin: %+v", coins[0])
	}
	if coins[0].VirtualSOL() != 32 {
		t.Errorf("VirtualSOL() = %v, want 32", coins[0].VirtualSOL())
	}
}

func TestPumpFunClient_Coin_EmptyBodyIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewPumpFunClient(server.URL)
	_, err := c.Coin(context.Background(), "Missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPumpFunClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewPumpFunClient(server.URL, WithTimeout(20*time.Millisecond))
	if _, err := c.Coin(context.Background(), "Slow"); err == nil {
		t.Fatal("expected timeout error")
	}
}
