package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// LamportsPerSOL converts bonding-curve reserves to SOL.
const LamportsPerSOL = 1e9

// Coin is a pump.fun bonding-curve coin.
type Coin struct {
	Mint                 string  `json:"mint"`
	Name                 string  `json:"name"`
	Symbol               string  `json:"symbol"`
	Creator              string  `json:"creator"`
	BondingCurve         string  `json:"bonding_curve"`
	CreatedTimestamp     int64   `json:"created_timestamp"` // Unix ms
	MarketCap            float64 `json:"market_cap"`        // SOL
	USDMarketCap         float64 `json:"usd_market_cap"`
	VirtualSOLReserves   float64 `json:"virtual_sol_reserves"` // lamports
	VirtualTokenReserves float64 `json:"virtual_token_reserves"`
	TotalSupply          float64 `json:"total_supply"`
	Complete             bool    `json:"complete"` // graduated off the curve
}

// VirtualSOL returns the curve's virtual SOL reserves in SOL.
func (c *Coin) VirtualSOL() float64 {
	return c.VirtualSOLReserves / LamportsPerSOL
}

// PumpFunClient reads the pump.fun frontend API.
type PumpFunClient struct {
	baseClient
}

// NewPumpFunClient creates a client for baseURL (e.g. https://frontend-api-v3.pump.fun).
func NewPumpFunClient(baseURL string, opts ...ClientOption) *PumpFunClient {
	return &PumpFunClient{baseClient: newBaseClient(baseURL, "pumpfun", opts)}
}

// LatestCoins returns up to limit coins, newest first.
func (c *PumpFunClient) LatestCoins(ctx context.Context, limit int) ([]Coin, error) {
	q := url.Values{}
	q.Set("offset", "0")
	q.Set("limit", strconv.Itoa(limit))
	q.Set("sort", "created_timestamp")
	q.Set("order", "DESC")
	q.Set("includeNsfw", "false")

	var coins []Coin
	if err := c.getJSON(ctx, "/coins?"+q.Encode(), &coins); err != nil {
		return nil, fmt.Errorf("latest coins: %w", err)
	}
	return coins, nil
}

// Coin returns one coin by mint. Returns ErrNotFound if pump.fun does not know it.
func (c *PumpFunClient) Coin(ctx context.Context, mint string) (*Coin, error) {
	var coin Coin
	if err := c.getJSON(ctx, "/coins/"+url.PathEscape(mint), &coin); err != nil {
		return nil, fmt.Errorf("coin %s: %w", mint, err)
	}
	// pump.fun answers unknown mints with 200 and an empty object.
	if coin.Mint == "" {
		return nil, fmt.Errorf("coin %s: %w", mint, ErrNotFound)
	}
	return &coin, nil
}
