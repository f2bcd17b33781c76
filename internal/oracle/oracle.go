// Package oracle resolves a token's current USD price from public market data.
package oracle

import (
	"context"
	"math"

	"solana-paper-sniper/internal/marketdata"
	"solana-paper-sniper/internal/observability"
)

// Quote sources.
const (
	SourceDexScreener = "dexscreener"
	SourcePumpFun     = "pumpfun"
	SourceUnknown     = "unknown"
)

// Quote is a point-in-time price. PriceUSD == 0 means the price is unknown.
type Quote struct {
	PriceUSD     float64
	MarketCapUSD *float64
	Source       string
}

// Known reports whether the quote carries a usable price.
func (q Quote) Known() bool {
	return q.PriceUSD > 0 && !math.IsInf(q.PriceUSD, 0)
}

// PriceOracle returns the current price of a token. It never fails;
// an unknown price is reported as a zero Quote.
type PriceOracle interface {
	CurrentPrice(ctx context.Context, tokenAddress string) Quote
}

// PairSource looks up DexScreener pairs.
type PairSource interface {
	BestPair(ctx context.Context, tokenAddress string) (*marketdata.Pair, error)
}

// CoinSource looks up pump.fun bonding-curve coins.
type CoinSource interface {
	Coin(ctx context.Context, mint string) (*marketdata.Coin, error)
}

// Options configures FallbackOracle.
type Options struct {
	Pairs PairSource // primary, optional
	Coins CoinSource // secondary, optional

	// PriceDivisor converts a bonding-curve market cap into a per-token price.
	PriceDivisor float64
}

// FallbackOracle asks DexScreener first and pump.fun second.
// Each source is tried once per call.
type FallbackOracle struct {
	pairs   PairSource
	coins   CoinSource
	divisor float64
}

// DefaultPriceDivisor is the pump.fun total token supply.
const DefaultPriceDivisor = 1e9

// New creates a FallbackOracle.
func New(opts Options) *FallbackOracle {
	divisor := opts.PriceDivisor
	if divisor <= 0 {
		divisor = DefaultPriceDivisor
	}
	return &FallbackOracle{
		pairs:   opts.Pairs,
		coins:   opts.Coins,
		divisor: divisor,
	}
}

var _ PriceOracle = (*FallbackOracle)(nil)

// CurrentPrice implements PriceOracle.
func (o *FallbackOracle) CurrentPrice(ctx context.Context, tokenAddress string) Quote {
	if q, ok := o.fromPairs(ctx, tokenAddress); ok {
		observability.RecordOracleLookup(SourceDexScreener)
		return q
	}
	if q, ok := o.fromCoins(ctx, tokenAddress); ok {
		observability.RecordOracleLookup(SourcePumpFun)
		return q
	}
	observability.RecordOracleLookup(SourceUnknown)
	return Quote{Source: SourceUnknown}
}

func (o *FallbackOracle) fromPairs(ctx context.Context, tokenAddress string) (Quote, bool) {
	if o.pairs == nil {
		return Quote{}, false
	}
	pair, err := o.pairs.BestPair(ctx, tokenAddress)
	if err != nil {
		return Quote{}, false
	}
	price := pair.Price()
	if price <= 0 {
		return Quote{}, false
	}

	q := Quote{PriceUSD: price, Source: SourceDexScreener}
	if mc := pair.MarketCapUSD(); mc > 0 {
		q.MarketCapUSD = &mc
	}
	return q, true
}

func (o *FallbackOracle) fromCoins(ctx context.Context, tokenAddress string) (Quote, bool) {
	if o.coins == nil {
		return Quote{}, false
	}
	coin, err := o.coins.Coin(ctx, tokenAddress)
	if err != nil {
		return Quote{}, false
	}
	if coin.USDMarketCap <= 0 {
		return Quote{}, false
	}

	mc := coin.USDMarketCap
	return Quote{
		PriceUSD:     mc / o.divisor,
		MarketCapUSD: &mc,
		Source:       SourcePumpFun,
	}, true
}
