package scanner

import (
	"context"
	"errors"
	"fmt"

	"solana-paper-sniper/internal/domain"
	"solana-paper-sniper/internal/marketdata"
)

// Source names.
const (
	SourceDexScreener = "dexscreener"
	SourcePumpFun     = "pumpfun"
	SourcePumpPortal  = "pumpportal"
)

// ErrUnexpectedEntry is returned when an entry's payload does not belong to the source.
var ErrUnexpectedEntry = errors.New("unexpected entry payload")

// Entry is one raw item returned by Source.Fetch.
type Entry struct {
	TokenAddress string
	Data         any // source-specific payload
}

// Source fetches raw entries and normalizes them into candidates.
type Source interface {
	Name() string
	// Fetch returns up to limit raw entries. An error ends the cycle.
	Fetch(ctx context.Context, limit int) ([]Entry, error)
	// Normalize converts one entry. An error skips just that entry.
	Normalize(ctx context.Context, e Entry) (*domain.Candidate, error)
}

// DexScreenerAPI is the subset of the DexScreener client used by DexScreenerSource.
type DexScreenerAPI interface {
	LatestTokenProfiles(ctx context.Context) ([]marketdata.TokenProfile, error)
	BestPair(ctx context.Context, tokenAddress string) (*marketdata.Pair, error)
}

// DexScreenerSource scans the general market via the latest token profiles.
type DexScreenerSource struct {
	api DexScreenerAPI
}

// NewDexScreenerSource creates the general market source.
func NewDexScreenerSource(api DexScreenerAPI) *DexScreenerSource {
	return &DexScreenerSource{api: api}
}

var _ Source = (*DexScreenerSource)(nil)

// Name implements Source.
func (s *DexScreenerSource) Name() string { return SourceDexScreener }

// Fetch implements Source.
func (s *DexScreenerSource) Fetch(ctx context.Context, limit int) ([]Entry, error) {
	profiles, err := s.api.LatestTokenProfiles(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}

	entries := make([]Entry, 0, len(profiles))
	for i := range profiles {
		entries = append(entries, Entry{TokenAddress: profiles[i].TokenAddress, Data: profiles[i]})
	}
	return entries, nil
}

// Normalize implements Source. The best-liquidity pair supplies the market numbers.
func (s *DexScreenerSource) Normalize(ctx context.Context, e Entry) (*domain.Candidate, error) {
	pair, err := s.api.BestPair(ctx, e.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("best pair %s: %w", e.TokenAddress, err)
	}

	return &domain.Candidate{
		TokenAddress: e.TokenAddress,
		Symbol:       pair.BaseToken.Symbol,
		Name:         pair.BaseToken.Name,
		PriceUSD:     pair.Price(),
		LiquidityUSD: pair.Liquidity.USD,
		Volume24hUSD: pair.Volume.H24,
		MarketCapUSD: pair.MarketCapUSD(),
		Source:       SourceDexScreener,
		ListedAtMs:   pair.PairCreatedAt,
	}, nil
}

// PumpFunAPI is the subset of the pump.fun client used by PumpFunSource.
type PumpFunAPI interface {
	LatestCoins(ctx context.Context, limit int) ([]marketdata.Coin, error)
}

// PumpFunSource scans the newest bonding-curve coins.
type PumpFunSource struct {
	api     PumpFunAPI
	solUSD  float64
	divisor float64
}

// NewPumpFunSource creates the bonding-curve REST source.
func NewPumpFunSource(api PumpFunAPI, solUSD, priceDivisor float64) *PumpFunSource {
	return &PumpFunSource{api: api, solUSD: solUSD, divisor: priceDivisor}
}

var _ Source = (*PumpFunSource)(nil)

// Name implements Source.
func (s *PumpFunSource) Name() string { return SourcePumpFun }

// Fetch implements Source.
func (s *PumpFunSource) Fetch(ctx context.Context, limit int) ([]Entry, error) {
	coins, err := s.api.LatestCoins(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(coins))
	for i := range coins {
		entries = append(entries, Entry{TokenAddress: coins[i].Mint, Data: coins[i]})
	}
	return entries, nil
}

// Normalize implements Source. The coin listing is self-contained.
// Volume is not published per coin; the USD market cap stands in for it.
func (s *PumpFunSource) Normalize(_ context.Context, e Entry) (*domain.Candidate, error) {
	coin, ok := e.Data.(marketdata.Coin)
	if !ok {
		return nil, fmt.Errorf("%s: %w", SourcePumpFun, ErrUnexpectedEntry)
	}
	if coin.Mint == "" {
		return nil, fmt.Errorf("%s: empty mint: %w", SourcePumpFun, ErrUnexpectedEntry)
	}

	return &domain.Candidate{
		TokenAddress: coin.Mint,
		Symbol:       coin.Symbol,
		Name:         coin.Name,
		PriceUSD:     curvePrice(coin.USDMarketCap, s.divisor),
		LiquidityUSD: coin.VirtualSOL() * s.solUSD,
		Volume24hUSD: coin.USDMarketCap,
		MarketCapUSD: coin.USDMarketCap,
		Source:       SourcePumpFun,
		ListedAtMs:   coin.CreatedTimestamp,
	}, nil
}

// NewTokenFeed is the subset of the PumpPortal feed used by PumpPortalSource.
type NewTokenFeed interface {
	Drain(max int) []marketdata.NewTokenEvent
}

// PumpPortalSource drains create events buffered by the PumpPortal WebSocket feed.
type PumpPortalSource struct {
	feed    NewTokenFeed
	solUSD  float64
	divisor float64
}

// NewPumpPortalSource creates the bonding-curve push source.
func NewPumpPortalSource(feed NewTokenFeed, solUSD, priceDivisor float64) *PumpPortalSource {
	return &PumpPortalSource{feed: feed, solUSD: solUSD, divisor: priceDivisor}
}

var _ Source = (*PumpPortalSource)(nil)

// Name implements Source.
func (s *PumpPortalSource) Name() string { return SourcePumpPortal }

// Fetch implements Source. It never fails; an idle feed yields no entries.
func (s *PumpPortalSource) Fetch(_ context.Context, limit int) ([]Entry, error) {
	events := s.feed.Drain(limit)

	entries := make([]Entry, 0, len(events))
	for i := range events {
		entries = append(entries, Entry{TokenAddress: events[i].Mint, Data: events[i]})
	}
	return entries, nil
}

// Normalize implements Source.
func (s *PumpPortalSource) Normalize(_ context.Context, e Entry) (*domain.Candidate, error) {
	ev, ok := e.Data.(marketdata.NewTokenEvent)
	if !ok {
		return nil, fmt.Errorf("%s: %w", SourcePumpPortal, ErrUnexpectedEntry)
	}
	if ev.Mint == "" {
		return nil, fmt.Errorf("%s: empty mint: %w", SourcePumpPortal, ErrUnexpectedEntry)
	}

	marketCap := ev.MarketCapSol * s.solUSD
	return &domain.Candidate{
		TokenAddress: ev.Mint,
		Symbol:       ev.Symbol,
		Name:         ev.Name,
		PriceUSD:     curvePrice(marketCap, s.divisor),
		LiquidityUSD: ev.VSolInBondingCurve * s.solUSD,
		Volume24hUSD: marketCap,
		MarketCapUSD: marketCap,
		Source:       SourcePumpPortal,
		ListedAtMs:   ev.ReceivedAtMs,
	}, nil
}

func curvePrice(marketCapUSD, divisor float64) float64 {
	if divisor <= 0 {
		return 0
	}
	return marketCapUSD / divisor
}
