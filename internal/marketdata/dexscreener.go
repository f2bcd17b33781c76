package marketdata

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
)

// SolanaChainID is DexScreener's chain identifier for Solana.
const SolanaChainID = "solana"

// TokenProfile is one entry of /token-profiles/latest/v1.
type TokenProfile struct {
	URL          string `json:"url"`
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
	Description  string `json:"description"`
}

// PairToken identifies one side of a pair.
type PairToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// PairVolume holds rolling USD volumes.
type PairVolume struct {
	H24 float64 `json:"h24"`
	H6  float64 `json:"h6"`
	H1  float64 `json:"h1"`
	M5  float64 `json:"m5"`
}

// PairLiquidity holds pool liquidity.
type PairLiquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// Pair is a DexScreener trading pair.
type Pair struct {
	ChainID       string        `json:"chainId"`
	DexID         string        `json:"dexId"`
	URL           string        `json:"url"`
	PairAddress   string        `json:"pairAddress"`
	BaseToken     PairToken     `json:"baseToken"`
	QuoteToken    PairToken     `json:"quoteToken"`
	PriceNative   string        `json:"priceNative"`
	PriceUSD      string        `json:"priceUsd"`
	Volume        PairVolume    `json:"volume"`
	Liquidity     PairLiquidity `json:"liquidity"`
	FDV           float64       `json:"fdv"`
	MarketCap     float64       `json:"marketCap"`
	PairCreatedAt int64         `json:"pairCreatedAt"` // Unix ms
}

// Price returns priceUsd as a float, 0 when missing or malformed.
func (p *Pair) Price() float64 {
	v, err := strconv.ParseFloat(p.PriceUSD, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

// MarketCapUSD returns marketCap, falling back to fdv.
func (p *Pair) MarketCapUSD() float64 {
	if p.MarketCap > 0 {
		return p.MarketCap
	}
	return p.FDV
}

type tokenPairsResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// DexScreenerClient reads the public DexScreener API.
type DexScreenerClient struct {
	baseClient
}

// NewDexScreenerClient creates a client for baseURL (e.g. https://api.dexscreener.com).
func NewDexScreenerClient(baseURL string, opts ...ClientOption) *DexScreenerClient {
	return &DexScreenerClient{baseClient: newBaseClient(baseURL, "dexscreener", opts)}
}

// LatestTokenProfiles returns the most recently published token profiles on Solana.
func (c *DexScreenerClient) LatestTokenProfiles(ctx context.Context) ([]TokenProfile, error) {
	var profiles []TokenProfile
	if err := c.getJSON(ctx, "/token-profiles/latest/v1", &profiles); err != nil {
		return nil, fmt.Errorf("latest token profiles: %w", err)
	}

	result := profiles[:0]
	for _, p := range profiles {
		if p.ChainID == SolanaChainID && p.TokenAddress != "" {
			result = append(result, p)
		}
	}
	return result, nil
}

// TokenPairs returns all Solana pairs that trade the token.
func (c *DexScreenerClient) TokenPairs(ctx context.Context, tokenAddress string) ([]Pair, error) {
	var resp tokenPairsResponse
	if err := c.getJSON(ctx, "/latest/dex/tokens/"+url.PathEscape(tokenAddress), &resp); err != nil {
		return nil, fmt.Errorf("token pairs %s: %w", tokenAddress, err)
	}

	result := make([]Pair, 0, len(resp.Pairs))
	for _, p := range resp.Pairs {
		if p.ChainID == SolanaChainID {
			result = append(result, p)
		}
	}
	return result, nil
}

// BestPair returns the Solana pair with the highest USD liquidity.
// Returns ErrNotFound if the token has no Solana pair.
func (c *DexScreenerClient) BestPair(ctx context.Context, tokenAddress string) (*Pair, error) {
	pairs, err := c.TokenPairs(ctx, tokenAddress)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("token pairs %s: %w", tokenAddress, ErrNotFound)
	}

	best := &pairs[0]
	for i := 1; i < len(pairs); i++ {
		if pairs[i].Liquidity.USD > best.Liquidity.USD {
			best = &pairs[i]
		}
	}
	return best, nil
}
