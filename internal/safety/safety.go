// Package safety produces the two token safety signals used by the decision gates:
// mint authority disabled and liquidity pool tokens burnt.
package safety

import (
	"context"
	"errors"
	"fmt"

	"solana-paper-sniper/internal/solana"
)

// ErrMintNotFound is returned when the mint account does not exist.
var ErrMintNotFound = errors.New("mint account not found")

// Signals are the safety inputs of a candidate.
type Signals struct {
	MintDisabled bool
	LPBurnt      bool
}

// Checker resolves safety signals for a token.
// On error callers treat both signals as false.
type Checker interface {
	Check(ctx context.Context, tokenAddress string) (Signals, error)
}

// StaticChecker returns configured signals for every token.
type StaticChecker struct {
	signals Signals
}

// NewStaticChecker creates a checker that always reports s.
func NewStaticChecker(s Signals) *StaticChecker {
	return &StaticChecker{signals: s}
}

var _ Checker = (*StaticChecker)(nil)

// Check implements Checker.
func (c *StaticChecker) Check(_ context.Context, _ string) (Signals, error) {
	return c.signals, nil
}

// RPCChecker reads the SPL mint account to decide MintDisabled.
// LP burn cannot be read from the mint, so it comes from the fallback checker.
type RPCChecker struct {
	rpc      solana.AccountReader
	fallback Checker
}

// NewRPCChecker creates a checker backed by rpc. fallback supplies LPBurnt.
func NewRPCChecker(rpc solana.AccountReader, fallback Checker) *RPCChecker {
	if fallback == nil {
		fallback = NewStaticChecker(Signals{})
	}
	return &RPCChecker{rpc: rpc, fallback: fallback}
}

var _ Checker = (*RPCChecker)(nil)

// Check implements Checker.
func (c *RPCChecker) Check(ctx context.Context, tokenAddress string) (Signals, error) {
	base, err := c.fallback.Check(ctx, tokenAddress)
	if err != nil {
		return Signals{}, err
	}

	info, err := c.rpc.GetAccountInfo(ctx, tokenAddress)
	if err != nil {
		return Signals{}, fmt.Errorf("get mint account %s: %w", tokenAddress, err)
	}
	if info == nil {
		return Signals{}, fmt.Errorf("%s: %w", tokenAddress, ErrMintNotFound)
	}

	mint, err := solana.ParseMint(info.Data)
	if err != nil {
		return Signals{}, fmt.Errorf("parse mint %s: %w", tokenAddress, err)
	}

	return Signals{
		MintDisabled: mint.MintDisabled(),
		LPBurnt:      base.LPBurnt,
	}, nil
}
