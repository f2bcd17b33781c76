// Package solana provides a minimal Solana JSON-RPC client plus the account
// decoding the agent needs: SPL mint state and Metaplex token metadata.
package solana

import "context"

// AccountReader reads raw account state.
type AccountReader interface {
	// GetAccountInfo returns the account or nil if it does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}
