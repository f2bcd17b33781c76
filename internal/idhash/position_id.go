package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputePositionID computes a deterministic position_id using SHA256.
// Formula: SHA256(token_address|opened_at_ms|seq)
// seq separates positions of one token opened within the same millisecond.
// Returns hex-encoded hash (64 characters).
func ComputePositionID(tokenAddress string, openedAtMs int64, seq uint64) string {
	data := fmt.Sprintf("%s|%d|%d", tokenAddress, openedAtMs, seq)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
