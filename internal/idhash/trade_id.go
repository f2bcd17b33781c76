package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"solana-paper-sniper/internal/domain"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(position_id|side|created_at_ms)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(positionID string, side domain.TradeSide, createdAtMs int64) string {
	data := fmt.Sprintf("%s|%s|%d",
		positionID,
		string(side),
		createdAtMs,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
