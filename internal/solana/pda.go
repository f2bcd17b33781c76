package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	pubkeyLen   = 32
	maxSeedLen  = 32
	pdaMarker   = "ProgramDerivedAddress"
	maxBumpSeed = 255
)

// ErrNoViableBump is returned when every bump seed lands on the curve.
var ErrNoViableBump = errors.New("unable to find a viable program address bump seed")

// DecodePubkey decodes a base58 public key and checks its length.
func DecodePubkey(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(b) != pubkeyLen {
		return nil, fmt.Errorf("decode pubkey %q: length %d, want %d", s, len(b), pubkeyLen)
	}
	return b, nil
}

func encodePubkey(b []byte) string {
	return base58.Encode(b)
}

// FindProgramAddress derives the canonical PDA for seeds under programID.
// Bumps are tried from 255 down; the first off-curve hash wins.
func FindProgramAddress(seeds [][]byte, programID []byte) (string, uint8, error) {
	for _, s := range seeds {
		if len(s) > maxSeedLen {
			return "", 0, fmt.Errorf("seed length %d exceeds %d", len(s), maxSeedLen)
		}
	}

	for bump := maxBumpSeed; bump >= 0; bump-- {
		h := sha256.New()
		for _, s := range seeds {
			h.Write(s)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programID)
		h.Write([]byte(pdaMarker))
		sum := h.Sum(nil)

		if !isOnCurve(sum) {
			return base58.Encode(sum), uint8(bump), nil
		}
	}
	return "", 0, ErrNoViableBump
}

// isOnCurve reports whether b decodes to an ed25519 point.
func isOnCurve(b []byte) bool {
	if len(b) != pubkeyLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
