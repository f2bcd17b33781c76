package solana

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// SPL Token mint account layout (82 bytes):
//
//	mintAuthority   COption<Pubkey>  0..36  (u32 tag + 32 bytes)
//	supply          u64              36..44
//	decimals        u8               44
//	isInitialized   bool             45
//	freezeAuthority COption<Pubkey>  46..82
const (
	mintAccountLen        = 82
	mintAuthorityOffset   = 0
	mintSupplyOffset      = 36
	mintDecimalsOffset    = 44
	mintInitializedOffset = 45
	mintFreezeOffset      = 46
)

// ErrInvalidAccountData is returned when account bytes do not match the expected layout.
var ErrInvalidAccountData = errors.New("invalid account data")

// Mint is the decoded state of an SPL Token mint.
type Mint struct {
	MintAuthority   string // empty when revoked
	Supply          uint64 // raw units
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority string // empty when none
}

// MintDisabled reports whether no further tokens can ever be minted.
func (m *Mint) MintDisabled() bool {
	return m.MintAuthority == ""
}

// ParseMint decodes base64 mint account data.
func ParseMint(data string) (*Mint, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode mint data: %w", err)
	}
	if len(raw) < mintAccountLen {
		return nil, fmt.Errorf("%w: mint data too short: %d", ErrInvalidAccountData, len(raw))
	}

	mintAuthority, err := parseCOptionPubkey(raw[mintAuthorityOffset:])
	if err != nil {
		return nil, fmt.Errorf("mint authority: %w", err)
	}
	freezeAuthority, err := parseCOptionPubkey(raw[mintFreezeOffset:])
	if err != nil {
		return nil, fmt.Errorf("freeze authority: %w", err)
	}

	return &Mint{
		MintAuthority:   mintAuthority,
		Supply:          binary.LittleEndian.Uint64(raw[mintSupplyOffset : mintSupplyOffset+8]),
		Decimals:        raw[mintDecimalsOffset],
		IsInitialized:   raw[mintInitializedOffset] == 1,
		FreezeAuthority: freezeAuthority,
	}, nil
}

// parseCOptionPubkey reads a u32 tag followed by 32 key bytes.
func parseCOptionPubkey(b []byte) (string, error) {
	switch binary.LittleEndian.Uint32(b[:4]) {
	case 0:
		return "", nil
	case 1:
		return base58.Encode(b[4:36]), nil
	default:
		return "", fmt.Errorf("%w: bad option tag", ErrInvalidAccountData)
	}
}
