package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
)

// MetaplexProgramID is the Metaplex Token Metadata program.
const MetaplexProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

// metadataKeyV1 is the account discriminator of MetadataV1.
const metadataKeyV1 = 4

// Borsh string caps used by Metaplex (padded to these lengths on chain).
const (
	maxNameLen   = 32
	maxSymbolLen = 10
	maxURILen    = 200
)

// TokenMetadata is the subset of Metaplex metadata used for display.
type TokenMetadata struct {
	Mint   string
	Name   string
	Symbol string
	URI    string
}

// MetadataPDA returns the Metaplex metadata account address for mint.
// Seeds: ["metadata", program_id, mint].
func MetadataPDA(mint string) (string, error) {
	mintBytes, err := DecodePubkey(mint)
	if err != nil {
		return "", err
	}
	programBytes, err := DecodePubkey(MetaplexProgramID)
	if err != nil {
		return "", err
	}

	addr, _, err := FindProgramAddress([][]byte{
		[]byte("metadata"),
		programBytes,
		mintBytes,
	}, programBytes)
	if err != nil {
		return "", fmt.Errorf("derive metadata pda: %w", err)
	}
	return addr, nil
}

// ParseMetadata decodes base64 Metaplex metadata account data.
//
// Layout: key u8 | updateAuthority [32] | mint [32] | name str | symbol str | uri str | ...
// where str is a u32 little-endian length followed by NUL-padded bytes.
func ParseMetadata(data string) (*TokenMetadata, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if len(raw) < 1+2*pubkeyLen {
		return nil, fmt.Errorf("%w: metadata too short: %d", ErrInvalidAccountData, len(raw))
	}
	if raw[0] != metadataKeyV1 {
		return nil, fmt.Errorf("%w: metadata key %d", ErrInvalidAccountData, raw[0])
	}

	mintOffset := 1 + pubkeyLen
	meta := &TokenMetadata{
		Mint: encodePubkey(raw[mintOffset : mintOffset+pubkeyLen]),
	}

	offset := mintOffset + pubkeyLen
	if meta.Name, offset, err = readBorshString(raw, offset, maxNameLen); err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	if meta.Symbol, offset, err = readBorshString(raw, offset, maxSymbolLen); err != nil {
		return nil, fmt.Errorf("symbol: %w", err)
	}
	// URI is informational; a truncated account still yields name and symbol.
	if uri, _, err := readBorshString(raw, offset, maxURILen); err == nil {
		meta.URI = uri
	}
	return meta, nil
}

func readBorshString(raw []byte, offset, maxLen int) (string, int, error) {
	if offset+4 > len(raw) {
		return "", offset, fmt.Errorf("%w: truncated length", ErrInvalidAccountData)
	}
	n := int(binary.LittleEndian.Uint32(raw[offset:]))
	offset += 4
	// Allow slack over the cap; some mints were written with longer padding.
	if n > maxLen*4 || offset+n > len(raw) {
		return "", offset, fmt.Errorf("%w: string length %d", ErrInvalidAccountData, n)
	}
	s := strings.TrimSpace(strings.TrimRight(string(raw[offset:offset+n]), "\x00"))
	return s, offset + n, nil
}

// MetadataResolver reads token name and symbol from chain.
type MetadataResolver struct {
	rpc AccountReader
}

// NewMetadataResolver creates a resolver on top of rpc.
func NewMetadataResolver(rpc AccountReader) *MetadataResolver {
	return &MetadataResolver{rpc: rpc}
}

// Resolve returns the metadata of mint. Returns nil, nil if the mint has no
// metadata account.
func (r *MetadataResolver) Resolve(ctx context.Context, mint string) (*TokenMetadata, error) {
	pda, err := MetadataPDA(mint)
	if err != nil {
		return nil, err
	}

	info, err := r.rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return nil, fmt.Errorf("get metadata account: %w", err)
	}
	if info == nil {
		return nil, nil
	}

	meta, err := ParseMetadata(info.Data)
	if err != nil {
		return nil, err
	}
	if meta.Mint != mint {
		return nil, fmt.Errorf("%w: metadata mint %s does not match %s", ErrInvalidAccountData, meta.Mint, mint)
	}
	return meta, nil
}
