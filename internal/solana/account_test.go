package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	testMint      = "So11111111111111111111111111111111111111112"
	testAuthority = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

func mustPubkey(t *testing.T, s string) []byte {
	t.Helper()
	b, err := DecodePubkey(s)
	if err != nil {
		t.Fatalf("DecodePubkey(%s): %v", s, err)
	}
	return b
}

// mintData builds an 82-byte mint account. Empty authority encodes None.
func mintData(t *testing.T, authority string, supply uint64, decimals uint8) string {
	t.Helper()
	raw := make([]byte, mintAccountLen)
	if authority != "" {
		binary.LittleEndian.PutUint32(raw[0:4], 1)
		copy(raw[4:36], mustPubkey(t, authority))
	}
	binary.LittleEndian.PutUint64(raw[36:44], supply)
	raw[44] = decimals
	raw[45] = 1
	return base64.StdEncoding.EncodeToString(raw)
}

func borshString(s string) []byte {
	b := make([]byte, 4+len(s))
	binary.LittleEndian.PutUint32(b, uint32(len(s)))
	copy(b[4:], s)
	return b
}

// metadataData builds a MetadataV1 account with NUL-padded strings.
func metadataData(t *testing.T, mint, name, symbol, uri string) string {
	t.Helper()
	raw := []byte{metadataKeyV1}
	raw = append(raw, mustPubkey(t, testAuthority)...)
	raw = append(raw, mustPubkey(t, mint)...)
	raw = append(raw, borshString(name+"\x00\x00\x00")...)
	raw = append(raw, borshString(symbol+"\x00")...)
	raw = append(raw, borshString(uri)...)
	return base64.StdEncoding.EncodeToString(raw)
}

func TestParseMint(t *testing.T) {
	tests := []struct {
		name         string
		authority    string
		wantDisabled bool
	}{
		{"authority revoked", "", true},
		{"authority present", testAuthority, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMint(mintData(t, tt.authority, 1_000_000_000_000, 6))
			if err != nil {
				t.Fatalf("ParseMint: %v", err)
			}
			if m.MintDisabled() != tt.wantDisabled {
				t.Errorf("MintDisabled() = %v, want %v", m.MintDisabled(), tt.wantDisabled)
			}
			if m.MintAuthority != tt.authority {
				t.Errorf("MintAuthority = %q, want %q", m.MintAuthority, tt.authority)
			}
			if m.Supply != 1_000_000_000_000 || m.Decimals != 6 || !m.IsInitialized {
				t.Errorf("unexpected mint %+v", m)
			}
		})
	}
}

func TestParseMint_Invalid(t *testing.T) {
	short := base64.StdEncoding.EncodeToString(make([]byte, 40))
	if _, err := ParseMint(short); !errors.Is(err, ErrInvalidAccountData) {
		t.Errorf("short data: expected ErrInvalidAccountData, got %v", err)
	}

	raw := make([]byte, mintAccountLen)
	binary.LittleEndian.PutUint32(raw[0:4], 7)
	if _, err := ParseMint(base64.StdEncoding.EncodeToString(raw)); !errors.Is(err, ErrInvalidAccountData) {
		t.Errorf("bad tag: expected ErrInvalidAccountData, got %v", err)
	}

	if _, err := ParseMint("%%%"); err == nil {
		t.Error("bad base64: expected error")
	}
}

func TestMetadataPDA(t *testing.T) {
	pda, err := MetadataPDA(testMint)
	if err != nil {
		t.Fatalf("MetadataPDA: %v", err)
	}

	again, _ := MetadataPDA(testMint)
	if pda != again {
		t.Errorf("derivation not deterministic: %s vs %s", pda, again)
	}

	raw, err := base58.Decode(pda)
	if err != nil || len(raw) != 32 {
		t.Fatalf("PDA is not a 32-byte base58 key: %v", err)
	}
	if _, err := new(edwards25519.Point).SetBytes(raw); err == nil {
		t.Error("PDA must be off the ed25519 curve")
	}

	if _, err := MetadataPDA("not-base58-0OIl"); err == nil {
		t.Error("expected error for invalid mint")
	}
}

func TestFindProgramAddress_SeedTooLong(t *testing.T) {
	program := mustPubkey(t, MetaplexProgramID)
	if _, _, err := FindProgramAddress([][]byte{make([]byte, 33)}, program); err == nil {
		t.Fatal("expected error for seed longer than 32 bytes")
	}
}

func TestParseMetadata(t *testing.T) {
	meta, err := ParseMetadata(metadataData(t, testMint, "Wrapped SOL", "SOL", "https://example.com/sol.json"))
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}

	if meta.Mint != testMint {
		t.Errorf("Mint = %s, want %s", meta.Mint, testMint)
	}
	if meta.Name != "Wrapped SOL" {
		t.Errorf("Name = %q, want trimmed %q", meta.Name, "Wrapped SOL")
	}
	if meta.Symbol != "SOL" {
		t.Errorf("Symbol = %q, want SOL", meta.Symbol)
	}
	if meta.URI != "https://example.com/sol.json" {
		t.Errorf("URI = %q", meta.URI)
	}
}

func TestParseMetadata_WrongKey(t *testing.T) {
	raw := make([]byte, 120)
	raw[0] = 1
	if _, err := ParseMetadata(base64.StdEncoding.EncodeToString(raw)); !errors.Is(err, ErrInvalidAccountData) {
		t.Fatalf("expected ErrInvalidAccountData, got %v", err)
	}
}

type fakeAccounts map[string]*AccountInfo

func (f fakeAccounts) GetAccountInfo(_ context.Context, pubkey string) (*AccountInfo, error) {
	return f[pubkey], nil
}

func TestMetadataResolver_Resolve(t *testing.T) {
	pda, err := MetadataPDA(testMint)
	if err != nil {
		t.Fatalf("MetadataPDA: %v", err)
	}

	r := NewMetadataResolver(fakeAccounts{
		pda: {Data: metadataData(t, testMint, "Wrapped SOL", "SOL", "")},
	})

	meta, err := r.Resolve(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if meta == nil || meta.Symbol != "SOL" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestMetadataResolver_MissingAccount(t *testing.T) {
	r := NewMetadataResolver(fakeAccounts{})

	meta, err := r.Resolve(context.Background(), testMint)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if meta != nil {
		t.Errorf("expected nil metadata, got %+v", meta)
	}
}

func TestMetadataResolver_MintMismatch(t *testing.T) {
	pda, _ := MetadataPDA(testMint)
	r := NewMetadataResolver(fakeAccounts{
		pda: {Data: metadataData(t, testAuthority, "Other", "OTH", "")},
	})

	if _, err := r.Resolve(context.Background(), testMint); !errors.Is(err, ErrInvalidAccountData) {
		t.Fatalf("expected ErrInvalidAccountData, got %v", err)
	}
}
