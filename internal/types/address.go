package types

import (
	"encoding/hex"
	"fmt"
)

const (
	AccountAddressLength  = 32
	ModuleReferenceLength = 32
)

// AccountAddress is the 32-byte address of a ledger account.
type AccountAddress [AccountAddressLength]byte

func (a AccountAddress) Hex() string {
	return hex.EncodeToString(a[:])
}

func (a AccountAddress) String() string {
	return a.Hex()
}

func (a AccountAddress) IsZero() bool {
	return a == AccountAddress{}
}

func AccountAddressFromHex(s string) (AccountAddress, error) {
	var addr AccountAddress
	raw, err := hex.DecodeString(s)
	if err != nil {
		return addr, fmt.Errorf("invalid account address %q: %w", s, err)
	}
	if len(raw) != AccountAddressLength {
		return addr, fmt.Errorf("invalid account address length: got %d, want %d", len(raw), AccountAddressLength)
	}
	copy(addr[:], raw)
	return addr, nil
}

// ContractAddress identifies a deployed contract instance by its ledger
// index and subindex.
type ContractAddress struct {
	Index    uint64 `json:"index" mapstructure:"index"`
	Subindex uint64 `json:"subindex" mapstructure:"subindex"`
}

func (c ContractAddress) String() string {
	return fmt.Sprintf("<%d,%d>", c.Index, c.Subindex)
}

// ModuleReference is the 32-byte reference of a deployed contract
// module. Schemas are embedded per module and fetched by this key.
type ModuleReference [ModuleReferenceLength]byte

func (m ModuleReference) Hex() string {
	return hex.EncodeToString(m[:])
}

func (m ModuleReference) String() string {
	return m.Hex()
}

func ModuleReferenceFromHex(s string) (ModuleReference, error) {
	var ref ModuleReference
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ref, fmt.Errorf("invalid module reference %q: %w", s, err)
	}
	if len(raw) != ModuleReferenceLength {
		return ref, fmt.Errorf("invalid module reference length: got %d, want %d", len(raw), ModuleReferenceLength)
	}
	copy(ref[:], raw)
	return ref, nil
}

// TransactionID is the hex-encoded hash of a submitted transaction.
type TransactionID string

func (t TransactionID) String() string {
	return string(t)
}
