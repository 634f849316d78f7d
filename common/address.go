package common

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// DecodeAddress decodes base58 string into the ledger address. Unlike
// solana.PublicKeyFromBase58 it reports the actual length of a malformed
// value.
func DecodeAddress(s string) (solana.PublicKey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("decode base58: %w", err)
	}
	if len(b) != solana.PublicKeyLength {
		return solana.PublicKey{}, fmt.Errorf("invalid address length %d, expected %d", len(b), solana.PublicKeyLength)
	}
	return solana.PublicKeyFromBytes(b), nil
}

// MustDecodeAddress is like DecodeAddress but panics on error. It is meant
// for package-level constants.
func MustDecodeAddress(s string) solana.PublicKey {
	a, err := DecodeAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}
