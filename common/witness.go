package common

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrOwnerWitnessFailed appears when the operation must be signed
// by the owner of the assets but was not.
var ErrOwnerWitnessFailed = errors.New("owner witness check failed")

// CheckOwnerWitness checks that sig is the owner's signature of msg.
// It returns ErrOwnerWitnessFailed on fail.
func CheckOwnerWitness(owner solana.PublicKey, sig solana.Signature, msg []byte) error {
	if owner.IsZero() || !sig.Verify(owner, msg) {
		return ErrOwnerWitnessFailed
	}
	return nil
}
