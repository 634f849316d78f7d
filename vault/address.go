package vault

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/nspcc-dev/vault-contract/derive"
)

// Derivation tags of the vault addresses.
const (
	StateTag = "state"
	VaultTag = "vault"
)

// Accounts groups addresses an operation works with.
type Accounts struct {
	// Owner of the vault, signs every operation.
	User solana.PublicKey
	// State record derived from User.
	VaultState solana.PublicKey
	// Value-holding account derived from VaultState.
	Vault solana.PublicKey
}

// Addresses is a derived address pair of the owner.
type Addresses struct {
	State derive.Derived
	Vault derive.Derived
}

// Accounts returns the account set of the owner.
func (a Addresses) Accounts(owner solana.PublicKey) Accounts {
	return Accounts{
		User:       owner,
		VaultState: a.State.Address,
		Vault:      a.Vault.Address,
	}
}

// DeriveAddresses finds canonical state and vault addresses of the owner.
func DeriveAddresses(d *derive.Deriver, owner solana.PublicKey) (Addresses, error) {
	st, err := d.Derive(StateTag, owner.Bytes())
	if err != nil {
		return Addresses{}, fmt.Errorf("derive state address: %w", err)
	}

	v, err := d.Derive(VaultTag, st.Address.Bytes())
	if err != nil {
		return Addresses{}, fmt.Errorf("derive vault address: %w", err)
	}

	return Addresses{State: st, Vault: v}, nil
}

// stored rebuilds the owner's addresses from the bumps kept in the state
// record and checks them against the claimed ones.
func stored(d *derive.Deriver, acc Accounts, s State) (Addresses, error) {
	st := derive.Derived{
		Tag:        StateTag,
		Components: [][]byte{acc.User.Bytes()},
		Bump:       s.StateBump,
		Address:    acc.VaultState,
	}
	if !d.Reproduce(st) {
		return Addresses{}, fmt.Errorf("%w: state %s", ErrDerivationMismatch, acc.VaultState)
	}

	v := derive.Derived{
		Tag:        VaultTag,
		Components: [][]byte{acc.VaultState.Bytes()},
		Bump:       s.VaultBump,
		Address:    acc.Vault,
	}
	if !d.Reproduce(v) {
		return Addresses{}, fmt.Errorf("%w: vault %s", ErrDerivationMismatch, acc.Vault)
	}

	return Addresses{State: st, Vault: v}, nil
}

// canonical derives the owner's addresses and checks them against the
// claimed ones.
func canonical(d *derive.Deriver, acc Accounts) (Addresses, error) {
	a, err := DeriveAddresses(d, acc.User)
	if err != nil {
		return Addresses{}, err
	}
	if !a.State.Address.Equals(acc.VaultState) {
		return Addresses{}, fmt.Errorf("%w: state %s", ErrDerivationMismatch, acc.VaultState)
	}
	if !a.Vault.Address.Equals(acc.Vault) {
		return Addresses{}, fmt.Errorf("%w: vault %s", ErrDerivationMismatch, acc.Vault)
	}
	return a, nil
}
