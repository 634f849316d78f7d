package ledger

import (
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/nspcc-dev/vault-contract/derive"
)

// Transfer moves amount from one account to another. The source must have
// signed the execution. Either the whole amount is moved or an error is
// returned and nothing changes.
func (tx *Tx) Transfer(from, to solana.PublicKey, amount uint64) error {
	if !tx.IsSigner(from) {
		return fmt.Errorf("%w: %s", ErrMissingSignature, from)
	}

	return tx.transfer(from, to, amount)
}

// TransferAsDerived moves amount from the derived address to another
// account. Instead of a signature the authority is proven by the signer
// seeds of the address, which must reproduce it under the executing program.
func (tx *Tx) TransferAsDerived(from derive.Derived, to solana.PublicKey, amount uint64) error {
	if !tx.deriver.Reproduce(from) {
		return fmt.Errorf("%w: %s", ErrSignerSeedsMismatch, from.Address)
	}

	return tx.transfer(from.Address, to, amount)
}

func (tx *Tx) transfer(from, to solana.PublicKey, amount uint64) error {
	src, err := tx.account(from)
	if err != nil {
		return err
	}
	if len(src.Data) != 0 || src.Executable || !src.Owner.Equals(solana.SystemProgramID) {
		return fmt.Errorf("%w: %s", ErrTransferFromData, from)
	}
	if src.Lamports < amount {
		return fmt.Errorf("%w: %s holds %d, need %d", ErrInsufficientFunds, from, src.Lamports, amount)
	}

	if from.Equals(to) {
		return nil
	}

	dst, err := tx.account(to)
	if err != nil {
		return err
	}
	if dst.Lamports > math.MaxUint64-amount {
		return fmt.Errorf("%w: credit %d to %s", ErrArithmeticOverflow, amount, to)
	}

	src.Lamports -= amount
	dst.Lamports += amount

	if err = tx.putAccount(from, src); err != nil {
		return err
	}

	return tx.putAccount(to, dst)
}
