package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/vault-contract/common"
	"github.com/nspcc-dev/vault-contract/derive"
	"github.com/nspcc-dev/vault-contract/rent"
)

// Tx is a single execution in progress. All reads observe the writes made
// earlier within the same execution. Tx is valid only inside the function
// passed to Ledger.Execute.
type Tx struct {
	id      uuid.UUID
	program solana.PublicKey
	deriver *derive.Deriver
	signers map[solana.PublicKey]struct{}

	cache *storage.MemCachedStore

	// states of accounts as of the execution start
	pre map[solana.PublicKey]preState
}

type preState struct {
	lamports uint64
	dataLen  int
}

// ID returns unique execution identifier.
func (tx *Tx) ID() uuid.UUID {
	return tx.id
}

// Program returns the program the execution runs on behalf of.
func (tx *Tx) Program() solana.PublicKey {
	return tx.program
}

// Deriver returns the address deriver scoped to the executing program.
func (tx *Tx) Deriver() *derive.Deriver {
	return tx.deriver
}

// IsSigner tells whether the account signed the execution.
func (tx *Tx) IsSigner(addr solana.PublicKey) bool {
	_, ok := tx.signers[addr]
	return ok
}

// Account returns the account state. The second value is false for absent
// accounts.
func (tx *Tx) Account(addr solana.PublicKey) (Account, bool, error) {
	acc, err := tx.account(addr)
	if err != nil {
		return Account{}, false, err
	}
	return acc, !acc.IsEmpty(), nil
}

// Balance returns the account balance.
func (tx *Tx) Balance(addr solana.PublicKey) (uint64, error) {
	acc, err := tx.account(addr)
	return acc.Lamports, err
}

// Rent returns the rent model stored in the rent sysvar.
func (tx *Tx) Rent() (rent.Rent, error) {
	var r rent.Rent

	acc, err := tx.account(SysvarRentID)
	if err != nil {
		return r, err
	}
	if acc.IsEmpty() {
		return r, ErrSysvarNotFound
	}

	if err = common.Deserialize(acc.Data, &r); err != nil {
		return r, fmt.Errorf("decode rent sysvar: %w", err)
	}

	return r, nil
}

// SetRent replaces the rent model. Only the system program can do it.
func (tx *Tx) SetRent(r rent.Rent) error {
	if !tx.program.Equals(solana.SystemProgramID) {
		return ErrPrivileged
	}
	if err := r.Validate(); err != nil {
		return err
	}

	data, err := common.Serialize(&r)
	if err != nil {
		return err
	}

	acc, err := tx.account(SysvarRentID)
	if err != nil {
		return err
	}
	acc.Owner = SysvarRentID
	acc.Data = data
	// sysvars hold the minimal balance to stay in the ledger
	if acc.Lamports == 0 {
		acc.Lamports = 1
	}

	return tx.putAccount(SysvarRentID, acc)
}

// RegisterProgram marks the account as executable and stores program
// metadata in it. Only the system program can do it.
func (tx *Tx) RegisterProgram(id solana.PublicKey, loader solana.PublicKey, meta []byte) error {
	if !tx.program.Equals(solana.SystemProgramID) {
		return ErrPrivileged
	}

	acc, err := tx.account(id)
	if err != nil {
		return err
	}
	if acc.Executable {
		return fmt.Errorf("%w: program %s", ErrAccountInUse, id)
	}
	if len(acc.Data) != 0 || !acc.Owner.Equals(solana.SystemProgramID) {
		return fmt.Errorf("%w: %s", ErrAccountInUse, id)
	}

	acc.Executable = true
	acc.Owner = loader
	acc.Data = bytesClone(meta)

	return tx.putAccount(id, acc)
}

// UpgradeProgram replaces metadata of the deployed program. Only the system
// program can do it.
func (tx *Tx) UpgradeProgram(id solana.PublicKey, meta []byte) error {
	if !tx.program.Equals(solana.SystemProgramID) {
		return ErrPrivileged
	}

	acc, err := tx.account(id)
	if err != nil {
		return err
	}
	if !acc.Executable {
		return fmt.Errorf("%w: %s", ErrProgramNotDeployed, id)
	}

	acc.Data = bytesClone(meta)

	return tx.putAccount(id, acc)
}

// CreateAccount allocates space bytes of data for the derived address,
// assigns it to owner and funds it up to the rent-exempt minimum from payer.
// payer must be a signer of the execution. Authority over the new address is
// proven by its signer seeds.
func (tx *Tx) CreateAccount(payer solana.PublicKey, x derive.Derived, space uint64, owner solana.PublicKey) error {
	if !tx.deriver.Reproduce(x) {
		return fmt.Errorf("%w: %s", ErrSignerSeedsMismatch, x.Address)
	}
	if space > MaxDataLength {
		return fmt.Errorf("%w: %d", ErrSpaceTooLarge, space)
	}

	acc, err := tx.account(x.Address)
	if err != nil {
		return err
	}
	if len(acc.Data) != 0 || acc.Executable || !acc.Owner.Equals(solana.SystemProgramID) {
		return fmt.Errorf("%w: %s", ErrAccountInUse, x.Address)
	}

	r, err := tx.Rent()
	if err != nil {
		return err
	}

	if required := r.MinimumBalance(space); acc.Lamports < required {
		if err = tx.Transfer(payer, x.Address, required-acc.Lamports); err != nil {
			return fmt.Errorf("fund new account: %w", err)
		}

		if acc, err = tx.account(x.Address); err != nil {
			return err
		}
	}

	acc.Data = make([]byte, space)
	acc.Owner = owner

	return tx.putAccount(x.Address, acc)
}

// WriteData overwrites the account data. The account must be owned by the
// executing program and data must have the allocated size.
func (tx *Tx) WriteData(addr solana.PublicKey, data []byte) error {
	acc, err := tx.account(addr)
	if err != nil {
		return err
	}
	if !acc.Owner.Equals(tx.program) {
		return fmt.Errorf("%w: %s", ErrNotOwner, addr)
	}
	if len(data) != len(acc.Data) {
		return fmt.Errorf("%w: allocated %d, got %d", ErrDataSizeMismatch, len(acc.Data), len(data))
	}

	acc.Data = bytesClone(data)

	return tx.putAccount(addr, acc)
}

// Destroy reclaims the storage: the account data is erased and its whole
// balance is moved to the recipient. Only the owning program can destroy
// the account. Destroy returns the reclaimed amount.
func (tx *Tx) Destroy(addr solana.PublicKey, recipient solana.PublicKey) (uint64, error) {
	acc, err := tx.account(addr)
	if err != nil {
		return 0, err
	}
	if !acc.Owner.Equals(tx.program) || acc.Executable {
		return 0, fmt.Errorf("%w: %s", ErrNotOwner, addr)
	}

	reclaimed := acc.Lamports

	if err = tx.putAccount(addr, Account{}); err != nil {
		return 0, err
	}

	if err = tx.credit(recipient, reclaimed); err != nil {
		return 0, err
	}

	return reclaimed, nil
}

func (tx *Tx) credit(addr solana.PublicKey, amount uint64) error {
	acc, err := tx.account(addr)
	if err != nil {
		return err
	}
	if acc.Lamports > math.MaxUint64-amount {
		return fmt.Errorf("%w: credit %d to %s", ErrArithmeticOverflow, amount, addr)
	}

	acc.Lamports += amount

	return tx.putAccount(addr, acc)
}

func (tx *Tx) account(addr solana.PublicKey) (Account, error) {
	var acc Account

	err := common.GetSerialized(tx.cache, accountKey(addr), &acc)
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return Account{}, fmt.Errorf("read account %s: %w", addr, err)
	}

	if _, ok := tx.pre[addr]; !ok {
		tx.pre[addr] = preState{lamports: acc.Lamports, dataLen: len(acc.Data)}
	}

	return acc, nil
}

func (tx *Tx) putAccount(addr solana.PublicKey, acc Account) error {
	if acc.IsEmpty() {
		tx.cache.Delete(accountKey(addr))
		return nil
	}

	if err := common.SetSerialized(tx.cache, accountKey(addr), &acc); err != nil {
		return fmt.Errorf("write account %s: %w", addr, err)
	}

	return nil
}

// checkRentStates forbids moving any account touched by the execution from
// rent-exempt (or absent) state to rent-paying one. Accounts that were
// already rent-paying may stay so as long as they neither grow nor receive
// value.
func (tx *Tx) checkRentStates() error {
	if len(tx.pre) == 0 {
		return nil
	}

	r, err := tx.Rent()
	if err != nil {
		if errors.Is(err, ErrSysvarNotFound) {
			return nil
		}
		return err
	}

	for addr, pre := range tx.pre {
		post, err := tx.account(addr)
		if err != nil {
			return err
		}

		if post.Executable || post.Owner.Equals(SysvarRentID) || !isRentPaying(r, post.Lamports, len(post.Data)) {
			continue
		}

		if isRentPaying(r, pre.lamports, pre.dataLen) && pre.dataLen == len(post.Data) && post.Lamports <= pre.lamports {
			continue
		}

		return fmt.Errorf("%w: account %s holds %d, needs %d", ErrInsufficientFundsForRent,
			addr, post.Lamports, r.MinimumBalance(uint64(len(post.Data))))
	}

	return nil
}

func isRentPaying(r rent.Rent, lamports uint64, dataLen int) bool {
	return lamports > 0 && !r.IsExempt(lamports, uint64(dataLen))
}
