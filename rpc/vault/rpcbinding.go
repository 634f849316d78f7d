// Package vault contains client wrappers for the vault program.
package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/nspcc-dev/vault-contract/common"
	"github.com/nspcc-dev/vault-contract/derive"
	"github.com/nspcc-dev/vault-contract/ledger"
	"github.com/nspcc-dev/vault-contract/rent"
	"github.com/nspcc-dev/vault-contract/vault"
)

// Invoker is used by ContractReader to read the ledger state.
type Invoker interface {
	Account(addr solana.PublicKey) (ledger.Account, bool, error)
	Balance(addr solana.PublicKey) (uint64, error)
	Rent() (rent.Rent, error)
}

// Operator executes program operations, it is implemented by
// *vault.Service.
type Operator interface {
	Program() solana.PublicKey
	Initialize(context.Context, vault.InitializePrm) error
	Deposit(context.Context, vault.DepositPrm) error
	Withdraw(context.Context, vault.WithdrawPrm) error
	WithdrawAndClose(context.Context, vault.WithdrawAndClosePrm) error
}

// ContractReader implements safe read-only methods of the program.
type ContractReader struct {
	invoker Invoker
	deriver *derive.Deriver
}

// Contract implements all program methods on behalf of a single owner.
type Contract struct {
	ContractReader
	op  Operator
	key solana.PrivateKey
}

// NewReader creates an instance of ContractReader for the given program.
func NewReader(invoker Invoker, program solana.PublicKey) *ContractReader {
	return &ContractReader{invoker: invoker, deriver: derive.New(program)}
}

// New creates an instance of Contract signing operations with the owner's
// key.
func New(invoker Invoker, op Operator, key solana.PrivateKey) *Contract {
	return &Contract{
		ContractReader: *NewReader(invoker, op.Program()),
		op:             op,
		key:            key,
	}
}

// Addresses returns derived addresses of the owner.
func (c *ContractReader) Addresses(owner solana.PublicKey) (vault.Addresses, error) {
	return vault.DeriveAddresses(c.deriver, owner)
}

// State returns the state record of the owner's vault. The second value is
// false if the vault is not initialized.
func (c *ContractReader) State(owner solana.PublicKey) (vault.State, bool, error) {
	var st vault.State

	addrs, err := c.Addresses(owner)
	if err != nil {
		return st, false, err
	}

	acc, ok, err := c.invoker.Account(addrs.State.Address)
	if err != nil {
		return st, false, fmt.Errorf("read state account: %w", err)
	}
	if !ok || !acc.Owner.Equals(c.deriver.Program()) {
		return st, false, nil
	}

	if err = common.Deserialize(acc.Data, &st); err != nil {
		if errors.Is(err, vault.ErrAccountDiscriminatorMismatch) {
			return st, false, nil
		}
		return st, false, fmt.Errorf("decode state: %w", err)
	}

	return st, true, nil
}

// Balance returns the whole balance of the owner's vault including the
// reserve.
func (c *ContractReader) Balance(owner solana.PublicKey) (uint64, error) {
	addrs, err := c.Addresses(owner)
	if err != nil {
		return 0, err
	}
	return c.invoker.Balance(addrs.Vault.Address)
}

// Withdrawable returns the maximum amount Withdraw accepts now.
func (c *ContractReader) Withdrawable(owner solana.PublicKey) (uint64, error) {
	balance, err := c.Balance(owner)
	if err != nil {
		return 0, err
	}

	r, err := c.invoker.Rent()
	if err != nil {
		return 0, fmt.Errorf("read rent model: %w", err)
	}

	if reserve := r.MinimumBalance(0); balance > reserve {
		return balance - reserve, nil
	}
	return 0, nil
}

// Owner returns the owner address operations are signed for.
func (c *Contract) Owner() solana.PublicKey {
	return c.key.PublicKey()
}

// Initialize creates the owner's vault.
func (c *Contract) Initialize(ctx context.Context) error {
	acc, sig, err := c.sign(vault.MethodInitialize, 0)
	if err != nil {
		return err
	}
	return c.op.Initialize(ctx, vault.InitializePrm{Accounts: acc, Signature: sig})
}

// Deposit moves amount from the owner to the vault.
func (c *Contract) Deposit(ctx context.Context, amount uint64) error {
	acc, sig, err := c.sign(vault.MethodDeposit, amount)
	if err != nil {
		return err
	}
	return c.op.Deposit(ctx, vault.DepositPrm{Accounts: acc, Amount: amount, Signature: sig})
}

// Withdraw moves amount from the vault to the owner.
func (c *Contract) Withdraw(ctx context.Context, amount uint64) error {
	acc, sig, err := c.sign(vault.MethodWithdraw, amount)
	if err != nil {
		return err
	}
	return c.op.Withdraw(ctx, vault.WithdrawPrm{Accounts: acc, Amount: amount, Signature: sig})
}

// WithdrawAndClose returns everything to the owner and closes the vault.
func (c *Contract) WithdrawAndClose(ctx context.Context) error {
	acc, sig, err := c.sign(vault.MethodWithdrawAndClose, 0)
	if err != nil {
		return err
	}
	return c.op.WithdrawAndClose(ctx, vault.WithdrawAndClosePrm{Accounts: acc, Signature: sig})
}

func (c *Contract) sign(method string, amount uint64) (vault.Accounts, solana.Signature, error) {
	owner := c.Owner()

	addrs, err := c.Addresses(owner)
	if err != nil {
		return vault.Accounts{}, solana.Signature{}, err
	}

	acc := addrs.Accounts(owner)

	sig, err := vault.Instruction{Method: method, Amount: amount, Accounts: acc}.Sign(c.key)
	if err != nil {
		return vault.Accounts{}, solana.Signature{}, fmt.Errorf("sign %s: %w", method, err)
	}

	return acc, sig, nil
}
