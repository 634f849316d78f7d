package vault_test

import (
	"context"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/nspcc-dev/vault-contract/common"
	"github.com/nspcc-dev/vault-contract/derive"
	"github.com/nspcc-dev/vault-contract/ledger"
	"github.com/nspcc-dev/vault-contract/vault"
	"github.com/stretchr/testify/require"
)

// snapshot returns balances of all ledger accounts.
func (e *testEnv) snapshot() map[solana.PublicKey]ledger.Account {
	res := make(map[solana.PublicKey]ledger.Account)
	require.NoError(e.t, e.ledger.IterateAccounts(func(addr solana.PublicKey, acc ledger.Account) bool {
		res[addr] = acc
		return true
	}))
	return res
}

// requireNoEffect checks that f fails with the expected error leaving the
// ledger untouched and emitting no events.
func (e *testEnv) requireNoEffect(expected error, f func() error) {
	before := e.snapshot()
	events := e.eventCount()

	require.ErrorIs(e.t, f(), expected)

	require.Equal(e.t, before, e.snapshot())
	require.Equal(e.t, events, e.eventCount())
}

func TestDeriveAddresses(t *testing.T) {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	owner := key.PublicKey()

	programKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	d := derive.New(programKey.PublicKey())

	a1, err := vault.DeriveAddresses(d, owner)
	require.NoError(t, err)
	a2, err := vault.DeriveAddresses(d, owner)
	require.NoError(t, err)
	require.Equal(t, a1, a2)

	st, err := d.Derive("state", owner.Bytes())
	require.NoError(t, err)
	require.Equal(t, st, a1.State)

	v, err := d.Derive("vault", st.Address.Bytes())
	require.NoError(t, err)
	require.Equal(t, v, a1.Vault)

	require.Equal(t, vault.Accounts{
		User:       owner,
		VaultState: st.Address,
		Vault:      v.Address,
	}, a1.Accounts(owner))

	other, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	a3, err := vault.DeriveAddresses(d, other.PublicKey())
	require.NoError(t, err)
	require.NotEqual(t, a1.State.Address, a3.State.Address)
	require.NotEqual(t, a1.Vault.Address, a3.Vault.Address)
}

func TestInitialize(t *testing.T) {
	e := newTestEnv(t)
	r := e.rent()
	o := e.newOwner()
	acc := o.accounts()

	require.NoError(t, e.initialize(o))

	require.Equal(t, r.MinimumBalance(0), e.balance(acc.Vault))
	require.Equal(t, r.MinimumBalance(vault.StateSize), e.balance(acc.VaultState))
	require.Equal(t, initialFunds-r.MinimumBalance(0)-r.MinimumBalance(vault.StateSize), e.balance(acc.User))
	require.Equal(t, []vault.Event{&vault.InitializeEvent{User: acc.User}}, e.lastEvents(1))

	stAcc, ok, err := e.ledger.Account(acc.VaultState)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, e.program, stAcc.Owner)

	var st vault.State
	require.NoError(t, common.Deserialize(stAcc.Data, &st))
	require.Equal(t, vault.State{VaultBump: o.addrs.Vault.Bump, StateBump: o.addrs.State.Bump}, st)

	t.Run("twice", func(t *testing.T) {
		e.requireNoEffect(vault.ErrAlreadyInitialized, func() error {
			return e.initialize(o)
		})
	})

	t.Run("bad signature", func(t *testing.T) {
		o := e.newOwner()
		intruder := e.newOwner()

		e.requireNoEffect(common.ErrOwnerWitnessFailed, func() error {
			return e.initializeWith(intruder, o.accounts())
		})
	})

	t.Run("wrong vault", func(t *testing.T) {
		o := e.newOwner()
		other := e.newOwner()

		acc := o.accounts()
		acc.Vault = other.addrs.Vault.Address

		e.requireNoEffect(vault.ErrDerivationMismatch, func() error {
			return e.initializeWith(o, acc)
		})
	})

	t.Run("wrong state", func(t *testing.T) {
		o := e.newOwner()
		other := e.newOwner()

		acc := o.accounts()
		acc.VaultState = other.addrs.State.Address

		e.requireNoEffect(vault.ErrDerivationMismatch, func() error {
			return e.initializeWith(o, acc)
		})
	})

	t.Run("initialized foreign vault", func(t *testing.T) {
		intruder := e.newOwner()

		// o is initialized above
		foreign := acc
		foreign.User = intruder.key.PublicKey()

		e.requireNoEffect(vault.ErrDerivationMismatch, func() error {
			return e.initializeWith(intruder, foreign)
		})

		foreign = intruder.accounts()
		foreign.VaultState = acc.VaultState

		e.requireNoEffect(vault.ErrDerivationMismatch, func() error {
			return e.initializeWith(intruder, foreign)
		})
	})

	t.Run("insufficient funds", func(t *testing.T) {
		key, err := solana.NewRandomPrivateKey()
		require.NoError(t, err)
		require.NoError(t, e.ledger.Airdrop(context.Background(), key.PublicKey(), 1_000_000))

		addrs, err := vault.DeriveAddresses(derive.New(e.program), key.PublicKey())
		require.NoError(t, err)
		poor := testOwner{key: key, addrs: addrs}

		e.requireNoEffect(ledger.ErrInsufficientFunds, func() error {
			return e.initialize(poor)
		})
		require.False(t, e.exists(addrs.State.Address))
	})
}

func TestDeposit(t *testing.T) {
	e := newTestEnv(t)
	r := e.rent()
	o := e.newOwner()
	acc := o.accounts()

	t.Run("not initialized", func(t *testing.T) {
		e.requireNoEffect(vault.ErrNotInitialized, func() error {
			return e.deposit(o, 1)
		})
	})

	require.NoError(t, e.initialize(o))

	amounts := []uint64{1, 1000, lamportsPerSOL, 0, 12345}
	expected := r.MinimumBalance(0)

	for _, a := range amounts {
		before := e.balance(acc.User)

		require.NoError(t, e.deposit(o, a))
		expected += a

		require.Equal(t, expected, e.balance(acc.Vault))
		require.Equal(t, before-a, e.balance(acc.User))
		require.Equal(t, []vault.Event{&vault.DepositEvent{User: acc.User, Amount: a}}, e.lastEvents(1))
	}

	t.Run("insufficient funds", func(t *testing.T) {
		e.requireNoEffect(ledger.ErrInsufficientFunds, func() error {
			return e.deposit(o, e.balance(acc.User)+1)
		})
	})

	t.Run("owner below rent", func(t *testing.T) {
		e.requireNoEffect(ledger.ErrInsufficientFundsForRent, func() error {
			return e.deposit(o, e.balance(acc.User)-1)
		})
	})

	t.Run("signature binds amount", func(t *testing.T) {
		e.requireNoEffect(common.ErrOwnerWitnessFailed, func() error {
			return e.service.Deposit(context.Background(), vault.DepositPrm{
				Accounts:  acc,
				Amount:    2,
				Signature: sign(t, o.key, vault.Instruction{Method: vault.MethodDeposit, Amount: 1, Accounts: acc}),
			})
		})
	})

	t.Run("signature binds method", func(t *testing.T) {
		e.requireNoEffect(common.ErrOwnerWitnessFailed, func() error {
			return e.service.Deposit(context.Background(), vault.DepositPrm{
				Accounts:  acc,
				Amount:    1,
				Signature: sign(t, o.key, vault.Instruction{Method: vault.MethodWithdraw, Amount: 1, Accounts: acc}),
			})
		})
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		e.requireNoEffect(context.Canceled, func() error {
			return e.service.Deposit(ctx, vault.DepositPrm{
				Accounts:  acc,
				Amount:    1,
				Signature: sign(t, o.key, vault.Instruction{Method: vault.MethodDeposit, Amount: 1, Accounts: acc}),
			})
		})
	})
}

func TestWithdraw(t *testing.T) {
	e := newTestEnv(t)
	r := e.rent()
	reserve := r.MinimumBalance(0)
	o := e.newOwner()
	acc := o.accounts()

	t.Run("not initialized", func(t *testing.T) {
		e.requireNoEffect(vault.ErrNotInitialized, func() error {
			return e.withdraw(o, 1)
		})
	})

	require.NoError(t, e.initialize(o))

	t.Run("zero amount on reserve-only vault", func(t *testing.T) {
		e.requireNoEffect(vault.ErrInvalidAmount, func() error {
			return e.withdraw(o, 0)
		})
	})

	const deposited = lamportsPerSOL

	require.NoError(t, e.deposit(o, deposited))
	balance := e.balance(acc.Vault)
	require.Equal(t, reserve+deposited, balance)

	for _, tc := range []struct {
		name     string
		amount   uint64
		expected *vault.Error
	}{
		{name: "zero", amount: 0, expected: vault.ErrInvalidAmount},
		{name: "over balance", amount: balance + 1, expected: vault.ErrInsufficientBalance},
		{name: "whole balance", amount: balance, expected: vault.ErrInsufficientBalanceForRent},
		{name: "into reserve", amount: deposited + 1, expected: vault.ErrInsufficientBalanceForRent},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var err error
			e.requireNoEffect(tc.expected, func() error {
				err = e.withdraw(o, tc.amount)
				return err
			})

			code, ok := vault.Code(err)
			require.True(t, ok)
			require.Equal(t, tc.expected.Code(), code)
		})
	}

	ownerBefore := e.balance(acc.User)

	require.NoError(t, e.withdraw(o, deposited))
	require.Equal(t, reserve, e.balance(acc.Vault))
	require.Equal(t, ownerBefore+deposited, e.balance(acc.User))
	require.Equal(t, []vault.Event{&vault.WithdrawEvent{User: acc.User, Amount: deposited}}, e.lastEvents(1))

	t.Run("reserve is kept", func(t *testing.T) {
		e.requireNoEffect(vault.ErrInsufficientBalanceForRent, func() error {
			return e.withdraw(o, 1)
		})
	})
}

func TestWithdrawAndClose(t *testing.T) {
	e := newTestEnv(t)
	r := e.rent()
	o := e.newOwner()
	acc := o.accounts()

	t.Run("not initialized", func(t *testing.T) {
		e.requireNoEffect(vault.ErrNotInitialized, func() error {
			return e.close(o)
		})
	})

	t.Run("recovers reserve", func(t *testing.T) {
		require.NoError(t, e.initialize(o))
		require.NoError(t, e.close(o))

		require.Equal(t, []vault.Event{
			&vault.WithdrawAndCloseEvent{User: acc.User, Amount: r.MinimumBalance(0)},
		}, e.lastEvents(1))

		require.EqualValues(t, initialFunds, e.balance(acc.User))
		require.False(t, e.exists(acc.Vault))
		require.False(t, e.exists(acc.VaultState))
	})

	t.Run("twice", func(t *testing.T) {
		e.requireNoEffect(vault.ErrNotInitialized, func() error {
			return e.close(o)
		})
	})

	t.Run("with deposits", func(t *testing.T) {
		require.NoError(t, e.initialize(o))
		require.NoError(t, e.deposit(o, 3*lamportsPerSOL))
		require.NoError(t, e.withdraw(o, lamportsPerSOL))

		balance := e.balance(acc.Vault)
		require.Equal(t, r.MinimumBalance(0)+2*lamportsPerSOL, balance)

		require.NoError(t, e.close(o))

		require.Equal(t, []vault.Event{
			&vault.WithdrawAndCloseEvent{User: acc.User, Amount: balance},
		}, e.lastEvents(1))

		require.EqualValues(t, initialFunds, e.balance(acc.User))
		require.False(t, e.exists(acc.Vault))
		require.False(t, e.exists(acc.VaultState))
	})

	t.Run("operations after close", func(t *testing.T) {
		e.requireNoEffect(vault.ErrNotInitialized, func() error {
			return e.deposit(o, 1)
		})
		e.requireNoEffect(vault.ErrNotInitialized, func() error {
			return e.withdraw(o, 1)
		})
	})
}

func TestCrossOwner(t *testing.T) {
	e := newTestEnv(t)
	victim := e.newOwner()
	intruder := e.newOwner()

	require.NoError(t, e.initialize(victim))
	require.NoError(t, e.initialize(intruder))
	require.NoError(t, e.deposit(victim, 5*lamportsPerSOL))

	victimAcc := victim.accounts()

	t.Run("foreign user", func(t *testing.T) {
		e.requireNoEffect(common.ErrOwnerWitnessFailed, func() error {
			return e.withdrawWith(intruder, victimAcc, lamportsPerSOL)
		})
		e.requireNoEffect(common.ErrOwnerWitnessFailed, func() error {
			return e.closeWith(intruder, victimAcc)
		})
	})

	t.Run("foreign state and vault", func(t *testing.T) {
		acc := victimAcc
		acc.User = intruder.key.PublicKey()

		e.requireNoEffect(vault.ErrDerivationMismatch, func() error {
			return e.withdrawWith(intruder, acc, lamportsPerSOL)
		})
		e.requireNoEffect(vault.ErrDerivationMismatch, func() error {
			return e.closeWith(intruder, acc)
		})
		e.requireNoEffect(vault.ErrDerivationMismatch, func() error {
			return e.depositWith(intruder, acc, lamportsPerSOL)
		})
	})

	t.Run("foreign vault", func(t *testing.T) {
		acc := intruder.accounts()
		acc.Vault = victimAcc.Vault

		e.requireNoEffect(vault.ErrDerivationMismatch, func() error {
			return e.withdrawWith(intruder, acc, lamportsPerSOL)
		})
		e.requireNoEffect(vault.ErrDerivationMismatch, func() error {
			return e.closeWith(intruder, acc)
		})
	})

	t.Run("foreign state", func(t *testing.T) {
		acc := intruder.accounts()
		acc.VaultState = victimAcc.VaultState

		e.requireNoEffect(vault.ErrDerivationMismatch, func() error {
			return e.withdrawWith(intruder, acc, lamportsPerSOL)
		})
	})

	t.Run("initialize over existing vault", func(t *testing.T) {
		newcomer := e.newOwner()

		acc := victimAcc
		acc.User = newcomer.key.PublicKey()

		var err error
		e.requireNoEffect(vault.ErrDerivationMismatch, func() error {
			err = e.initializeWith(newcomer, acc)
			return err
		})

		code, ok := vault.Code(err)
		require.True(t, ok)
		require.EqualValues(t, 2006, code)
		require.False(t, e.exists(newcomer.addrs.State.Address))
	})

	require.Equal(t, e.rent().MinimumBalance(0)+5*lamportsPerSOL, e.balance(victimAcc.Vault))
}

func TestConcurrentOwners(t *testing.T) {
	e := newTestEnv(t)
	reserve := e.rent().MinimumBalance(0)

	const (
		owners   = 8
		deposits = 10
		amount   = 1000
	)

	var vaults []testOwner
	for i := 0; i < owners; i++ {
		o := e.newOwner()
		require.NoError(t, e.initialize(o))
		vaults = append(vaults, o)
	}

	var wg sync.WaitGroup
	errs := make(chan error, owners*deposits)

	for _, o := range vaults {
		acc := o.accounts()
		sig := sign(t, o.key, vault.Instruction{Method: vault.MethodDeposit, Amount: amount, Accounts: acc})

		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < deposits; i++ {
				errs <- e.service.Deposit(context.Background(), vault.DepositPrm{
					Accounts:  acc,
					Amount:    amount,
					Signature: sig,
				})
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	for _, o := range vaults {
		require.EqualValues(t, reserve+deposits*amount, e.balance(o.addrs.Vault.Address))
	}
}
