package vault_test

import (
	"context"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/vault-contract/deploy"
	"github.com/nspcc-dev/vault-contract/derive"
	"github.com/nspcc-dev/vault-contract/ledger"
	"github.com/nspcc-dev/vault-contract/rent"
	"github.com/nspcc-dev/vault-contract/vault"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	lamportsPerSOL = 1_000_000_000
	initialFunds   = 10 * lamportsPerSOL
)

type testEnv struct {
	t       *testing.T
	ledger  *ledger.Ledger
	service *vault.Service
	program solana.PublicKey

	mtx    sync.Mutex
	events []vault.Event
}

type testOwner struct {
	key   solana.PrivateKey
	addrs vault.Addresses
}

func (o testOwner) accounts() vault.Accounts {
	return o.addrs.Accounts(o.key.PublicKey())
}

func newTestEnv(t *testing.T) *testEnv {
	l := ledger.New(ledger.Prm{
		Logger: zaptest.NewLogger(t),
		Store:  storage.NewMemoryStore(),
	})

	programKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	require.NoError(t, deploy.Deploy(context.Background(), deploy.Prm{
		Logger:    zaptest.NewLogger(t),
		Ledger:    l,
		ProgramID: programKey.PublicKey(),
	}))

	e := &testEnv{
		t:       t,
		ledger:  l,
		program: programKey.PublicKey(),
	}

	e.service = vault.NewService(vault.Prm{
		Logger:  zaptest.NewLogger(t),
		Ledger:  l,
		Program: e.program,
		Sink: vault.SinkFunc(func(ev vault.Event) {
			e.mtx.Lock()
			e.events = append(e.events, ev)
			e.mtx.Unlock()
		}),
	})

	return e
}

func (e *testEnv) newOwner() testOwner {
	key, err := solana.NewRandomPrivateKey()
	require.NoError(e.t, err)

	require.NoError(e.t, e.ledger.Airdrop(context.Background(), key.PublicKey(), initialFunds))

	addrs, err := vault.DeriveAddresses(derive.New(e.program), key.PublicKey())
	require.NoError(e.t, err)

	return testOwner{key: key, addrs: addrs}
}

func (e *testEnv) rent() rent.Rent {
	r, err := e.ledger.Rent()
	require.NoError(e.t, err)
	return r
}

func (e *testEnv) balance(addr solana.PublicKey) uint64 {
	b, err := e.ledger.Balance(addr)
	require.NoError(e.t, err)
	return b
}

func (e *testEnv) exists(addr solana.PublicKey) bool {
	_, ok, err := e.ledger.Account(addr)
	require.NoError(e.t, err)
	return ok
}

func (e *testEnv) lastEvents(n int) []vault.Event {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	require.GreaterOrEqual(e.t, len(e.events), n)
	return e.events[len(e.events)-n:]
}

func (e *testEnv) eventCount() int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return len(e.events)
}

func sign(t *testing.T, key solana.PrivateKey, in vault.Instruction) solana.Signature {
	sig, err := in.Sign(key)
	require.NoError(t, err)
	return sig
}

func (e *testEnv) initializeWith(o testOwner, acc vault.Accounts) error {
	return e.service.Initialize(context.Background(), vault.InitializePrm{
		Accounts:  acc,
		Signature: sign(e.t, o.key, vault.Instruction{Method: vault.MethodInitialize, Accounts: acc}),
	})
}

func (e *testEnv) initialize(o testOwner) error {
	return e.initializeWith(o, o.accounts())
}

func (e *testEnv) depositWith(o testOwner, acc vault.Accounts, amount uint64) error {
	return e.service.Deposit(context.Background(), vault.DepositPrm{
		Accounts:  acc,
		Amount:    amount,
		Signature: sign(e.t, o.key, vault.Instruction{Method: vault.MethodDeposit, Amount: amount, Accounts: acc}),
	})
}

func (e *testEnv) deposit(o testOwner, amount uint64) error {
	return e.depositWith(o, o.accounts(), amount)
}

func (e *testEnv) withdrawWith(o testOwner, acc vault.Accounts, amount uint64) error {
	return e.service.Withdraw(context.Background(), vault.WithdrawPrm{
		Accounts:  acc,
		Amount:    amount,
		Signature: sign(e.t, o.key, vault.Instruction{Method: vault.MethodWithdraw, Amount: amount, Accounts: acc}),
	})
}

func (e *testEnv) withdraw(o testOwner, amount uint64) error {
	return e.withdrawWith(o, o.accounts(), amount)
}

func (e *testEnv) closeWith(o testOwner, acc vault.Accounts) error {
	return e.service.WithdrawAndClose(context.Background(), vault.WithdrawAndClosePrm{
		Accounts:  acc,
		Signature: sign(e.t, o.key, vault.Instruction{Method: vault.MethodWithdrawAndClose, Accounts: acc}),
	})
}

func (e *testEnv) close(o testOwner) error {
	return e.closeWith(o, o.accounts())
}
