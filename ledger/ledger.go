package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/vault-contract/common"
	"github.com/nspcc-dev/vault-contract/derive"
	"github.com/nspcc-dev/vault-contract/rent"
	"go.uber.org/zap"
)

const (
	prefixAccount = 0x01
	keySlot       = 0x02
)

// Prm groups parameters of the Ledger.
type Prm struct {
	// Writes execution results into the log. Optional.
	Logger *zap.Logger

	// Persistent storage of the ledger state. Required.
	Store storage.Store
}

// Ledger is an account ledger with atomic serialized executions.
//
// Ledger must be constructed using New.
type Ledger struct {
	log   *zap.Logger
	store storage.Store

	mtx sync.Mutex
}

// ExecPrm groups parameters of a single execution.
type ExecPrm struct {
	// Program the execution runs on behalf of. Derived addresses are checked
	// against it, and it owns accounts it creates.
	Program solana.PublicKey

	// Accounts whose signatures were verified by the caller.
	Signers []solana.PublicKey
}

// New returns Ledger working on top of the given store.
func New(prm Prm) *Ledger {
	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}

	return &Ledger{
		log:   prm.Logger,
		store: prm.Store,
	}
}

// Execute runs f within a new execution. If f returns nil and the resulting
// state is valid, all changes made through the Tx are persisted at once.
// Otherwise nothing is persisted and the error is returned.
//
// Executions are serialized. Execute refuses to start if ctx is already done.
func (l *Ledger) Execute(ctx context.Context, prm ExecPrm, f func(*Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("execution not admitted: %w", err)
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	tx := l.newTx(prm)
	log := l.log.With(zap.Stringer("tx", tx.id), zap.Stringer("program", prm.Program))

	if !prm.Program.Equals(solana.SystemProgramID) {
		acc, err := tx.account(prm.Program)
		if err != nil {
			return err
		}
		if !acc.Executable {
			return fmt.Errorf("%w: %s", ErrProgramNotDeployed, prm.Program)
		}
	}

	err := f(tx)
	if err == nil {
		err = tx.checkRentStates()
	}
	if err != nil {
		log.Debug("execution aborted", zap.Error(err))
		return err
	}

	slot, err := getSlot(tx.cache)
	if err != nil {
		return err
	}
	slot++
	putSlot(tx.cache, slot)

	if _, err = tx.cache.Persist(); err != nil {
		return fmt.Errorf("persist execution: %w", err)
	}

	log.Debug("execution committed", zap.Uint64("slot", slot))

	return nil
}

// Airdrop credits the account with the given amount out of thin air. It is
// a faucet for development networks and tests.
func (l *Ledger) Airdrop(ctx context.Context, to solana.PublicKey, amount uint64) error {
	err := l.Execute(ctx, ExecPrm{Program: solana.SystemProgramID}, func(tx *Tx) error {
		return tx.credit(to, amount)
	})
	if err != nil {
		return fmt.Errorf("airdrop %d to %s: %w", amount, to, err)
	}

	l.log.Info("airdrop done", zap.Stringer("to", to), zap.Uint64("amount", amount))

	return nil
}

// Account returns the current state of the account. The second value is
// false for absent accounts.
func (l *Ledger) Account(addr solana.PublicKey) (Account, bool, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	acc, err := l.newTx(ExecPrm{}).account(addr)
	if err != nil {
		return Account{}, false, err
	}
	return acc, !acc.IsEmpty(), nil
}

// Balance returns the current balance of the account.
func (l *Ledger) Balance(addr solana.PublicKey) (uint64, error) {
	acc, _, err := l.Account(addr)
	return acc.Lamports, err
}

// Rent returns the current rent model.
func (l *Ledger) Rent() (rent.Rent, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.newTx(ExecPrm{}).Rent()
}

// Slot returns the number of committed executions.
func (l *Ledger) Slot() (uint64, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return getSlot(l.store)
}

// IterateAccounts passes all existing accounts into f until it returns false.
func (l *Ledger) IterateAccounts(f func(solana.PublicKey, Account) bool) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	var err error

	l.store.Seek(storage.SeekRange{Prefix: []byte{prefixAccount}}, func(k, v []byte) bool {
		if len(k) != 1+solana.PublicKeyLength {
			return true
		}

		var acc Account
		if err = common.Deserialize(v, &acc); err != nil {
			err = fmt.Errorf("decode account %s: %w", solana.PublicKeyFromBytes(k[1:]), err)
			return false
		}

		return f(solana.PublicKeyFromBytes(k[1:]), acc)
	})

	return err
}

// IterateStorage passes all raw storage items into f until it returns an
// error. Keys and values are copied.
func (l *Ledger) IterateStorage(f func(key, value []byte) error) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	var err error

	// stores index items by the first key byte, so each prefix is sought
	// separately
	for _, prefix := range []byte{prefixAccount, keySlot} {
		l.store.Seek(storage.SeekRange{Prefix: []byte{prefix}}, func(k, v []byte) bool {
			err = f(bytesClone(k), bytesClone(v))
			return err == nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	return l.store.Close()
}

func (l *Ledger) newTx(prm ExecPrm) *Tx {
	signers := make(map[solana.PublicKey]struct{}, len(prm.Signers))
	for i := range prm.Signers {
		signers[prm.Signers[i]] = struct{}{}
	}

	return &Tx{
		id:      uuid.New(),
		program: prm.Program,
		deriver: derive.New(prm.Program),
		signers: signers,
		cache:   storage.NewMemCachedStore(l.store),
		pre:     make(map[solana.PublicKey]preState),
	}
}

func accountKey(addr solana.PublicKey) []byte {
	return append([]byte{prefixAccount}, addr[:]...)
}

func getSlot(st common.Getter) (uint64, error) {
	data, err := st.Get([]byte{keySlot})
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("read slot: %w", err)
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid slot length %d", len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}

func putSlot(st common.Putter, slot uint64) {
	st.Put([]byte{keySlot}, binary.LittleEndian.AppendUint64(nil, slot))
}

func bytesClone(b []byte) []byte {
	return append([]byte(nil), b...)
}
