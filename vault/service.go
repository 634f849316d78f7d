package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/nspcc-dev/vault-contract/common"
	"github.com/nspcc-dev/vault-contract/ledger"
	"go.uber.org/zap"
)

// Prm groups parameters of the Service.
type Prm struct {
	// Writes operation results into the log. Optional.
	Logger *zap.Logger

	// Ledger the program runs on. Required.
	Ledger *ledger.Ledger

	// Identity of the deployed program. Required.
	Program solana.PublicKey

	// Receives events of successful operations. Optional, events are logged
	// by default.
	Sink Sink
}

// InitializePrm groups parameters of Service.Initialize.
type InitializePrm struct {
	Accounts  Accounts
	Signature solana.Signature
}

// DepositPrm groups parameters of Service.Deposit.
type DepositPrm struct {
	Accounts  Accounts
	Amount    uint64
	Signature solana.Signature
}

// WithdrawPrm groups parameters of Service.Withdraw.
type WithdrawPrm struct {
	Accounts  Accounts
	Amount    uint64
	Signature solana.Signature
}

// WithdrawAndClosePrm groups parameters of Service.WithdrawAndClose.
type WithdrawAndClosePrm struct {
	Accounts  Accounts
	Signature solana.Signature
}

// Service executes vault operations on the ledger.
//
// Each operation is authorized by the owner's signature of the
// corresponding Instruction. The effects of an operation are applied
// atomically: on any error nothing changes and no event is emitted.
//
// Service must be constructed using NewService.
type Service struct {
	log     *zap.Logger
	ledger  *ledger.Ledger
	program solana.PublicKey
	sink    Sink
}

// NewService returns Service for the program deployed on the ledger.
func NewService(prm Prm) *Service {
	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}
	if prm.Sink == nil {
		prm.Sink = LogSink(prm.Logger)
	}

	return &Service{
		log:     prm.Logger,
		ledger:  prm.Ledger,
		program: prm.Program,
		sink:    prm.Sink,
	}
}

// Program returns identity of the program.
func (s *Service) Program() solana.PublicKey {
	return s.program
}

// Initialize creates the vault of the owner: the state record is allocated
// and the vault account is funded up to its rent-exempt minimum. Both are
// paid by the owner. Claimed addresses must be the canonical ones of the
// owner, otherwise ErrDerivationMismatch is returned. Initialize fails with
// ErrAlreadyInitialized if the state record exists.
func (s *Service) Initialize(ctx context.Context, prm InitializePrm) error {
	acc := prm.Accounts

	err := s.exec(ctx, Instruction{Method: MethodInitialize, Accounts: acc}, prm.Signature, func(tx *ledger.Tx) error {
		addrs, err := canonical(tx.Deriver(), acc)
		if err != nil {
			return err
		}

		if _, err = getState(tx, acc.VaultState); !errors.Is(err, ErrNotInitialized) {
			if err == nil {
				err = fmt.Errorf("%w: %s", ErrAlreadyInitialized, acc.VaultState)
			}
			return err
		}

		r, err := tx.Rent()
		if err != nil {
			return err
		}

		if err = tx.CreateAccount(acc.User, addrs.State, StateSize, tx.Program()); err != nil {
			if errors.Is(err, ledger.ErrAccountInUse) {
				return fmt.Errorf("%w: %w", ErrAlreadyInitialized, err)
			}
			return fmt.Errorf("create state account: %w", err)
		}

		data, err := common.Serialize(&State{
			VaultBump: addrs.Vault.Bump,
			StateBump: addrs.State.Bump,
		})
		if err != nil {
			return err
		}

		if err = tx.WriteData(acc.VaultState, data); err != nil {
			return fmt.Errorf("write state: %w", err)
		}

		vault, _, err := tx.Account(acc.Vault)
		if err != nil {
			return err
		}

		reserve := r.MinimumBalance(uint64(len(vault.Data)))

		if err = tx.Transfer(acc.User, acc.Vault, reserve); err != nil {
			return fmt.Errorf("fund vault reserve: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("vault initialized", zap.Stringer("owner", acc.User), zap.Stringer("vault", acc.Vault))
	s.sink.Emit(&InitializeEvent{User: acc.User})

	return nil
}

// Deposit moves amount from the owner to the vault. Zero amount is allowed.
func (s *Service) Deposit(ctx context.Context, prm DepositPrm) error {
	acc := prm.Accounts

	err := s.exec(ctx, Instruction{Method: MethodDeposit, Amount: prm.Amount, Accounts: acc}, prm.Signature, func(tx *ledger.Tx) error {
		if _, err := s.checkVault(tx, acc); err != nil {
			return err
		}

		if err := CheckDeposit(prm.Amount); err != nil {
			return err
		}

		if err := tx.Transfer(acc.User, acc.Vault, prm.Amount); err != nil {
			return fmt.Errorf("deposit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("deposit done", zap.Stringer("owner", acc.User), zap.Uint64("amount", prm.Amount))
	s.sink.Emit(&DepositEvent{User: acc.User, Amount: prm.Amount})

	return nil
}

// Withdraw moves amount from the vault back to the owner. The vault must
// keep its rent-exempt minimum.
func (s *Service) Withdraw(ctx context.Context, prm WithdrawPrm) error {
	acc := prm.Accounts

	err := s.exec(ctx, Instruction{Method: MethodWithdraw, Amount: prm.Amount, Accounts: acc}, prm.Signature, func(tx *ledger.Tx) error {
		addrs, err := s.checkVault(tx, acc)
		if err != nil {
			return err
		}

		balance, err := tx.Balance(acc.Vault)
		if err != nil {
			return err
		}

		r, err := tx.Rent()
		if err != nil {
			return err
		}

		if err = CheckWithdraw(balance, prm.Amount, r.MinimumBalance(0)); err != nil {
			return err
		}

		if err = tx.TransferAsDerived(addrs.Vault, acc.User, prm.Amount); err != nil {
			return fmt.Errorf("withdraw: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("withdrawal done", zap.Stringer("owner", acc.User), zap.Uint64("amount", prm.Amount))
	s.sink.Emit(&WithdrawEvent{User: acc.User, Amount: prm.Amount})

	return nil
}

// WithdrawAndClose returns the whole vault balance to the owner and removes
// the state record, its reserve goes to the owner too.
func (s *Service) WithdrawAndClose(ctx context.Context, prm WithdrawAndClosePrm) error {
	acc := prm.Accounts

	var amount uint64

	err := s.exec(ctx, Instruction{Method: MethodWithdrawAndClose, Accounts: acc}, prm.Signature, func(tx *ledger.Tx) error {
		addrs, err := s.checkVault(tx, acc)
		if err != nil {
			return err
		}

		if amount, err = tx.Balance(acc.Vault); err != nil {
			return err
		}

		if err = tx.TransferAsDerived(addrs.Vault, acc.User, amount); err != nil {
			return fmt.Errorf("drain vault: %w", err)
		}

		if _, err = tx.Destroy(acc.VaultState, acc.User); err != nil {
			return fmt.Errorf("close state account: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("vault closed", zap.Stringer("owner", acc.User), zap.Uint64("amount", amount))
	s.sink.Emit(&WithdrawAndCloseEvent{User: acc.User, Amount: amount})

	return nil
}

// exec verifies the owner's signature of the instruction and runs f within
// a single ledger execution signed by the owner.
func (s *Service) exec(ctx context.Context, in Instruction, sig solana.Signature, f func(*ledger.Tx) error) error {
	if err := common.CheckOwnerWitness(in.Accounts.User, sig, in.Bytes()); err != nil {
		return fmt.Errorf("%s: %w", in.Method, err)
	}

	err := s.ledger.Execute(ctx, ledger.ExecPrm{
		Program: s.program,
		Signers: []solana.PublicKey{in.Accounts.User},
	}, f)
	if err != nil {
		s.log.Debug("operation failed", zap.String("method", in.Method),
			zap.Stringer("owner", in.Accounts.User), zap.Error(err))
		return fmt.Errorf("%s: %w", in.Method, err)
	}

	return nil
}

// checkVault reads the state record and checks the claimed addresses
// against the stored derivations.
func (s *Service) checkVault(tx *ledger.Tx, acc Accounts) (Addresses, error) {
	st, err := getState(tx, acc.VaultState)
	if err != nil {
		return Addresses{}, err
	}

	return stored(tx.Deriver(), acc, st)
}

// getState returns the state record stored at addr. Absent, foreign or
// malformed records are reported as ErrNotInitialized.
func getState(tx *ledger.Tx, addr solana.PublicKey) (State, error) {
	var st State

	acc, ok, err := tx.Account(addr)
	if err != nil {
		return st, err
	}
	if !ok || !acc.Owner.Equals(tx.Program()) {
		return st, fmt.Errorf("%w: %s", ErrNotInitialized, addr)
	}

	if err = common.Deserialize(acc.Data, &st); err != nil {
		return st, fmt.Errorf("%w: %s: %w", ErrNotInitialized, addr, err)
	}

	return st, nil
}
