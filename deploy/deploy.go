package deploy

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/nspcc-dev/vault-contract/common"
	"github.com/nspcc-dev/vault-contract/ledger"
	"github.com/nspcc-dev/vault-contract/rent"
	"go.uber.org/zap"
)

// BPFLoaderID is the default owner of program accounts.
var BPFLoaderID = common.MustDecodeAddress("BPFLoaderUpgradeab1e11111111111111111111111")

// Prm groups all parameters of the program deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Ledger to deploy the program to.
	Ledger *ledger.Ledger

	// Identity of the program.
	ProgramID solana.PublicKey

	// Rent model set if the ledger has none yet. Zero value means
	// rent.Default.
	Rent rent.Rent

	// Owner of the program account. Defaults to BPFLoaderID.
	Loader solana.PublicKey
}

// Deploy prepares the ledger for the program and registers it. The
// procedure is idempotent: already performed steps are skipped, so Deploy
// may be called on each start.
//
// Deploy sets the rent model if it is absent and marks the program account
// executable. The program version is kept in the program account, an older
// deployed version is upgraded in place.
func Deploy(ctx context.Context, prm Prm) error {
	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}
	if prm.Rent == (rent.Rent{}) {
		prm.Rent = rent.Default()
	}
	if prm.Loader.IsZero() {
		prm.Loader = BPFLoaderID
	}
	if prm.ProgramID.IsZero() {
		return errors.New("missing program ID")
	}

	if err := prm.Rent.Validate(); err != nil {
		return err
	}

	_, err := prm.Ledger.Rent()
	switch {
	case err == nil:
		prm.Logger.Info("rent model is already set, skip")
	case errors.Is(err, ledger.ErrSysvarNotFound):
		prm.Logger.Info("rent model is missing, setting...",
			zap.Uint64("lamports per byte-year", prm.Rent.LamportsPerByteYear),
			zap.Float64("exemption threshold", prm.Rent.ExemptionThreshold))

		err = prm.Ledger.Execute(ctx, ledger.ExecPrm{Program: solana.SystemProgramID}, func(tx *ledger.Tx) error {
			return tx.SetRent(prm.Rent)
		})
		if err != nil {
			return fmt.Errorf("set rent model: %w", err)
		}
	default:
		return fmt.Errorf("read rent model: %w", err)
	}

	acc, _, err := prm.Ledger.Account(prm.ProgramID)
	if err != nil {
		return fmt.Errorf("read program account: %w", err)
	}

	if acc.Executable {
		return update(ctx, prm, acc.Data)
	}

	prm.Logger.Info("program is missing, deploying...", zap.Stringer("program", prm.ProgramID))

	err = prm.Ledger.Execute(ctx, ledger.ExecPrm{Program: solana.SystemProgramID}, func(tx *ledger.Tx) error {
		return tx.RegisterProgram(prm.ProgramID, prm.Loader, encodeVersion(common.Version))
	})
	if err != nil {
		return fmt.Errorf("register program %s: %w", prm.ProgramID, err)
	}

	prm.Logger.Info("program successfully deployed", zap.Stringer("program", prm.ProgramID))

	return nil
}

// update upgrades deployed program to the current version if needed.
func update(ctx context.Context, prm Prm, meta []byte) error {
	from, err := decodeVersion(meta)
	if err != nil {
		return fmt.Errorf("read deployed program version: %w", err)
	}

	if from == common.Version {
		prm.Logger.Info("program is already deployed and up to date, skip",
			zap.Stringer("program", prm.ProgramID), zap.Int("version", from))
		return nil
	}

	if from > common.Version {
		return fmt.Errorf("deployed program %s is newer: %d > %d", prm.ProgramID, from, common.Version)
	}

	if err = common.CheckVersion(from); err != nil {
		return fmt.Errorf("update program %s: %w", prm.ProgramID, err)
	}

	prm.Logger.Info("program is outdated, updating...", zap.Stringer("program", prm.ProgramID),
		zap.Int("from", from), zap.Int("to", common.Version))

	err = prm.Ledger.Execute(ctx, ledger.ExecPrm{Program: solana.SystemProgramID}, func(tx *ledger.Tx) error {
		return tx.UpgradeProgram(prm.ProgramID, encodeVersion(common.Version))
	})
	if err != nil {
		return fmt.Errorf("upgrade program %s: %w", prm.ProgramID, err)
	}

	prm.Logger.Info("program successfully updated", zap.Stringer("program", prm.ProgramID))

	return nil
}

// program metadata is the little-endian uint32 version.
func encodeVersion(v int) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(v))
}

func decodeVersion(meta []byte) (int, error) {
	if len(meta) != 4 {
		return 0, fmt.Errorf("invalid metadata length %d", len(meta))
	}
	return int(binary.LittleEndian.Uint32(meta)), nil
}
