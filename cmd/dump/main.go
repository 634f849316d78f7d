package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/nspcc-dev/vault-contract/common"
	"github.com/nspcc-dev/vault-contract/config"
	"github.com/nspcc-dev/vault-contract/dump"
	"github.com/nspcc-dev/vault-contract/ledger"
	"github.com/nspcc-dev/vault-contract/vault"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	chainLabel := flag.String("label", "", "Label of the ledger environment (e.g. 'devnet')")
	rootDir := flag.String("dir", "testdata", "Directory to put the dump into")

	flag.Parse()

	switch {
	case *configPath == "":
		log.Fatal("missing configuration file")
	case *chainLabel == "":
		log.Fatal("missing ledger label")
	}

	err := os.MkdirAll(*rootDir, 0700)
	if err != nil {
		log.Fatal(fmt.Errorf("create root dir: %w", err))
	}

	err = _dump(*configPath, *rootDir, *chainLabel)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Ledger state is successfully dumped to '%s/'\n", *rootDir)
}

func _dump(configPath, rootDir, label string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	defer func() { _ = logger.Sync() }()

	program, err := cfg.Program()
	if err != nil {
		return err
	}

	st, err := cfg.NewStore()
	if err != nil {
		return err
	}

	l := ledger.New(ledger.Prm{
		Logger: logger,
		Store:  st,
	})

	defer func() { _ = l.Close() }()

	id, err := dump.Ledger(l, rootDir, label)
	if err != nil {
		return err
	}

	logger.Info("ledger dumped", zap.Stringer("id", id))

	return reportVaults(logger, l, program)
}

// reportVaults logs the number of vaults of the program found in the ledger.
func reportVaults(logger *zap.Logger, l *ledger.Ledger, program solana.PublicKey) error {
	var n int

	err := l.IterateAccounts(func(addr solana.PublicKey, acc ledger.Account) bool {
		if !acc.Owner.Equals(program) {
			return true
		}

		var st vault.State
		if common.Deserialize(acc.Data, &st) != nil {
			return true
		}

		n++
		logger.Debug("vault state found", zap.Stringer("address", addr),
			zap.Uint8("vault bump", st.VaultBump), zap.Uint8("state bump", st.StateBump))

		return true
	})
	if err != nil {
		return fmt.Errorf("iterate accounts: %w", err)
	}

	logger.Info("vaults in the dumped state", zap.Stringer("program", program), zap.Int("count", n))

	return nil
}
