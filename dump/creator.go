package dump

import (
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/nspcc-dev/vault-contract/ledger"
)

// Creator dumps the ledger state. Output file format:
//
//	'<label>-<slot>-accounts.json': JSON array of accounts
//	'<label>-<slot>-storage.csv': CSV of raw storage items
//
// Storage CSV are 'key,value' where binary key-value are base64-encoded.
// The accounts file is a readable view of the account items of the storage.
//
// Use IterateDumps to access existing dumps.
type Creator struct {
	dumpStreams

	accounts []Account

	storageItemsCSV *csv.Writer
}

// NewCreator returns Creator which dumps the ledger into given directory.
// The dump is identified by specified ID. Resulting Creator should be closed
// when finished working with it.
//
// NewCreator fails if dump with provided ID already exists.
func NewCreator(dir string, id ID) (*Creator, error) {
	var res Creator

	err := initDumpStreams(&res.dumpStreams, dir, id, false)
	if err != nil {
		return nil, err
	}

	res.storageItemsCSV = csv.NewWriter(res.dumpStreams.storageItems)

	return &res, nil
}

// AddAccount adds given account to the resulting dump. After all needed
// accounts are added, they should be flushed via Flush method.
func (x *Creator) AddAccount(addr solana.PublicKey, acc ledger.Account) {
	x.accounts = append(x.accounts, Account{
		Address:    addr,
		Lamports:   acc.Lamports,
		Owner:      acc.Owner,
		Executable: acc.Executable,
		Data:       acc.Data,
	})
}

// Write saves given binary key-value into the dump as storage item.
func (x *Creator) Write(key, value []byte) error {
	err := x.storageItemsCSV.Write([]string{
		_encoding.EncodeToString(key),
		_encoding.EncodeToString(value),
	})
	if err != nil {
		return fmt.Errorf("write storage item as CSV data: %w", err)
	}

	return nil
}

// Flush flushes accumulated dump to the file system.
func (x *Creator) Flush() error {
	jEnc := json.NewEncoder(x.dumpStreams.accounts)
	jEnc.SetIndent("", " ")

	err := jEnc.Encode(x.accounts)
	if err != nil {
		return fmt.Errorf("encode accounts to JSON: %w", err)
	}

	x.storageItemsCSV.Flush()

	err = x.storageItemsCSV.Error()
	if err != nil {
		return fmt.Errorf("flush CSV data: %w", err)
	}

	return nil
}

// Close releases underlying resources of the Creator and makes it unusable.
func (x *Creator) Close() {
	x.close()
}

// Ledger dumps the whole ledger state into given directory. The dump is
// labeled with the current ledger slot.
func Ledger(l *ledger.Ledger, dir, label string) (ID, error) {
	slot, err := l.Slot()
	if err != nil {
		return ID{}, fmt.Errorf("get current slot: %w", err)
	}

	id := ID{Label: label, Slot: slot}

	c, err := NewCreator(dir, id)
	if err != nil {
		return id, fmt.Errorf("init local dumper: %w", err)
	}

	defer c.Close()

	err = l.IterateAccounts(func(addr solana.PublicKey, acc ledger.Account) bool {
		c.AddAccount(addr, acc)
		return true
	})
	if err != nil {
		return id, fmt.Errorf("iterate accounts: %w", err)
	}

	err = l.IterateStorage(c.Write)
	if err != nil {
		return id, fmt.Errorf("iterate storage: %w", err)
	}

	err = c.Flush()
	if err != nil {
		return id, fmt.Errorf("flush dump: %w", err)
	}

	return id, nil
}
