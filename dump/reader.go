package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
)

// IterateDumps iterates over all dumps collected by the Creator model in
// the specified directory, and passes ID and Reader of each dump into f.
func IterateDumps(dir string, f func(ID, *Reader)) error {
	var id ID
	var r Reader
	var streams dumpStreams

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, e error) error {
		if errors.Is(e, fs.ErrNotExist) {
			return nil
		}
		if e != nil {
			return e
		}

		if d.IsDir() {
			return nil
		}

		name := d.Name()

		if !strings.HasSuffix(name, accountsFileSuffix) {
			return nil
		}

		err := id.decodeString(name)
		if err != nil {
			return fmt.Errorf("decode dump ID from file name '%s': %w", d.Name(), err)
		}

		err = initDumpStreams(&streams, filepath.Dir(path), id, true)
		if err != nil {
			return fmt.Errorf("init dump streams ('%s'): %w", name, err)
		}

		err = r.fromDumpStreams(streams.accounts, streams.storageItems)
		streams.close()
		if err != nil {
			return fmt.Errorf("init dump reader ('%s'): %w", name, err)
		}

		f(id, &r)

		return nil
	})
}

type kv struct{ k, v []byte }

// Reader reads the superior dump.
type Reader struct {
	accounts []Account
	storage  []kv
}

func (x *Reader) fromDumpStreams(rAccounts, rStorageItems io.Reader) error {
	x.accounts = x.accounts[:0]
	x.storage = x.storage[:0]

	err := json.NewDecoder(rAccounts).Decode(&x.accounts)
	if err != nil {
		return fmt.Errorf("decode accounts from JSON: %w", err)
	}

	var rec []string
	var _kv kv

	_csv := csv.NewReader(rStorageItems)
	_csv.FieldsPerRecord = 2
	_csv.ReuseRecord = true

	for {
		rec, err = _csv.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read next CSV record: %w", err)
		}

		// out-of-range safety guaranteed by csv settings
		_kv.k, err = _encoding.DecodeString(rec[0])
		if err != nil {
			return fmt.Errorf("decode storage item key: %w", err)
		}

		_kv.v, err = _encoding.DecodeString(rec[1])
		if err != nil {
			return fmt.Errorf("decode storage item value: %w", err)
		}

		x.storage = append(x.storage, _kv)
	}
}

// IterateAccounts iterates over all accounts from the superior dump and
// passes them into f.
func (x *Reader) IterateAccounts(f func(Account)) {
	for i := range x.accounts {
		f(x.accounts[i])
	}
}

// IterateStorage iterates over all storage items from the superior dump
// and passes them into f.
func (x *Reader) IterateStorage(f func(key, value []byte)) {
	for i := range x.storage {
		f(x.storage[i].k, x.storage[i].v)
	}
}

// Restore writes all storage items of the dump into st at once. The result
// can be opened with ledger.New.
func (x *Reader) Restore(st storage.Store) error {
	cache := storage.NewMemCachedStore(st)

	for i := range x.storage {
		cache.Put(x.storage[i].k, x.storage[i].v)
	}

	if _, err := cache.Persist(); err != nil {
		return fmt.Errorf("persist restored items: %w", err)
	}

	return nil
}
