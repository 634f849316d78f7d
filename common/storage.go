package common

import (
	"bytes"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/io"
)

// Getter is a read side of the key-value storage.
type Getter interface {
	Get(key []byte) ([]byte, error)
}

// Putter is a write side of the key-value storage.
type Putter interface {
	Put(key, value []byte)
}

// Serialize encodes v into a new byte slice.
func Serialize(v io.Serializable) ([]byte, error) {
	w := io.NewBufBinWriter()
	v.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// Deserialize decodes v from data. Trailing bytes are treated as an error.
func Deserialize(data []byte, v io.Serializable) error {
	buf := bytes.NewReader(data)
	r := io.NewBinReaderFromIO(buf)
	v.DecodeBinary(r)
	if r.Err != nil {
		return r.Err
	}
	if buf.Len() != 0 {
		return fmt.Errorf("%d trailing bytes", buf.Len())
	}
	return nil
}

// SetSerialized serializes data and puts it into the storage.
func SetSerialized(st Putter, key []byte, v io.Serializable) error {
	data, err := Serialize(v)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	st.Put(key, data)
	return nil
}

// GetSerialized gets the value stored under the key and deserializes it
// into v. Storage errors (incl. missing key) are returned as is.
func GetSerialized(st Getter, key []byte, v io.Serializable) error {
	data, err := st.Get(key)
	if err != nil {
		return err
	}
	if err = Deserialize(data, v); err != nil {
		return fmt.Errorf("deserialize: %w", err)
	}
	return nil
}
