package vault

import (
	"errors"

	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/io"
)

// StateSize is the size of the serialized State including discriminator.
const StateSize = discriminatorLen + 2

const discriminatorLen = 8

// ErrAccountDiscriminatorMismatch is returned on decoding of a record which
// is not a State.
var ErrAccountDiscriminatorMismatch = errors.New("account discriminator mismatch")

var stateDiscriminator = discriminator("account", "VaultState")

// State is the per-owner vault record. It keeps the bumps of both
// derivations so that later operations don't repeat the bump search.
type State struct {
	VaultBump uint8
	StateBump uint8
}

// EncodeBinary implements io.Serializable.
func (s *State) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(stateDiscriminator)
	w.WriteB(s.VaultBump)
	w.WriteB(s.StateBump)
}

// DecodeBinary implements io.Serializable.
func (s *State) DecodeBinary(r *io.BinReader) {
	var d [discriminatorLen]byte
	r.ReadBytes(d[:])
	if r.Err != nil {
		return
	}
	if string(d[:]) != string(stateDiscriminator) {
		r.Err = ErrAccountDiscriminatorMismatch
		return
	}
	s.VaultBump = r.ReadB()
	s.StateBump = r.ReadB()
}

// discriminator returns 8-byte type prefix of the named item in the given
// namespace ("account", "global" or "event").
func discriminator(namespace, name string) []byte {
	return hash.Sha256([]byte(namespace + ":" + name)).BytesBE()[:discriminatorLen]
}
