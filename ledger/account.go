package ledger

import (
	"github.com/gagliardetto/solana-go"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/vault-contract/common"
	"github.com/nspcc-dev/vault-contract/rent"
)

// MaxDataLength is the maximum size of account data.
const MaxDataLength = rent.MaxDataLength

// SysvarRentID is the address of the account holding the rent model.
var SysvarRentID = common.MustDecodeAddress("SysvarRent111111111111111111111111111111111")

// Account is a ledger account. Zero value is an absent system account.
type Account struct {
	// Balance in lamports.
	Lamports uint64
	// Program allowed to modify data and debit the account.
	Owner solana.PublicKey
	// Set for program accounts.
	Executable bool
	// Opaque data interpreted by the owner.
	Data []byte
}

// IsEmpty tells whether the account carries nothing and therefore does not
// exist in the ledger.
func (a Account) IsEmpty() bool {
	return a.Lamports == 0 && len(a.Data) == 0 && !a.Executable
}

// EncodeBinary implements io.Serializable.
func (a *Account) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(a.Lamports)
	w.WriteBytes(a.Owner[:])
	w.WriteBool(a.Executable)
	w.WriteVarBytes(a.Data)
}

// DecodeBinary implements io.Serializable.
func (a *Account) DecodeBinary(r *io.BinReader) {
	a.Lamports = r.ReadU64LE()
	r.ReadBytes(a.Owner[:])
	a.Executable = r.ReadBool()
	a.Data = r.ReadVarBytes(MaxDataLength)
	if len(a.Data) == 0 {
		a.Data = nil
	}
}
