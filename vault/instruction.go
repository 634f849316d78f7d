package vault

import (
	"errors"

	"github.com/gagliardetto/solana-go"
	"github.com/nspcc-dev/neo-go/pkg/io"
)

// Program methods.
const (
	MethodInitialize       = "initialize"
	MethodDeposit          = "deposit"
	MethodWithdraw         = "withdraw"
	MethodWithdrawAndClose = "withdraw_and_close"
)

// ErrInstructionMismatch is returned on decoding of an instruction of another
// method.
var ErrInstructionMismatch = errors.New("instruction discriminator mismatch")

// Instruction is an operation request signed by the vault owner.
type Instruction struct {
	Method   string
	Amount   uint64
	Accounts Accounts
}

// EncodeBinary implements io.Serializable. Amount is written only for
// methods taking it.
func (in *Instruction) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(discriminator("global", in.Method))
	if hasAmount(in.Method) {
		w.WriteU64LE(in.Amount)
	}
	w.WriteBytes(in.Accounts.User[:])
	w.WriteBytes(in.Accounts.VaultState[:])
	w.WriteBytes(in.Accounts.Vault[:])
}

// DecodeBinary implements io.Serializable. Method must be set in advance
// since the discriminator is one-way.
func (in *Instruction) DecodeBinary(r *io.BinReader) {
	var d [discriminatorLen]byte
	r.ReadBytes(d[:])
	if r.Err != nil {
		return
	}
	if string(d[:]) != string(discriminator("global", in.Method)) {
		r.Err = ErrInstructionMismatch
		return
	}
	if hasAmount(in.Method) {
		in.Amount = r.ReadU64LE()
	}
	r.ReadBytes(in.Accounts.User[:])
	r.ReadBytes(in.Accounts.VaultState[:])
	r.ReadBytes(in.Accounts.Vault[:])
}

// Bytes returns the message signed by the owner.
func (in Instruction) Bytes() []byte {
	w := io.NewBufBinWriter()
	in.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

// Sign signs the instruction with the owner's key.
func (in Instruction) Sign(key solana.PrivateKey) (solana.Signature, error) {
	return key.Sign(in.Bytes())
}

func hasAmount(method string) bool {
	return method == MethodDeposit || method == MethodWithdraw
}
