package vault

import (
	"encoding/base64"

	"github.com/gagliardetto/solana-go"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"go.uber.org/zap"
)

// Event is emitted by a successful operation.
type Event interface {
	io.Serializable
	// Name returns event type name.
	Name() string
	// Owner returns the vault owner the event relates to.
	Owner() solana.PublicKey
}

// InitializeEvent is emitted on vault creation.
type InitializeEvent struct {
	User solana.PublicKey
}

// DepositEvent is emitted on deposit.
type DepositEvent struct {
	User   solana.PublicKey
	Amount uint64
}

// WithdrawEvent is emitted on withdrawal.
type WithdrawEvent struct {
	User   solana.PublicKey
	Amount uint64
}

// WithdrawAndCloseEvent is emitted on vault closure. Amount is the vault
// balance returned to the owner.
type WithdrawAndCloseEvent struct {
	User   solana.PublicKey
	Amount uint64
}

// Name implements Event.
func (e *InitializeEvent) Name() string {
	return "InitializeEvent"
}

// Owner implements Event.
func (e *InitializeEvent) Owner() solana.PublicKey {
	return e.User
}

// Name implements Event.
func (e *DepositEvent) Name() string {
	return "DepositEvent"
}

// Owner implements Event.
func (e *DepositEvent) Owner() solana.PublicKey {
	return e.User
}

// Name implements Event.
func (e *WithdrawEvent) Name() string {
	return "WithdrawEvent"
}

// Owner implements Event.
func (e *WithdrawEvent) Owner() solana.PublicKey {
	return e.User
}

// Name implements Event.
func (e *WithdrawAndCloseEvent) Name() string {
	return "WithdrawAndCloseEvent"
}

// Owner implements Event.
func (e *WithdrawAndCloseEvent) Owner() solana.PublicKey {
	return e.User
}

func (e *InitializeEvent) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(e.User[:])
}

func (e *InitializeEvent) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(e.User[:])
}

func (e *DepositEvent) EncodeBinary(w *io.BinWriter) {
	encodeAmountEvent(w, e.User, e.Amount)
}

func (e *DepositEvent) DecodeBinary(r *io.BinReader) {
	e.Amount = decodeAmountEvent(r, &e.User)
}

func (e *WithdrawEvent) EncodeBinary(w *io.BinWriter) {
	encodeAmountEvent(w, e.User, e.Amount)
}

func (e *WithdrawEvent) DecodeBinary(r *io.BinReader) {
	e.Amount = decodeAmountEvent(r, &e.User)
}

func (e *WithdrawAndCloseEvent) EncodeBinary(w *io.BinWriter) {
	encodeAmountEvent(w, e.User, e.Amount)
}

func (e *WithdrawAndCloseEvent) DecodeBinary(r *io.BinReader) {
	e.Amount = decodeAmountEvent(r, &e.User)
}

func encodeAmountEvent(w *io.BinWriter, user solana.PublicKey, amount uint64) {
	w.WriteBytes(user[:])
	w.WriteU64LE(amount)
}

func decodeAmountEvent(r *io.BinReader, user *solana.PublicKey) uint64 {
	r.ReadBytes(user[:])
	return r.ReadU64LE()
}

// EncodeEvent returns binary form of the event prefixed with the
// discriminator of its type.
func EncodeEvent(e Event) []byte {
	w := io.NewBufBinWriter()
	w.WriteBytes(discriminator("event", e.Name()))
	e.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

// Sink receives events of committed operations. Emit must not block for
// long since it runs on the caller's goroutine.
type Sink interface {
	Emit(Event)
}

// SinkFunc is a function adapter for Sink.
type SinkFunc func(Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) {
	f(e)
}

type logSink struct {
	log *zap.Logger
}

// LogSink returns Sink writing events into the log.
func LogSink(log *zap.Logger) Sink {
	return logSink{log: log}
}

func (s logSink) Emit(e Event) {
	s.log.Info("program event",
		zap.String("name", e.Name()),
		zap.Stringer("user", e.Owner()),
		zap.String("data", base64.StdEncoding.EncodeToString(EncodeEvent(e))),
	)
}
