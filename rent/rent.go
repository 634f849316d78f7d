// Package rent implements the ledger's storage cost model: the minimum
// balance an account must hold to stay rent-exempt.
package rent

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/nspcc-dev/neo-go/pkg/io"
)

const (
	// AccountStorageOverhead is the number of bytes every account is charged
	// for on top of its data.
	AccountStorageOverhead = 128

	// DefaultLamportsPerByteYear is the current ledger price of a byte per
	// year.
	DefaultLamportsPerByteYear = 3480

	// DefaultExemptionThreshold is the number of years of rent an account
	// must hold to be exempt.
	DefaultExemptionThreshold = 2.0

	// DefaultBurnPercent is the share of collected rent that is burned.
	DefaultBurnPercent = 50

	// SysvarSize is the size of the encoded Rent.
	SysvarSize = 8 + 8 + 1

	// MaxDataLength is the maximum size of account data the ledger allows.
	MaxDataLength = 10 * 1024 * 1024
)

// ErrInvalidModel is returned for models that can't produce a meaningful
// minimum balance.
var ErrInvalidModel = errors.New("invalid rent model")

// Rent is a storage cost model. It is an external parameter of the ledger and
// can change between ledger versions, so the program reads it at operation
// time.
type Rent struct {
	LamportsPerByteYear uint64  `yaml:"LamportsPerByteYear"`
	ExemptionThreshold  float64 `yaml:"ExemptionThreshold"`
	BurnPercent         uint8   `yaml:"BurnPercent"`
}

// Default returns the current ledger cost model.
func Default() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionThreshold:  DefaultExemptionThreshold,
		BurnPercent:         DefaultBurnPercent,
	}
}

// Validate checks that the model is usable.
func (r Rent) Validate() error {
	switch {
	case r.ExemptionThreshold < 0 || math.IsNaN(r.ExemptionThreshold) || math.IsInf(r.ExemptionThreshold, 0):
		return fmt.Errorf("%w: exemption threshold %v", ErrInvalidModel, r.ExemptionThreshold)
	case r.BurnPercent > 100:
		return fmt.Errorf("%w: burn percent %d", ErrInvalidModel, r.BurnPercent)
	}

	// the largest account must have a representable minimum balance
	hi, perYear := bits.Mul64(AccountStorageOverhead+MaxDataLength, r.LamportsPerByteYear)
	if hi != 0 {
		return fmt.Errorf("%w: lamports per byte-year %d overflow", ErrInvalidModel, r.LamportsPerByteYear)
	}
	if float64(perYear)*r.ExemptionThreshold >= maxBalance {
		return fmt.Errorf("%w: exemption threshold %v overflows with %d lamports per byte-year",
			ErrInvalidModel, r.ExemptionThreshold, r.LamportsPerByteYear)
	}

	return nil
}

// 2^64, the smallest float64 not representable as uint64.
const maxBalance = float64(1 << 64)

// MinimumBalance returns the minimum balance an account with dataLen bytes of
// data must hold to be rent-exempt. For a bare value-holding account
// (dataLen = 0) only the storage overhead is charged. Values not fitting into
// uint64 saturate to math.MaxUint64.
func (r Rent) MinimumBalance(dataLen uint64) uint64 {
	bytes, carry := bits.Add64(AccountStorageOverhead, dataLen, 0)
	if carry != 0 {
		return math.MaxUint64
	}

	hi, perYear := bits.Mul64(bytes, r.LamportsPerByteYear)
	if hi != 0 {
		return math.MaxUint64
	}

	res := float64(perYear) * r.ExemptionThreshold
	if res >= maxBalance {
		return math.MaxUint64
	}
	return uint64(res)
}

// IsExempt tells whether balance is enough for an account with dataLen bytes
// of data.
func (r Rent) IsExempt(balance uint64, dataLen uint64) bool {
	return balance >= r.MinimumBalance(dataLen)
}

// EncodeBinary implements io.Serializable. The layout is the one of the rent
// sysvar: u64 LE, f64 LE, u8.
func (r *Rent) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(r.LamportsPerByteYear)
	w.WriteU64LE(math.Float64bits(r.ExemptionThreshold))
	w.WriteB(r.BurnPercent)
}

// DecodeBinary implements io.Serializable.
func (r *Rent) DecodeBinary(rd *io.BinReader) {
	r.LamportsPerByteYear = rd.ReadU64LE()
	r.ExemptionThreshold = math.Float64frombits(rd.ReadU64LE())
	r.BurnPercent = rd.ReadB()
}
