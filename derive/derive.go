package derive

import (
	"errors"
	"fmt"
	"math"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrExhausted is returned when no bump in [0, 255] produces a valid
	// address. It is a configuration error and must not be retried.
	ErrExhausted = errors.New("unable to find a valid program address")

	// ErrSeedTooLong is returned when the tag or any component exceeds
	// solana.MaxSeedLength bytes or there are too many of them.
	ErrSeedTooLong = errors.New("max seed length exceeded")

	// ErrOnCurve is returned by Create if the given bump produces an address
	// having a private key.
	ErrOnCurve = errors.New("invalid seeds, address must fall off the curve")
)

// Derived is a derived address together with all inputs needed to reproduce
// it. It is passed wherever authority of the address must be proven.
type Derived struct {
	Tag        string
	Components [][]byte
	Bump       uint8
	Address    solana.PublicKey
}

// Seeds returns signer seeds of the address: tag, components and bump.
func (x Derived) Seeds() [][]byte {
	res := make([][]byte, 0, len(x.Components)+2)
	res = append(res, []byte(x.Tag))
	res = append(res, x.Components...)
	return append(res, []byte{x.Bump})
}

// Deriver derives addresses scoped to the particular program.
type Deriver struct {
	program solana.PublicKey
}

// New returns Deriver for the given program identity.
func New(program solana.PublicKey) *Deriver {
	return &Deriver{program: program}
}

// Program returns the program identity addresses are scoped to.
func (d *Deriver) Program() solana.PublicKey {
	return d.program
}

// Derive finds the canonical (highest valid) bump for the given tag and
// components and returns the resulting address.
func (d *Deriver) Derive(tag string, components ...[]byte) (Derived, error) {
	if err := checkSeeds(tag, components); err != nil {
		return Derived{}, err
	}

	for bump := math.MaxUint8; bump >= 0; bump-- {
		addr, err := d.Create(tag, uint8(bump), components...)
		if err == nil {
			return Derived{
				Tag:        tag,
				Components: components,
				Bump:       uint8(bump),
				Address:    addr,
			}, nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Derived{}, err
		}
	}

	return Derived{}, fmt.Errorf("%w: tag %q", ErrExhausted, tag)
}

// Create computes the address for the given tag, bump and components
// without searching. It returns ErrOnCurve if the bump is not valid.
func (d *Deriver) Create(tag string, bump uint8, components ...[]byte) (solana.PublicKey, error) {
	if err := checkSeeds(tag, components); err != nil {
		return solana.PublicKey{}, err
	}

	seeds := Derived{Tag: tag, Components: components, Bump: bump}.Seeds()

	addr, err := solana.CreateProgramAddress(seeds, d.program)
	if err != nil {
		if errors.Is(err, solana.ErrMaxSeedLengthExceeded) {
			return solana.PublicKey{}, ErrSeedTooLong
		}
		return solana.PublicKey{}, ErrOnCurve
	}

	return addr, nil
}

// Verify recomputes the address from the tag, stored bump and components and
// checks that it equals the claimed one.
func (d *Deriver) Verify(claimed solana.PublicKey, tag string, bump uint8, components ...[]byte) bool {
	addr, err := d.Create(tag, bump, components...)
	return err == nil && addr.Equals(claimed)
}

// Reproduce checks that x was derived by d, i.e. its seeds lead to its
// address under d's program.
func (d *Deriver) Reproduce(x Derived) bool {
	return d.Verify(x.Address, x.Tag, x.Bump, x.Components...)
}

func checkSeeds(tag string, components [][]byte) error {
	// bump occupies one more seed
	if len(components)+2 > solana.MaxSeeds {
		return ErrSeedTooLong
	}
	if len(tag) > solana.MaxSeedLength {
		return ErrSeedTooLong
	}
	for i := range components {
		if len(components[i]) > solana.MaxSeedLength {
			return ErrSeedTooLong
		}
	}
	return nil
}
