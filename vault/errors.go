package vault

import (
	"errors"
	"fmt"
)

// Error is a program error with a stable numeric code.
type Error struct {
	code uint32
	name string
	msg  string
}

// Code returns numeric error code.
func (e *Error) Code() uint32 {
	return e.code
}

// Name returns error identifier.
func (e *Error) Name() string {
	return e.name
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.name, e.code, e.msg)
}

// Program errors.
var (
	ErrInvalidAmount = &Error{6000, "InvalidAmount",
		"Amount must be greater than 0"}
	ErrInsufficientBalance = &Error{6001, "InsufficientBalance",
		"Insufficient balance in vault"}
	ErrInsufficientBalanceForRent = &Error{6002, "InsufficientBalanceForRent",
		"Withdrawal would leave vault below rent-exempt threshold"}
)

// Account validation errors.
var (
	ErrAlreadyInitialized = &Error{0, "AlreadyInitialized",
		"The vault state account is already in use"}
	ErrDerivationMismatch = &Error{2006, "DerivationMismatch",
		"A seeds constraint was violated"}
	ErrNotInitialized = &Error{3012, "NotInitialized",
		"The program expected this account to be already initialized"}
)

// Code returns the code of the program error in err chain. The second value
// is false if there is none.
func Code(err error) (uint32, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.code, true
	}
	return 0, false
}
