package ledger

import "errors"

var (
	// ErrProgramNotDeployed is returned when the executing program has no
	// executable account in the ledger.
	ErrProgramNotDeployed = errors.New("program is not deployed")

	// ErrPrivileged is returned when a non-system execution tries to change
	// system state.
	ErrPrivileged = errors.New("operation is reserved for the system program")

	// ErrMissingSignature is returned when value is moved from an account that
	// did not sign the execution.
	ErrMissingSignature = errors.New("missing required signature")

	// ErrSignerSeedsMismatch is returned when signer seeds do not reproduce
	// the derived address under the executing program.
	ErrSignerSeedsMismatch = errors.New("signer seeds do not reproduce the address")

	// ErrInsufficientFunds is returned when the source holds less than the
	// transferred amount.
	ErrInsufficientFunds = errors.New("insufficient lamports")

	// ErrInsufficientFundsForRent is returned when an execution leaves an
	// account below its rent-exempt minimum.
	ErrInsufficientFundsForRent = errors.New("insufficient funds for rent")

	// ErrAccountInUse is returned when the account to be created already
	// holds data or is assigned to a program.
	ErrAccountInUse = errors.New("account already in use")

	// ErrNotOwner is returned when the executing program modifies an account
	// it does not own.
	ErrNotOwner = errors.New("account is not owned by the executing program")

	// ErrTransferFromData is returned when value is transferred from an
	// account carrying data or owned by a program.
	ErrTransferFromData = errors.New("transfer source must be a bare system account")

	// ErrArithmeticOverflow is returned when a balance overflows.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")

	// ErrDataSizeMismatch is returned when the written data differs in size
	// from the allocated one.
	ErrDataSizeMismatch = errors.New("data size mismatch")

	// ErrSpaceTooLarge is returned when more than MaxDataLength bytes are
	// requested.
	ErrSpaceTooLarge = errors.New("requested space is too large")

	// ErrSysvarNotFound is returned when the rent sysvar is not set.
	ErrSysvarNotFound = errors.New("sysvar not found")
)
