package vault

import "fmt"

// CheckWithdraw checks that amount can be taken from the vault holding
// balance which must keep at least reserve. The checks go in a fixed order,
// the first failed one wins.
func CheckWithdraw(balance, amount, reserve uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if balance < amount {
		return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientBalance, balance, amount)
	}
	if balance-amount < reserve {
		return fmt.Errorf("%w: balance %d, requested %d, reserve %d",
			ErrInsufficientBalanceForRent, balance, amount, reserve)
	}
	return nil
}

// CheckDeposit checks the deposited amount. Any amount including zero is
// accepted.
func CheckDeposit(uint64) error {
	return nil
}
