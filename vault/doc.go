/*
Package vault implements the custodial vault program.

Each owner gets a pair of derived addresses: the state record keeping bumps
of the derivations and the vault account holding the deposited value. Only
the owner may move value out of the vault, and the vault never drops below
the rent-exempt minimum unless it is closed entirely.

# Operations

	Initialize       creates the state record and funds the vault reserve
	Deposit          moves value from the owner to the vault
	Withdraw         moves value from the vault back to the owner
	WithdrawAndClose empties the vault and reclaims the state record

# Events

Every successful operation emits exactly one event after its effects are
committed to the ledger:

	InitializeEvent
	  - user: owner address

	DepositEvent
	  - user: owner address
	  - amount: deposited value

	WithdrawEvent
	  - user: owner address
	  - amount: withdrawn value

	WithdrawAndCloseEvent
	  - user: owner address
	  - amount: vault balance returned to the owner
*/
package vault
