/*
Package ledger provides the execution model the vault program runs on.

The ledger keeps accounts (balance, owning program, executable flag and raw
data) in a neo-go key-value store. Every submitted operation runs as a single
execution against a cached layer on top of the store: either all of its writes
are persisted at once or none of them is. Executions are serialized, so each
one observes the state as of its admission.

Inside an execution the program gets a Tx which moves value between accounts
(Transfer for signed external accounts, TransferAsDerived for program-derived
addresses proving authority with their signer seeds), creates and destroys
program-owned storage and reads the rent model.
*/
package ledger
