/*
Package dump provides I/O operations for collected states of the vault
ledger.

State collection allows you to reproduce the "live" ledger locally. First of
all, it is in demand for testing and incident analysis. For state
reproducibility, it is necessary to be able to persist (dump) the accounts
along with the raw storage, as well as read and restore ready-made dumps.

The package works with dumps stored in the file system using human-readable
encoding.
*/
package dump
