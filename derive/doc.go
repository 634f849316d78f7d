/*
Package derive computes program-scoped addresses that have no private key.

An address is the hash of a domain tag, arbitrary components, a single
disambiguation byte (bump) and the program identity. Only hashes that fall
off the ed25519 curve are valid, so the bump is searched downward from 255
until a valid address is found. The found bump is meant to be stored and
later reused for verification and for authorizing transfers on behalf of the
address (signer seeds), never searched again.
*/
package derive
