// Package history keeps a SQLite ledger of supervised worker runs: when each
// worker was launched, why it left the slot, and whether it had to be killed.
//
// Runs still marked running when a host starts belonged to a host that died
// without reaping them; RecoverAbandoned marks those explicitly.
package history
