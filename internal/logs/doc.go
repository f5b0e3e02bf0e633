// Package logs reads the host log with bounded memory for `vaultlens logs`.
//
// Last returns the final N lines and the offset they end at; ReadFrom and
// Follow continue from an offset. The host log is reached through the
// vaultlens.log pointer, which moves to a new file on every host run, so an
// offset past the end of the file restarts reading from the beginning.
package logs
