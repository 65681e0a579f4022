// Package storage provides the BBolt file layout for a passvault vault.
//
// Database structure uses three buckets:
//   - meta: format version, vault ID, timestamps (unencrypted)
//   - index: the sealed index envelope (names, record references)
//   - records: sealed entry payloads keyed by random record ID
//
// Record IDs carry no information about entry names, so the records bucket
// can be read without learning which entries exist.
//
// Commit writes the envelope and any record changes in a single transaction,
// so a crash leaves either the old or the new vault, never a mix.
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
