// Package vault is the passvault storage engine.
//
// A Vault holds two keys. The outer key seals the index (entry names and
// record references); the entries key seals each payload under a per-entry
// key bound to the entry name and its overwrite counter. Compromise of one
// key alone reveals neither the other key nor the data it protects.
//
// Vaults are opened from a file (Open) or created in memory (Create) and
// bound to a file later (SaveAs). Once bound, every mutation commits the
// re-sealed index together with the affected records in one transaction;
// on failure the in-memory state is left exactly as before the call.
//
// Concurrency: a Vault does no internal locking. Mutations (Put, Remove,
// Rename, Close) need external mutual exclusion; concurrent reads are safe
// only while nothing mutates. Name iterators are snapshots but must not be
// used after their Vault is closed.
package vault
