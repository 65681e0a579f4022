// Package git reports how the vault file relates to a surrounding git
// repository.
//
// A vault is safe to commit: names and payloads are encrypted. The check
// exists so users syncing a vault through git notice when it is not
// tracked, or is ignored by accident.
package git
