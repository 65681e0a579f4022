// Package handle exposes the vault engine through opaque integer handles,
// the shape a foreign-function boundary needs.
//
// Every object handed out (secret, key, vault, iterator, entry buffer,
// entry name) lives in a Table under a non-zero Handle and has exactly one
// release function. Releasing an unknown, already released or transferred
// handle, or passing a handle of the wrong kind, yields ErrInvalidHandle
// and leaves every other handle untouched.
//
// Key handles passed to OpenVault or NewVault are transferred to the vault
// on success and must not be freed by the caller; CloseVault destroys them.
// On failure they remain valid and owned by the caller.
//
// The package-level functions operate on a process-wide table set up by
// Init.
package handle
