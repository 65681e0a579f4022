// Package crypto provides the key schedule and ciphers for passvault.
//
// Key schedule:
//   - Master secret: caller supplied, or scrypt(password, user-name salt) via KDF
//   - Outer key: keyed BLAKE2b-256 of the label "passvault.outer" under the master secret
//   - Entries key: keyed BLAKE2b-512 of the label "passvault.entries" under the master secret
//   - Entry key: HKDF-SHA256 of the entries key with info (name, counter)
//
// The outer key seals the vault index with AES-256-GCM (Encryptor). Entry
// payloads are sealed with XChaCha20-Poly1305 under their entry key
// (SealEntry/OpenEntry). Every seal draws a fresh random nonce.
//
// Memory safety:
//   - Derived keys live in secret.Buffer and are wiped by Destroy
//   - Use ClearBytes() to zero intermediate plaintext
package crypto
