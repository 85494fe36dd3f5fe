// Package keys manages an agent's signing keys and the Signer used to sign
// source chain headers.
//
// Public keys are rendered as "<alg>:<base64>" (ed25519 or dilithium3).
// The KeyStore is a local-first seed store on disk; it is a convenience for
// the CLI and carries no protocol weight.
package keys
