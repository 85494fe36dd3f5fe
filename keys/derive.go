package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
)

// RoleChain is the role whose key signs source chain headers.
const RoleChain = "chain"

// PublicKeyFromSeed returns the public key string for an Ed25519 seed.
func PublicKeyFromSeed(seed []byte) string {
	priv := ed25519.NewKeyFromSeed(seed)
	s, _ := PublicKeyString(priv.Public().(ed25519.PublicKey))
	return s
}

// DeriveRoleSeed deterministically derives a role-specific Ed25519 seed from
// an agent's root seed.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	h := sha256.New()
	_, _ = h.Write(rootSeed)
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("agentchain-keys-v1"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("role:"))
	_, _ = h.Write([]byte(role))
	return h.Sum(nil)[:ed25519.SeedSize], nil
}
