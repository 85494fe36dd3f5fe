package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// ErrBadSignature is returned by Verify when a signature does not match.
var ErrBadSignature = errors.New("keys: signature invalid")

// Signer signs chain records. Signatures are base64 over hash(message).
type Signer interface {
	// PublicKey returns the "<alg>:<base64>" public key string.
	PublicKey() string
	// HashAlg names the digest signed: sha256, sha512 or sha3-256.
	HashAlg() string
	Sign(message []byte) (string, error)
}

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// Ed25519Signer signs sha256(message) with an Ed25519 key.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

// NewEd25519Signer returns a signer for seed.
func NewEd25519Signer(seed []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Ed25519Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Ed25519Signer) PublicKey() string {
	pk, _ := PublicKeyString(s.priv.Public().(ed25519.PublicKey))
	return pk
}

func (s *Ed25519Signer) HashAlg() string { return "sha256" }

func (s *Ed25519Signer) Sign(message []byte) (string, error) {
	return SignEd25519SHA256(message, s.priv), nil
}

// Dilithium3Signer signs hash(message) with a post-quantum Dilithium3 key.
type Dilithium3Signer struct {
	pub     *mode3.PublicKey
	priv    *mode3.PrivateKey
	hashAlg string
}

// NewDilithium3Signer generates a fresh Dilithium3 key from rand.
// An empty hashAlg selects sha3-256.
func NewDilithium3Signer(rand io.Reader, hashAlg string) (*Dilithium3Signer, error) {
	if hashAlg == "" {
		hashAlg = "sha3-256"
	}
	if _, err := digestFor(hashAlg, nil); err != nil {
		return nil, err
	}
	pub, priv, err := mode3.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return &Dilithium3Signer{pub: pub, priv: priv, hashAlg: hashAlg}, nil
}

func (s *Dilithium3Signer) PublicKey() string {
	pk, _ := Dilithium3PublicKeyString(s.pub)
	return pk
}

func (s *Dilithium3Signer) HashAlg() string { return s.hashAlg }

func (s *Dilithium3Signer) Sign(message []byte) (string, error) {
	return SignDilithium3(message, s.hashAlg, s.priv)
}

// SignEd25519SHA256 returns a base64 signature over sha256(message).
func SignEd25519SHA256(message []byte, privateKey ed25519.PrivateKey) string {
	digest := sha256.Sum256(message)
	sig := ed25519.Sign(privateKey, digest[:])
	return base64.StdEncoding.EncodeToString(sig)
}

// SignDilithium3 returns a base64 dilithium3 signature over hash(message).
func SignDilithium3(message []byte, hashAlg string, privateKey *mode3.PrivateKey) (string, error) {
	if privateKey == nil {
		return "", fmt.Errorf("missing private key")
	}
	digest, err := digestFor(hashAlg, message)
	if err != nil {
		return "", err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(privateKey, digest, sig)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 signature made by the holder of publicKey.
func Verify(publicKey, hashAlg string, message []byte, signature string) error {
	alg, pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return err
	}
	sig, err := decodeBase64(signature)
	if err != nil {
		return fmt.Errorf("invalid signature base64: %w", err)
	}
	digest, err := digestFor(hashAlg, message)
	if err != nil {
		return err
	}
	switch alg {
	case AlgEd25519:
		if len(sig) != ed25519.SignatureSize || !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return ErrBadSignature
		}
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return err
		}
		if len(sig) != mode3.SignatureSize || !mode3.Verify(&pk, digest, sig) {
			return ErrBadSignature
		}
	}
	return nil
}
