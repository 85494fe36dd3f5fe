package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// KeyStore keeps Ed25519 seeds on the local filesystem:
//
//	<Directory>/<agent>/root.key
//	<Directory>/<agent>/roles/<role>.key
//
// Seeds are hex encoded, one per file, mode 0600.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Agent string
	Roles []string
}

func DefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".agentchain", "keys"), nil
}

// Open returns a KeyStore rooted at directory, or at DefaultDirectory when empty.
func Open(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func (ks *KeyStore) rootPath(agent string) string {
	return filepath.Join(ks.Directory, agent, "root.key")
}

func (ks *KeyStore) rolePath(agent, role string) string {
	return filepath.Join(ks.Directory, agent, "roles", role+".key")
}

func checkName(what, s string) error {
	if s == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	for _, char := range s {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in %s", char, what)
	}
	return nil
}

// CheckAgentName validates a key store agent name.
func CheckAgentName(agent string) error { return checkName("agent name", agent) }

// CheckRole validates a role name.
func CheckRole(role string) error { return checkName("role", role) }

func ParseSeedHex(seedHex string) ([]byte, error) {
	seedHex = strings.TrimSpace(seedHex)
	seedHex = strings.TrimPrefix(seedHex, "0x")
	data, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, err
	}
	if len(data) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

func saveSeed(path string, seed []byte, overwrite bool) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("expected seed length of %d bytes", ed25519.SeedSize)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(hex.EncodeToString(seed) + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func loadSeed(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeedHex(string(data))
}

// InitRoot stores seed as the agent's root key and derives its chain key.
// It returns the chain signing public key.
func (ks *KeyStore) InitRoot(agent string, seed []byte, overwrite bool) (publicKey string, err error) {
	if err := CheckAgentName(agent); err != nil {
		return "", err
	}
	if err := saveSeed(ks.rootPath(agent), seed, overwrite); err != nil {
		return "", err
	}
	return ks.DeriveRole(agent, RoleChain, overwrite)
}

// DeriveRole derives and stores the agent's key for role.
func (ks *KeyStore) DeriveRole(agent, role string, overwrite bool) (publicKey string, err error) {
	if err := CheckAgentName(agent); err != nil {
		return "", err
	}
	rootSeed, err := loadSeed(ks.rootPath(agent))
	if err != nil {
		return "", err
	}
	roleSeed, err := DeriveRoleSeed(rootSeed, role)
	if err != nil {
		return "", err
	}
	if err := saveSeed(ks.rolePath(agent, role), roleSeed, overwrite); err != nil {
		return "", err
	}
	return PublicKeyFromSeed(roleSeed), nil
}

// Seed loads the agent's root seed (role == "") or a role seed.
func (ks *KeyStore) Seed(agent, role string) ([]byte, error) {
	if err := CheckAgentName(agent); err != nil {
		return nil, err
	}
	if role == "" {
		return loadSeed(ks.rootPath(agent))
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}
	return loadSeed(ks.rolePath(agent, role))
}

// Export returns the public key string for the agent's root or role key.
func (ks *KeyStore) Export(agent, role string) (string, error) {
	seed, err := ks.Seed(agent, role)
	if err != nil {
		return "", err
	}
	return PublicKeyFromSeed(seed), nil
}

// Signer returns the agent's chain signer.
func (ks *KeyStore) Signer(agent string) (Signer, error) {
	seed, err := ks.Seed(agent, RoleChain)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("keys: no %s key for agent %q (run key init)", RoleChain, agent)
	}
	if err != nil {
		return nil, err
	}
	return NewEd25519Signer(seed)
}

// List returns the stored agents and their role keys, sorted.
func (ks *KeyStore) List() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var agents []string
	for _, e := range entries {
		if e.IsDir() {
			agents = append(agents, e.Name())
		}
	}
	sort.Strings(agents)

	var result []KeyEntry
	for _, agent := range agents {
		roleEntries, rerr := os.ReadDir(filepath.Join(ks.Directory, agent, "roles"))
		var roles []string
		if rerr == nil {
			for _, re := range roleEntries {
				if !re.IsDir() && strings.HasSuffix(re.Name(), ".key") {
					roles = append(roles, strings.TrimSuffix(re.Name(), ".key"))
				}
			}
			sort.Strings(roles)
		}
		result = append(result, KeyEntry{Agent: agent, Roles: roles})
	}
	return result, nil
}
