// Package dna is the definition registry: the immutable description of an
// application's zomes, their capabilities and their entry types.
//
// The declarative part is loaded from a YAML manifest. Acceptance rules are
// Go code and are attached per entry type with BindValidation before the DNA
// is frozen by an instance.
package dna

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/errs"
	"xdao.co/agentchain/validation"
)

// Membrane is a capability's access policy tag. The core records it;
// enforcement of who may call is a caller-identity hook.
type Membrane string

const (
	MembranePublic Membrane = "Public"
	MembraneAgent  Membrane = "Agent"
	MembraneAPI    Membrane = "Api"
	MembraneZome   Membrane = "Zome"
)

// ParseMembrane accepts a membrane tag case-insensitively.
func ParseMembrane(s string) (Membrane, error) {
	for _, m := range []Membrane{MembranePublic, MembraneAgent, MembraneAPI, MembraneZome} {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown membrane %q", s)
}

func (m *Membrane) UnmarshalText(b []byte) error {
	p, err := ParseMembrane(string(b))
	if err != nil {
		return err
	}
	*m = p
	return nil
}

// Sharing is an entry type's sharing policy.
type Sharing string

const (
	SharingPublic  Sharing = "public"
	SharingPrivate Sharing = "private"
)

type Field struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// FnDeclaration names a function reachable through a capability.
type FnDeclaration struct {
	Name    string  `json:"name" yaml:"name"`
	Inputs  []Field `json:"inputs" yaml:"inputs"`
	Outputs []Field `json:"outputs" yaml:"outputs"`
}

type Capability struct {
	Name      string          `json:"-" yaml:"-"`
	Membrane  Membrane        `json:"membrane" yaml:"membrane"`
	Functions []FnDeclaration `json:"functions" yaml:"functions"`
}

// Function returns the declaration of fn within c.
func (c *Capability) Function(fn string) (FnDeclaration, bool) {
	for _, f := range c.Functions {
		if f.Name == fn {
			return f, true
		}
	}
	return FnDeclaration{}, false
}

type EntryTypeDef struct {
	Name        string  `json:"-" yaml:"-"`
	Description string  `json:"description" yaml:"description"`
	Sharing     Sharing `json:"sharing" yaml:"sharing"`

	Validation validation.Definition `json:"-" yaml:"-"`
}

type Zome struct {
	Name         string                   `json:"-" yaml:"-"`
	Description  string                   `json:"description" yaml:"description"`
	Capabilities map[string]*Capability   `json:"capabilities" yaml:"capabilities"`
	EntryTypes   map[string]*EntryTypeDef `json:"entry_types" yaml:"entry_types"`
}

type DNA struct {
	Name    string           `json:"name" yaml:"name"`
	Version string           `json:"version" yaml:"version"`
	UUID    string           `json:"uuid" yaml:"uuid"`
	Zomes   map[string]*Zome `json:"zomes" yaml:"zomes"`

	frozen atomic.Bool
}

// Validate fills names from map keys and checks the definition is
// well-formed: non-empty names, known membranes, no function declared twice
// within a capability, and entry type names unique across zomes.
func (d *DNA) Validate() error {
	if d.Name == "" {
		return errs.New(errs.KindStructural, "DNA-001", "dna: missing name")
	}
	if len(d.Zomes) == 0 {
		return errs.New(errs.KindStructural, "DNA-002", "dna: no zomes")
	}
	typeOwner := map[string]string{}
	for _, zn := range sortedKeys(d.Zomes) {
		z := d.Zomes[zn]
		if zn == "" || z == nil {
			return errs.New(errs.KindStructural, "DNA-003", "dna: empty zome")
		}
		z.Name = zn
		for _, cn := range sortedKeys(z.Capabilities) {
			c := z.Capabilities[cn]
			if cn == "" || c == nil {
				return errs.New(errs.KindStructural, "DNA-004", fmt.Sprintf("dna: zome %s: empty capability", zn))
			}
			c.Name = cn
			if _, err := ParseMembrane(string(c.Membrane)); err != nil {
				return errs.Wrap(errs.KindStructural, "DNA-005", fmt.Sprintf("dna: %s/%s", zn, cn), err)
			}
			seen := map[string]bool{}
			for _, f := range c.Functions {
				if f.Name == "" {
					return errs.New(errs.KindStructural, "DNA-006", fmt.Sprintf("dna: %s/%s: unnamed function", zn, cn))
				}
				if seen[f.Name] {
					return errs.New(errs.KindStructural, "DNA-007", fmt.Sprintf("dna: %s/%s: function %s declared twice", zn, cn, f.Name))
				}
				seen[f.Name] = true
			}
		}
		for _, tn := range sortedKeys(z.EntryTypes) {
			t := z.EntryTypes[tn]
			if tn == "" || t == nil {
				return errs.New(errs.KindStructural, "DNA-008", fmt.Sprintf("dna: zome %s: empty entry type", zn))
			}
			if entry.IsSystemType(tn) {
				return errs.New(errs.KindStructural, "DNA-009", fmt.Sprintf("dna: zome %s: entry type %s uses the system prefix", zn, tn))
			}
			if owner, dup := typeOwner[tn]; dup {
				return errs.New(errs.KindStructural, "DNA-010", fmt.Sprintf("dna: entry type %s declared by %s and %s", tn, owner, zn))
			}
			typeOwner[tn] = zn
			t.Name = tn
			if t.Sharing == "" {
				t.Sharing = SharingPublic
			}
		}
	}
	return nil
}

// Freeze makes d read-only; BindValidation fails afterwards.
func (d *DNA) Freeze() { d.frozen.Store(true) }

func (d *DNA) Frozen() bool { return d.frozen.Load() }

// BindValidation attaches the acceptance policy of an entry type.
func (d *DNA) BindValidation(entryType string, def validation.Definition) error {
	if d.Frozen() {
		return errs.New(errs.KindStructural, "DNA-011", "dna: frozen")
	}
	t, ok := d.EntryType(entryType)
	if !ok {
		return errs.New(errs.KindStructural, "DNA-012", "dna: unknown entry type "+entryType)
	}
	t.Validation = def
	return nil
}

func (d *DNA) Zome(name string) (*Zome, bool) {
	z, ok := d.Zomes[name]
	return z, ok && z != nil
}

func (d *DNA) Capability(zome, capability string) (*Capability, bool) {
	z, ok := d.Zome(zome)
	if !ok {
		return nil, false
	}
	c, ok := z.Capabilities[capability]
	return c, ok && c != nil
}

// EntryType finds an entry type in any zome; entry type names are global
// to the DNA.
func (d *DNA) EntryType(name string) (*EntryTypeDef, bool) {
	for _, z := range d.Zomes {
		if z == nil {
			continue
		}
		if t, ok := z.EntryTypes[name]; ok && t != nil {
			return t, true
		}
	}
	return nil, false
}

// RulesFor is the validation.Lookup over d.
func (d *DNA) RulesFor(entryType string) (validation.Definition, bool) {
	t, ok := d.EntryType(entryType)
	if !ok {
		return validation.Definition{}, false
	}
	return t.Validation, true
}

// Entry returns the %dna genesis entry: the canonical JSON of the
// declarative part of d.
func (d *DNA) Entry() entry.Entry {
	e, err := entry.NewJSON(entry.DNAType, d)
	if err != nil {
		panic("dna: serialize: " + err.Error())
	}
	return e
}

// Address returns the address of the %dna genesis entry.
func (d *DNA) Address() entry.Address { return d.Entry().Address() }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
