// Package testzome is a reference application used by tests and the CLI
// demo: a DNA manifest plus Go handlers for every function it declares.
package testzome

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	"xdao.co/agentchain/dna"
	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/validation"
	"xdao.co/agentchain/zome"
)

// Zome and capability names declared by the manifest.
const (
	TestZome   = "test_zome"
	TestCap    = "test_cap"
	HelperZome = "helper_zome"
	HelperCap  = "internal"

	TestEntryType               = "testEntryType"
	ValidationPackageTesterType = "validation_package_tester"

	// LinkTag is the tag link_two_entries and links_roundtrip link under.
	LinkTag = "test-tag"

	// SysAgentName is the agent whose %agent_id entry check_hash_sys_entry
	// hashes.
	SysAgentName = "alex"
)

//go:embed testzome.yaml
var Manifest []byte

// DNA loads the built-in manifest with its acceptance rules bound.
func DNA() (*dna.DNA, error) {
	d, err := dna.Load(bytes.NewReader(Manifest))
	if err != nil {
		return nil, err
	}
	if err := Bind(d); err != nil {
		return nil, err
	}
	return d, nil
}

// Bind attaches the acceptance rules of both entry types to d, which must
// declare them.
func Bind(d *dna.DNA) error {
	if err := d.BindValidation(TestEntryType, validation.Definition{
		Rules: []validation.Rule{{ID: "TEST-NO-FAIL", Apply: rejectFail}},
	}); err != nil {
		return err
	}
	return d.BindValidation(ValidationPackageTesterType, validation.Definition{
		Rules: []validation.Rule{{ID: "TEST-REPORT-PACKAGE", Apply: reportPackage}},
	})
}

// Runtime returns a runtime serving every function of the manifest.
func Runtime() *zome.Runtime {
	rt := zome.NewRuntime()
	registerTestZome(rt.Zome(TestZome))
	registerHelperZome(rt.Zome(HelperZome))
	return rt
}

func rejectFail(e entry.Entry, _ *validation.Package) error {
	if e.Value == `"FAIL"` || e.Value == "FAIL" {
		return validation.Reject("FAIL content is not allowed")
	}
	return nil
}

// ValidationReport is what the validation_package_tester rule rejects with.
type ValidationReport struct {
	Package   *validation.Package `json:"package"`
	Sources   []entry.Address     `json:"sources"`
	Lifecycle string              `json:"lifecycle"`
	Action    string              `json:"action"`
}

func reportPackage(_ entry.Entry, pkg *validation.Package) error {
	sources := []entry.Address{}
	for _, h := range pkg.SourceChainHeaders {
		if h.EntryType.EntryType() == entry.AgentIDType {
			sources = append(sources, h.EntryAddress)
		}
	}
	return validation.RejectJSON(ValidationReport{
		Package:   pkg,
		Sources:   sources,
		Lifecycle: "Chain",
		Action:    "Commit",
	})
}

// Limit decodes from a JSON number or a decimal string.
type Limit int

func (l *Limit) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return fmt.Errorf("testzome: invalid limit %q", s)
		}
		*l = Limit(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil || n < 0 {
		return fmt.Errorf("testzome: invalid limit %s", b)
	}
	*l = Limit(n)
	return nil
}
