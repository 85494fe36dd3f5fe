package dna

import (
	"errors"
	"strings"
	"testing"

	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/errs"
	"xdao.co/agentchain/validation"
)

const manifest = `
name: test_app
version: "0.0.1"
uuid: 00000000-0000-4000-8000-000000000000
zomes:
  test_zome:
    description: integration test zome
    capabilities:
      test_cap:
        membrane: public
        functions:
          - name: check_global
            outputs:
              - {name: agent, type: string}
          - name: check_commit_entry
            inputs:
              - {name: entry_type, type: string}
              - {name: value, type: string}
      admin:
        membrane: Agent
        functions:
          - name: reset
    entry_types:
      testEntryType:
        description: plain test entries
      validation_package_tester:
        sharing: private
`

func TestLoad(t *testing.T) {
	d, err := Load(strings.NewReader(manifest))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Name != "test_app" {
		t.Fatalf("name = %q", d.Name)
	}
	c, ok := d.Capability("test_zome", "test_cap")
	if !ok {
		t.Fatalf("missing capability")
	}
	if c.Name != "test_cap" || c.Membrane != MembranePublic {
		t.Fatalf("capability = %+v", c)
	}
	if f, ok := c.Function("check_commit_entry"); !ok || len(f.Inputs) != 2 {
		t.Fatalf("function declaration = %+v, %v", f, ok)
	}
	if a, _ := d.Capability("test_zome", "admin"); a.Membrane != MembraneAgent {
		t.Fatalf("membrane = %q", a.Membrane)
	}
	et, ok := d.EntryType("validation_package_tester")
	if !ok || et.Sharing != SharingPrivate || et.Name != "validation_package_tester" {
		t.Fatalf("entry type = %+v", et)
	}
	if et, _ := d.EntryType("testEntryType"); et.Sharing != SharingPublic {
		t.Fatalf("default sharing = %q", et.Sharing)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":       "name: a\nbogus: 1\nzomes: {z: {}}\n",
		"missing name":      "zomes: {z: {}}\n",
		"no zomes":          "name: a\n",
		"bad membrane":      "name: a\nzomes: {z: {capabilities: {c: {membrane: everyone}}}}\n",
		"duplicate fn":      "name: a\nzomes: {z: {capabilities: {c: {membrane: public, functions: [{name: f}, {name: f}]}}}}\n",
		"system type":       "name: a\nzomes: {z: {entry_types: {'%agent_id': {}}}}\n",
		"type in two zomes": "name: a\nzomes: {y: {entry_types: {t: {}}}, z: {entry_types: {t: {}}}}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(strings.NewReader(doc))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errs.IsKind(err, errs.KindStructural) {
				t.Fatalf("expected structural error, got %v", err)
			}
		})
	}
}

func TestBindValidationAndFreeze(t *testing.T) {
	d, err := Load(strings.NewReader(manifest))
	if err != nil {
		t.Fatal(err)
	}
	reject := validation.Rule{ID: "T-1", Apply: func(entry.Entry, *validation.Package) error {
		return errors.New("no")
	}}
	if err := d.BindValidation("testEntryType", validation.Definition{Rules: []validation.Rule{reject}}); err != nil {
		t.Fatalf("BindValidation: %v", err)
	}
	if err := d.BindValidation("nope", validation.Definition{}); err == nil {
		t.Fatalf("expected unknown entry type error")
	}

	def, ok := d.RulesFor("testEntryType")
	if !ok || len(def.Rules) != 1 || def.Rules[0].ID != "T-1" {
		t.Fatalf("RulesFor = %+v, %v", def, ok)
	}
	if _, ok := d.RulesFor("nope"); ok {
		t.Fatalf("RulesFor found an undeclared type")
	}

	d.Freeze()
	if err := d.BindValidation("testEntryType", validation.Definition{}); err == nil {
		t.Fatalf("expected frozen error")
	}
}

func TestEntry_IsStableAndDeclarative(t *testing.T) {
	a, _ := Load(strings.NewReader(manifest))
	b, _ := Load(strings.NewReader(manifest))
	_ = b.BindValidation("testEntryType", validation.Definition{Rules: []validation.Rule{{ID: "x"}}})

	if a.Address() != b.Address() {
		t.Fatalf("dna address depends on bound rules or map order")
	}
	e := a.Entry()
	if e.Type != entry.DNAType {
		t.Fatalf("entry type = %q", e.Type)
	}
	if !strings.Contains(e.Value, `"name":"test_app"`) || !strings.Contains(e.Value, `"membrane":"Public"`) {
		t.Fatalf("dna entry value = %s", e.Value)
	}
}
