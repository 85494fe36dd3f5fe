package dna

import (
	"bytes"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"xdao.co/agentchain/errs"
)

// Load reads a YAML manifest and validates it. Unknown keys are rejected.
//
//	name: app
//	version: "1"
//	zomes:
//	  test_zome:
//	    capabilities:
//	      test_cap:
//	        membrane: public
//	        functions:
//	          - name: check_global
//	    entry_types:
//	      testEntryType:
//	        sharing: public
func Load(r io.Reader) (*DNA, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var d DNA
	if err := dec.Decode(&d); err != nil {
		return nil, errs.Wrap(errs.KindStructural, "DNA-101", "dna: parse manifest", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadFile is Load over the file at path.
func LoadFile(path string) (*DNA, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(bytes.NewReader(b))
}
