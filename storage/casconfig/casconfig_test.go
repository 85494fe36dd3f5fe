package casconfig

import (
	"os"
	"path/filepath"
	"testing"

	"xdao.co/agentchain/storage"
	"xdao.co/agentchain/storage/casregistry"
	_ "xdao.co/agentchain/storage/localfs"
	"xdao.co/agentchain/storage/memory"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", Default(), true},
		{"empty", Config{}, false},
		{"missing name", Config{Backends: []BackendConfig{{}}}, false},
		{"duplicate id", Config{Backends: []BackendConfig{{Name: "memory"}, {Name: "memory"}}}, false},
		{"aliased duplicate", Config{Backends: []BackendConfig{{Name: "memory"}, {Name: "memory", ID: "second"}}}, true},
		{"bad policy", Config{WritePolicy: "some", Backends: []BackendConfig{{Name: "memory"}}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err == nil) != tc.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestLoadFile_JSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "cas.json")
	yamlPath := filepath.Join(dir, "cas.yaml")
	if err := os.WriteFile(jsonPath, []byte(`{"write_policy":"all","backends":[{"name":"memory"},{"name":"localfs","config":{"localfs-dir":"x"}}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(yamlPath, []byte("write_policy: all\nbackends:\n  - name: memory\n  - name: localfs\n    config:\n      localfs-dir: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{jsonPath, yamlPath} {
		cfg, err := LoadFile(p)
		if err != nil {
			t.Fatalf("LoadFile(%s): %v", p, err)
		}
		if cfg.WritePolicy != "all" || len(cfg.Backends) != 2 || cfg.Backends[1].Config["localfs-dir"] != "x" {
			t.Fatalf("unexpected config from %s: %+v", p, cfg)
		}
	}
}

func TestOpen_Policies(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Backends: []BackendConfig{
		{Name: "memory"},
		{Name: "localfs", Config: map[string]string{"localfs-dir": dir}},
	}}

	cas, closeFn, err := cfg.Open(casregistry.UsageCLI, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if _, ok := cas.(storage.MultiCAS); !ok {
		t.Fatalf("expected MultiCAS for write_policy first, got %T", cas)
	}
	multi := cas.(storage.MultiCAS)
	if _, ok := multi.Adapters[0].(*memory.CAS); !ok {
		t.Fatalf("expected memory backend first")
	}

	cas, _, err = cfg.Open(casregistry.UsageCLI, "localfs")
	if err != nil {
		t.Fatalf("Open preferred: %v", err)
	}
	if _, ok := cas.(storage.MultiCAS).Adapters[0].(*memory.CAS); ok {
		t.Fatalf("expected preferred backend to be first")
	}

	cfg.WritePolicy = "all"
	cas, _, err = cfg.Open(casregistry.UsageCLI, "")
	if err != nil {
		t.Fatalf("Open all: %v", err)
	}
	rep, ok := cas.(storage.ReplicatingCAS)
	if !ok {
		t.Fatalf("expected ReplicatingCAS, got %T", cas)
	}
	_, per, err := rep.PutAll([]byte(`{"value":"alex","entry_type":"%agent_id"}`))
	if err != nil {
		t.Fatalf("PutAll: %v", err)
	}
	for name, id := range per {
		if id.String() != "QmQw3V41bAWkQA9kwpNfU3ZDNzr9YW4p9RV4QHhFD3BkqA" {
			t.Fatalf("backend %s stored under %s", name, id)
		}
	}

	if _, _, err := cfg.Open(casregistry.UsageCLI, "missing"); err == nil {
		t.Fatalf("expected unknown preferred backend error")
	}
}

func TestOpen_SingleBackendIsUnwrapped(t *testing.T) {
	cas, _, err := Default().Open(casregistry.UsageCLI, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := cas.(*memory.CAS); !ok {
		t.Fatalf("expected *memory.CAS, got %T", cas)
	}
}
