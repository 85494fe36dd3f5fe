package localfs

import (
	"flag"
	"fmt"
	"strings"

	"xdao.co/agentchain/storage"
	"xdao.co/agentchain/storage/casregistry"
)

// ConfigDir is the casconfig key (and flag name) naming the store directory.
const ConfigDir = "localfs-dir"

var flagLocalDir string

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem entry store (directory)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagLocalDir, ConfigDir, "", "Entry store directory (for --backend=localfs)")
		},
		Open: func() (storage.CAS, func() error, error) {
			return open(flagLocalDir)
		},
		OpenConfig: func(cfg map[string]string) (storage.CAS, func() error, error) {
			return open(cfg[ConfigDir])
		},
	})
}

func open(dir string) (storage.CAS, func() error, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil, fmt.Errorf("localfs: missing --%s", ConfigDir)
	}
	cas, err := New(dir)
	if err != nil {
		return nil, nil, err
	}
	return cas, nil, nil
}
