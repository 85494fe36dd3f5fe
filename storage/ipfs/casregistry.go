package ipfs

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"xdao.co/agentchain/storage"
	"xdao.co/agentchain/storage/casregistry"
)

// Config keys, mirroring the flag names.
const (
	ConfigBin  = "ipfs-bin"
	ConfigPath = "ipfs-path"
	ConfigPin  = "ipfs-pin"
)

var (
	flagBin  string
	flagPath string
	flagPin  bool
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "ipfs",
		Description: "Local Kubo repository via the ipfs CLI (offline)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagBin, ConfigBin, "ipfs", "Path to the ipfs binary (for --backend=ipfs)")
			fs.StringVar(&flagPath, ConfigPath, "", "IPFS_PATH for the Kubo repo; empty uses the environment (for --backend=ipfs)")
			fs.BoolVar(&flagPin, ConfigPin, true, "Pin stored blocks (for --backend=ipfs)")
		},
		Open: func() (storage.CAS, func() error, error) {
			return New(options(flagBin, flagPath, flagPin)), nil, nil
		},
		OpenConfig: func(cfg map[string]string) (storage.CAS, func() error, error) {
			pin := true
			if v := strings.TrimSpace(cfg[ConfigPin]); v != "" {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return nil, nil, err
				}
				pin = b
			}
			return New(options(cfg[ConfigBin], cfg[ConfigPath], pin)), nil, nil
		},
	})
}

func options(bin, repo string, pin bool) Options {
	opts := Options{Bin: strings.TrimSpace(bin), Pin: pin}
	if repo = strings.TrimSpace(repo); repo != "" {
		opts.Env = append(os.Environ(), "IPFS_PATH="+repo)
	}
	return opts
}
