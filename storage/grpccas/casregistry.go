package grpccas

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"xdao.co/agentchain/storage"
	"xdao.co/agentchain/storage/casregistry"
)

// Config keys, mirroring the flag names.
const (
	ConfigTarget      = "grpc-target"
	ConfigDialTimeout = "grpc-dial-timeout"
	ConfigTimeout     = "grpc-timeout"
	ConfigMaxMsgBytes = "grpc-max-msg-bytes"
)

var (
	flagTarget      string
	flagDialTimeout time.Duration
	flagTimeout     time.Duration
	flagMaxMsgBytes int
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "grpc",
		Description: "Remote entry store served by agentchain-casd",
		Usage:       casregistry.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagTarget, ConfigTarget, "", "gRPC target host:port (for --backend=grpc)")
			fs.DurationVar(&flagDialTimeout, ConfigDialTimeout, 5*time.Second, "Dial timeout (for --backend=grpc)")
			fs.DurationVar(&flagTimeout, ConfigTimeout, 0, "Per-RPC timeout (for --backend=grpc)")
			fs.IntVar(&flagMaxMsgBytes, ConfigMaxMsgBytes, 0, "Max gRPC message size in bytes (send+recv); 0 uses grpc defaults")
		},
		Open: func() (storage.CAS, func() error, error) {
			return open(flagTarget, DialOptions{Timeout: flagDialTimeout, MaxMsgBytes: flagMaxMsgBytes}, flagTimeout)
		},
		OpenConfig: func(cfg map[string]string) (storage.CAS, func() error, error) {
			opts := DialOptions{Timeout: 5 * time.Second}
			var rpcTimeout time.Duration
			var err error
			if v := cfg[ConfigDialTimeout]; v != "" {
				if opts.Timeout, err = time.ParseDuration(v); err != nil {
					return nil, nil, fmt.Errorf("grpccas: %s: %w", ConfigDialTimeout, err)
				}
			}
			if v := cfg[ConfigTimeout]; v != "" {
				if rpcTimeout, err = time.ParseDuration(v); err != nil {
					return nil, nil, fmt.Errorf("grpccas: %s: %w", ConfigTimeout, err)
				}
			}
			if v := cfg[ConfigMaxMsgBytes]; v != "" {
				if opts.MaxMsgBytes, err = strconv.Atoi(v); err != nil {
					return nil, nil, fmt.Errorf("grpccas: %s: %w", ConfigMaxMsgBytes, err)
				}
			}
			return open(cfg[ConfigTarget], opts, rpcTimeout)
		},
	})
}

func open(target string, opts DialOptions, rpcTimeout time.Duration) (storage.CAS, func() error, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, nil, fmt.Errorf("grpccas: missing --%s", ConfigTarget)
	}
	client, err := Dial(target, opts)
	if err != nil {
		return nil, nil, err
	}
	client.Timeout = rpcTimeout
	return client, client.Close, nil
}
