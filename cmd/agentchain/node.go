package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"xdao.co/agentchain/chain"
	"xdao.co/agentchain/config"
	"xdao.co/agentchain/dna"
	"xdao.co/agentchain/instance"
	"xdao.co/agentchain/internal/testzome"
	"xdao.co/agentchain/keys"
	"xdao.co/agentchain/storage"
	"xdao.co/agentchain/storage/casconfig"
	"xdao.co/agentchain/storage/casregistry"
	"xdao.co/agentchain/trace"
)

// node is an instance opened from config plus the resources it holds.
type node struct {
	cfg      config.Config
	inst     *instance.Instance
	closeCAS func() error
	traceOut *os.File
}

func loadConfig(path, agent string) (config.Config, error) {
	overrides := map[string]any{}
	if agent != "" {
		overrides["agent"] = agent
	}
	return config.LoadWith(path, overrides)
}

func openCAS(path string) (storage.CAS, func() error, error) {
	cc := casconfig.Default()
	if path != "" {
		var err error
		if cc, err = casconfig.LoadFile(path); err != nil {
			return nil, nil, err
		}
	}
	return cc.Open(casregistry.UsageCLI, "")
}

func loadDNA(path string) (*dna.DNA, error) {
	if path == "" {
		return testzome.DNA()
	}
	d, err := dna.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := testzome.Bind(d); err != nil {
		return nil, err
	}
	return d, nil
}

func readCheckpoint(path string) (*chain.Checkpoint, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cp, err := chain.UnmarshalCheckpoint(b)
	if err != nil {
		return nil, fmt.Errorf("read chain file: %w", err)
	}
	return &cp, nil
}

func openNode(cfg config.Config) (*node, error) {
	return openNodeWith(cfg, nil)
}

// openNodeWith opens the node's store and builds its instance. When seed is
// set it fills the store and names the checkpoint to resume from; otherwise
// the checkpoint comes from the configured chain file.
func openNodeWith(cfg config.Config, seed func(storage.CAS) (*chain.Checkpoint, error)) (*node, error) {
	d, err := loadDNA(cfg.DNAPath)
	if err != nil {
		return nil, fmt.Errorf("load dna: %w", err)
	}
	cas, closeCAS, err := openCAS(cfg.CASConfig)
	if err != nil {
		return nil, fmt.Errorf("open cas: %w", err)
	}
	n := &node{cfg: cfg, closeCAS: closeCAS}

	var cp *chain.Checkpoint
	if seed != nil {
		cp, err = seed(cas)
	} else {
		cp, err = readCheckpoint(cfg.ChainFile)
	}
	if err != nil {
		n.close()
		return nil, err
	}

	opts := []instance.Option{
		instance.WithAgent(cfg.Agent),
		instance.WithCAS(cas),
		instance.WithMaxCallDepth(cfg.MaxCallDepth),
	}
	if cp != nil {
		opts = append(opts, instance.WithCheckpoint(*cp))
	}
	if cfg.SignHeaders {
		ks, err := keys.Open(cfg.KeyDir)
		if err != nil {
			n.close()
			return nil, err
		}
		signer, err := ks.Signer(cfg.KeyName)
		if err != nil {
			n.close()
			return nil, err
		}
		opts = append(opts, instance.WithSigner(signer))
	}
	if cfg.TraceFile != "" {
		f, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			n.close()
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		n.traceOut = f
		level, err := cfg.Level()
		if err != nil {
			n.close()
			return nil, err
		}
		opts = append(opts, instance.WithTrace(trace.New(f, trace.WithLevel(level))))
	}

	n.inst, err = instance.New(d, testzome.Runtime(), opts...)
	if err != nil {
		n.close()
		return nil, err
	}
	return n, nil
}

// save writes the chain checkpoint when a chain file is configured.
func (n *node) save() error {
	if n.cfg.ChainFile == "" {
		return nil
	}
	b, err := n.inst.Checkpoint().MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(n.cfg.ChainFile), 0o755); err != nil {
		return err
	}
	tmp := n.cfg.ChainFile + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, n.cfg.ChainFile)
}

func (n *node) close() {
	if n.traceOut != nil {
		_ = n.traceOut.Close()
	}
	if n.closeCAS != nil {
		_ = n.closeCAS()
	}
}
