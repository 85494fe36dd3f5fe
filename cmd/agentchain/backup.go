package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"xdao.co/agentchain/backup"
	"xdao.co/agentchain/chain"
	"xdao.co/agentchain/storage"
)

func cmdBundle(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: agentchain bundle <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: export, import")
		return 2
	}
	switch args[0] {
	case "export":
		return cmdBundleExport(args[1:], out, errOut)
	case "import":
		return cmdBundleImport(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown bundle subcommand: %s\n", args[0])
		return 2
	}
}

func cmdBundleExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var configPath string
	var agent string
	var outPath string
	fs.StringVar(&configPath, "config", "", "Node config file (YAML or JSON)")
	fs.StringVar(&agent, "agent", "", "Agent name (overrides config)")
	fs.StringVar(&outPath, "out", "", "Output TAR file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if outPath == "" {
		fmt.Fprintln(errOut, "missing --out")
		return 2
	}
	cfg, err := loadConfig(configPath, agent)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	n, err := openNode(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "open: %v\n", err)
		return 1
	}
	defer n.close()
	if err := n.inst.Start(context.Background()); err != nil {
		fmt.Fprintf(errOut, "start: %v\n", err)
		return 1
	}
	if err := n.save(); err != nil {
		fmt.Fprintf(errOut, "save chain: %v\n", err)
		return 1
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(errOut, "create %s: %v\n", outPath, err)
		return 1
	}
	cp, err := backup.Export(f, n.inst.Chain())
	if err != nil {
		_ = f.Close()
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(errOut, "close %s: %v\n", outPath, err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "exported %d headers (head %s) to %s\n", cp.Length, cp.Head, outPath)
	return 0
}

func cmdBundleImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle import", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var configPath string
	var agent string
	var force bool
	fs.StringVar(&configPath, "config", "", "Node config file (YAML or JSON)")
	fs.StringVar(&agent, "agent", "", "Agent name (overrides config)")
	fs.BoolVar(&force, "force", false, "Replace an existing chain file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: agentchain bundle import [--config <node.yaml>] [--agent <name>] [--force] <file.tar>")
		return 2
	}
	cfg, err := loadConfig(configPath, agent)
	if err != nil {
		fmt.Fprintf(errOut, "config: %v\n", err)
		return 2
	}
	if cfg.ChainFile != "" && !force {
		if _, err := os.Stat(cfg.ChainFile); err == nil {
			fmt.Fprintf(errOut, "chain file %s exists (use --force to replace it)\n", cfg.ChainFile)
			return 1
		} else if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(errOut, "stat %s: %v\n", cfg.ChainFile, err)
			return 1
		}
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open %s: %v\n", fs.Arg(0), err)
		return 1
	}
	defer f.Close()

	n, err := openNodeWith(cfg, func(cas storage.CAS) (*chain.Checkpoint, error) {
		c, err := backup.Import(f, storage.NewEntryStore(cas))
		if err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
		cp := c.Checkpoint()
		return &cp, nil
	})
	if err != nil {
		fmt.Fprintf(errOut, "open: %v\n", err)
		return 1
	}
	defer n.close()

	// Start checks the imported genesis against this node's dna and agent.
	if err := n.inst.Start(context.Background()); err != nil {
		fmt.Fprintf(errOut, "start: %v\n", err)
		return 1
	}
	if err := n.save(); err != nil {
		fmt.Fprintf(errOut, "save chain: %v\n", err)
		return 1
	}
	head, _ := n.inst.Chain().Head()
	_, _ = fmt.Fprintf(out, "imported %d headers (head %s)\n", n.inst.Chain().Len(), head)
	return 0
}
