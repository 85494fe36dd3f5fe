package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"xdao.co/agentchain/capability"
	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/model"
)

func cmdCall(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var configPath string
	var agent string
	fs.StringVar(&configPath, "config", "", "Node config file (YAML or JSON)")
	fs.StringVar(&agent, "agent", "", "Agent name (overrides config)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 3 && fs.NArg() != 4 {
		fmt.Fprintln(errOut, "usage: agentchain call [--config <node.yaml>] [--agent <name>] <zome> <capability> <function> [<params-json>]")
		return 2
	}
	params := json.RawMessage(`{}`)
	if fs.NArg() == 4 {
		params = json.RawMessage(fs.Arg(3))
		if !json.Valid(params) {
			fmt.Fprintln(errOut, "invalid params: not JSON")
			return 2
		}
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

	ctx := capability.WithCaller(context.Background(), capability.Caller{Agent: cfg.Agent})
	if err := n.inst.Start(ctx); err != nil {
		fmt.Fprintf(errOut, "start: %v\n", err)
		return 1
	}

	result, callErr := n.inst.Call(ctx, fs.Arg(0), fs.Arg(1), fs.Arg(2), params)
	if err := n.save(); err != nil {
		fmt.Fprintf(errOut, "save chain: %v\n", err)
		return 1
	}
	if callErr != nil {
		b, _ := entry.Marshal(model.FromError(callErr))
		fmt.Fprintln(errOut, string(b))
		return 1
	}
	_, _ = fmt.Fprintln(out, string(result))
	return 0
}

func cmdChain(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("chain", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var configPath string
	var agent string
	fs.StringVar(&configPath, "config", "", "Node config file (YAML or JSON)")
	fs.StringVar(&agent, "agent", "", "Agent name (overrides config)")

	if err := fs.Parse(args); err != nil {
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

	// One header per line, oldest first.
	for _, h := range n.inst.Chain().Headers() {
		_, _ = fmt.Fprintf(out, "%s %s\n", h.Address(), h.Bytes())
	}
	return 0
}
