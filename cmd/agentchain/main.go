package main

import (
	"fmt"
	"io"
	"os"

	_ "xdao.co/agentchain/storage/grpccas"
	_ "xdao.co/agentchain/storage/ipfs"
	_ "xdao.co/agentchain/storage/localfs"
	_ "xdao.co/agentchain/storage/memory"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "hash":
		return cmdHash(args[1:], out, errOut)
	case "call":
		return cmdCall(args[1:], out, errOut)
	case "chain":
		return cmdChain(args[1:], out, errOut)
	case "put":
		return cmdPut(args[1:], out, errOut)
	case "get":
		return cmdGet(args[1:], out, errOut)
	case "bundle":
		return cmdBundle(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "agentchain: run zome calls against an agent's source chain")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  agentchain hash --type <entry_type> (--value <text> | <file>)")
	fmt.Fprintln(w, "  agentchain call [--config <node.yaml>] [--agent <name>] <zome> <capability> <function> [<params-json>]")
	fmt.Fprintln(w, "  agentchain chain [--config <node.yaml>] [--agent <name>]")
	fmt.Fprintln(w, "  agentchain put [--cas-config <cas.json>] --type <entry_type> (--value <text> | <file>)")
	fmt.Fprintln(w, "  agentchain get [--cas-config <cas.json>] <address>")
	fmt.Fprintln(w, "  agentchain bundle export [--config <node.yaml>] [--agent <name>] --out <file.tar>")
	fmt.Fprintln(w, "  agentchain bundle import [--config <node.yaml>] [--agent <name>] [--force] <file.tar>")
	fmt.Fprintln(w, "  agentchain key init --name <agent> [--seed-hex <64hex>] [--force] [--dir <dir>]")
	fmt.Fprintln(w, "  agentchain key export --name <agent> [--role <role>] [--dir <dir>]")
	fmt.Fprintln(w, "  agentchain key list [--dir <dir>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - call and chain serve the built-in reference zomes (test_zome, helper_zome)")
	fmt.Fprintln(w, "  - node settings come from --config and AGENTCHAIN_* environment variables")
	fmt.Fprintln(w, "  - with chain_file set, the chain checkpoint is reloaded before and saved after each call;")
	fmt.Fprintln(w, "    pair it with a persistent CAS (localfs, ipfs or grpc) in cas_config")
	fmt.Fprintln(w, "  - call results are printed as JSON; failures print a coded error to stderr")
	fmt.Fprintln(w, "  - KMS-lite stores keys under ~/.agentchain/keys/<agent> (0600 seed files)")
}
