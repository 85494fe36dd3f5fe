package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/model"
	"xdao.co/agentchain/storage"
)

// readValue returns --value, or the contents of the single positional file.
func readValue(fs *flag.FlagSet, value string, valueSet bool) (string, error) {
	switch {
	case valueSet && fs.NArg() == 0:
		return value, nil
	case !valueSet && fs.NArg() == 1:
		b, err := os.ReadFile(fs.Arg(0))
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("give exactly one of --value or <file>")
	}
}

func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func cmdHash(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var entryType string
	var value string
	fs.StringVar(&entryType, "type", "", "Entry type")
	fs.StringVar(&value, "value", "", "Entry value")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if entryType == "" {
		fmt.Fprintln(errOut, "missing --type")
		return 2
	}
	v, err := readValue(fs, value, isSet(fs, "value"))
	if err != nil {
		fmt.Fprintf(errOut, "value: %v\n", err)
		return 2
	}
	_, _ = fmt.Fprintln(out, entry.Hash(entry.New(entryType, v)))
	return 0
}

func cmdPut(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var casConfig string
	var entryType string
	var value string
	fs.StringVar(&casConfig, "cas-config", "", "CAS config file (JSON or YAML); default in-memory")
	fs.StringVar(&entryType, "type", "", "Entry type")
	fs.StringVar(&value, "value", "", "Entry value")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if entryType == "" {
		fmt.Fprintln(errOut, "missing --type")
		return 2
	}
	v, err := readValue(fs, value, isSet(fs, "value"))
	if err != nil {
		fmt.Fprintf(errOut, "value: %v\n", err)
		return 2
	}

	cas, closeFn, err := openCAS(casConfig)
	if err != nil {
		fmt.Fprintf(errOut, "open cas: %v\n", err)
		return 1
	}
	defer closeFn()

	addr, err := storage.NewEntryStore(cas).Put(entry.New(entryType, v))
	if err != nil {
		fmt.Fprintf(errOut, "put: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, addr)
	return 0
}

func cmdGet(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var casConfig string
	fs.StringVar(&casConfig, "cas-config", "", "CAS config file (JSON or YAML); default in-memory")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: agentchain get [--cas-config <cas.json>] <address>")
		return 2
	}
	addr, err := entry.ParseAddress(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid address: %v\n", err)
		return 2
	}

	cas, closeFn, err := openCAS(casConfig)
	if err != nil {
		fmt.Fprintf(errOut, "open cas: %v\n", err)
		return 1
	}
	defer closeFn()

	e, ok, err := storage.NewEntryStore(cas).Get(addr)
	if err != nil {
		fmt.Fprintf(errOut, "get: %v\n", err)
		return 1
	}
	res := model.Ok[*entry.Entry](nil)
	if ok {
		res = model.Ok(&e)
	}
	b, err := entry.Marshal(res)
	if err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, string(b))
	return 0
}
