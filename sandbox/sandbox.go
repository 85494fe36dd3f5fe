// Package sandbox is the boundary between an instance and the environment
// that runs zome code.
//
// The environment is a black box: it receives an Invocation and a Host, and
// returns a JSON result or an error. The Host is the only channel through
// which zome code may observe or change instance state.
package sandbox

import (
	"context"
	"encoding/json"

	"xdao.co/agentchain/dna"
	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/query"
)

// Invocation is one resolved, authorized call.
type Invocation struct {
	Zome       string
	Capability string
	Function   string
	Params     json.RawMessage
}

// Host exposes instance state to running zome code. A Host is bound to one
// invocation; Call re-enters the instance's dispatcher synchronously.
type Host interface {
	AgentAddress() entry.Address
	DNAAddress() entry.Address

	// CommitEntry validates e against its type's rules and appends it to
	// the chain. A rejection is returned as a *validation.Error.
	CommitEntry(ctx context.Context, e entry.Entry) (entry.Address, error)
	// GetEntry returns ok == false for an address that was never stored.
	GetEntry(ctx context.Context, addr entry.Address) (e entry.Entry, ok bool, err error)
	HashEntry(e entry.Entry) entry.Address

	LinkEntries(ctx context.Context, base, target entry.Address, tag string) error
	GetLinks(ctx context.Context, base entry.Address, tag string) []entry.Address
	Query(ctx context.Context, entryType string, opts query.Options) []entry.Address

	Call(ctx context.Context, zome, capability, fn string, params json.RawMessage) (json.RawMessage, error)
	Debug(ctx context.Context, msg string)
}

// Runtime runs zome functions.
type Runtime interface {
	Invoke(ctx context.Context, inv Invocation, host Host) (json.RawMessage, error)
}

// RuntimeFunc adapts a function to Runtime.
type RuntimeFunc func(ctx context.Context, inv Invocation, host Host) (json.RawMessage, error)

func (f RuntimeFunc) Invoke(ctx context.Context, inv Invocation, host Host) (json.RawMessage, error) {
	return f(ctx, inv, host)
}

// Checker is implemented by runtimes that can verify, before any call, that
// they serve exactly the functions d declares.
type Checker interface {
	Check(d *dna.DNA) error
}
