// Package capability gates every zome call: the requested function must be
// declared under the named capability of the named zome before anything is
// dispatched.
//
// Who may call is not decided here. The membrane is handed to a pluggable
// CallerCheck together with the caller identity carried in the context.
package capability

import (
	"context"
	"errors"

	"xdao.co/agentchain/dna"
	"xdao.co/agentchain/errs"
)

// ErrDenied is wrapped by Authorize when the caller check refuses a call.
var ErrDenied = errors.New("capability: caller denied")

// Caller identifies who is calling. Zome is set for nested calls made from
// zome code; Agent for calls arriving from outside the instance.
type Caller struct {
	Agent string
	Zome  string
}

// Request is what a CallerCheck decides on.
type Request struct {
	Zome       string
	Capability string
	Function   string
	Membrane   dna.Membrane
	Caller     Caller
}

// CallerCheck decides whether the caller may reach a declared function.
type CallerCheck func(ctx context.Context, req Request) error

// AllowAll admits every caller.
func AllowAll(context.Context, Request) error { return nil }

// RequireZomeCaller admits calls into Zome-membrane capabilities only from
// another zome of the same instance. Every other membrane is admitted.
func RequireZomeCaller(_ context.Context, req Request) error {
	if req.Membrane == dna.MembraneZome && req.Caller.Zome == "" {
		return errors.New("membrane Zome requires a calling zome")
	}
	return nil
}

type callerKey struct{}

// WithCaller attaches the caller identity to ctx.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller identity attached to ctx.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// Gate checks calls against one DNA.
type Gate struct {
	dna   *dna.DNA
	check CallerCheck
}

// NewGate returns a gate over d. A nil check admits every caller.
func NewGate(d *dna.DNA, check CallerCheck) *Gate {
	if check == nil {
		check = AllowAll
	}
	return &Gate{dna: d, check: check}
}

// Authorize resolves (zome, capability, fn) and runs the caller check. It
// returns the function declaration on success.
func (g *Gate) Authorize(ctx context.Context, zome, capability, fn string) (dna.FnDeclaration, error) {
	if _, ok := g.dna.Zome(zome); !ok {
		return dna.FnDeclaration{}, errs.New(errs.KindStructural, "CAP-001", "unknown zome "+zome)
	}
	c, ok := g.dna.Capability(zome, capability)
	if !ok {
		return dna.FnDeclaration{}, errs.New(errs.KindStructural, "CAP-002", "unknown capability "+zome+"/"+capability)
	}
	decl, ok := c.Function(fn)
	if !ok {
		return dna.FnDeclaration{}, errs.New(errs.KindStructural, "CAP-003", "function "+fn+" not declared in "+zome+"/"+capability)
	}

	caller, _ := CallerFrom(ctx)
	req := Request{Zome: zome, Capability: capability, Function: fn, Membrane: c.Membrane, Caller: caller}
	if err := g.check(ctx, req); err != nil {
		return dna.FnDeclaration{}, errs.Wrap(errs.KindStructural, "CAP-004", "call to "+zome+"/"+capability+"/"+fn+" denied: "+err.Error(), errors.Join(ErrDenied, err))
	}
	return decl, nil
}
