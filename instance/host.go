package instance

import (
	"context"
	"encoding/json"

	"xdao.co/agentchain/capability"
	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/errs"
	"xdao.co/agentchain/query"
	"xdao.co/agentchain/sandbox"
	"xdao.co/agentchain/trace"
)

// host is the sandbox.Host handed to one invocation of a function in zome.
type host struct {
	inst *Instance
	zome string
}

var _ sandbox.Host = (*host)(nil)

func (h *host) AgentAddress() entry.Address { return h.inst.agentAddr }

func (h *host) DNAAddress() entry.Address { return h.inst.dnaAddr }

// CommitEntry commits app entries only; system entries are written by the
// instance itself.
func (h *host) CommitEntry(ctx context.Context, e entry.Entry) (entry.Address, error) {
	if e.IsSystem() {
		return "", errs.New(errs.KindStructural, "HOST-001", "zome "+h.zome+" may not commit system entry type "+e.Type)
	}
	return h.inst.engine.ValidateAndCommit(ctx, e)
}

func (h *host) GetEntry(_ context.Context, addr entry.Address) (entry.Entry, bool, error) {
	return h.inst.store.Get(addr)
}

func (h *host) HashEntry(e entry.Entry) entry.Address { return entry.Hash(e) }

func (h *host) LinkEntries(ctx context.Context, base, target entry.Address, tag string) error {
	if err := h.inst.links.Link(base, target, tag); err != nil {
		return err
	}
	trace.FromContext(ctx).Debug("link", "base", base.String(), "target", target.String(), "tag", tag)
	return nil
}

func (h *host) GetLinks(_ context.Context, base entry.Address, tag string) []entry.Address {
	return h.inst.links.LinksFor(base, tag)
}

func (h *host) Query(_ context.Context, entryType string, opts query.Options) []entry.Address {
	return h.inst.query.Query(entryType, opts)
}

// Call re-enters the dispatcher synchronously with the calling zome as the
// caller.
func (h *host) Call(ctx context.Context, zome, capName, fn string, params json.RawMessage) (json.RawMessage, error) {
	caller, _ := capability.CallerFrom(ctx)
	if caller.Agent == "" {
		caller.Agent = h.inst.opts.agent
	}
	caller.Zome = h.zome
	return h.inst.Call(capability.WithCaller(ctx, caller), zome, capName, fn, params)
}

func (h *host) Debug(ctx context.Context, msg string) {
	trace.FromContext(ctx).Debug("zome debug", "zome", h.zome, "msg", msg)
}
