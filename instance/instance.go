// Package instance runs one agent's copy of a DNA: it owns the agent's
// source chain, entry store and link index, and dispatches zome calls
// through the capability gate into a sandbox runtime.
package instance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"xdao.co/agentchain/capability"
	"xdao.co/agentchain/chain"
	"xdao.co/agentchain/dna"
	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/errs"
	"xdao.co/agentchain/links"
	"xdao.co/agentchain/query"
	"xdao.co/agentchain/sandbox"
	"xdao.co/agentchain/storage"
	"xdao.co/agentchain/storage/memory"
	"xdao.co/agentchain/trace"
	"xdao.co/agentchain/validation"
)

var (
	ErrNotRunning     = errors.New("instance: not running")
	ErrAlreadyStarted = errors.New("instance: already started")
	ErrCallDepth      = errors.New("instance: call depth exceeded")
)

// State is the lifecycle state of an instance.
type State int32

const (
	StateCreated State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRunning:
		return "Running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Instance is safe for concurrent use once started. Commits are serialized;
// reads are not.
type Instance struct {
	dna     *dna.DNA
	runtime sandbox.Runtime
	opts    options

	store  *storage.EntryStore
	chain  *chain.Chain
	engine *validation.Engine
	links  *links.Index
	query  *query.Engine
	gate   *capability.Gate

	dnaAddr   entry.Address
	agentAddr entry.Address

	startMu sync.Mutex
	state   atomic.Int32
}

// New prepares an instance of d served by rt. The DNA is validated, checked
// against rt when rt can check itself, and frozen.
func New(d *dna.DNA, rt sandbox.Runtime, opts ...Option) (*Instance, error) {
	if d == nil {
		return nil, errs.New(errs.KindStructural, "INST-001", "instance: nil dna")
	}
	if rt == nil {
		return nil, errs.New(errs.KindStructural, "INST-002", "instance: nil runtime")
	}
	o := options{maxDepth: DefaultMaxCallDepth}
	for _, opt := range opts {
		opt(&o)
	}
	if o.agent == "" {
		return nil, errs.New(errs.KindStructural, "INST-003", "instance: missing agent name")
	}
	if o.maxDepth <= 0 {
		return nil, errs.New(errs.KindStructural, "INST-004", fmt.Sprintf("instance: invalid max call depth %d", o.maxDepth))
	}
	if o.cas == nil {
		o.cas = memory.New()
	}

	if !d.Frozen() {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	if c, ok := rt.(sandbox.Checker); ok {
		if err := c.Check(d); err != nil {
			return nil, err
		}
	}
	d.Freeze()

	store := storage.NewEntryStore(o.cas)
	var chainOpts []chain.Option
	if o.signer != nil {
		chainOpts = append(chainOpts, chain.WithSigner(o.signer))
	}
	if o.now != nil {
		chainOpts = append(chainOpts, chain.WithClock(o.now))
	}
	var c *chain.Chain
	if o.checkpoint != nil {
		var err error
		if c, err = chain.Restore(store, *o.checkpoint, chainOpts...); err != nil {
			return nil, err
		}
	} else {
		c = chain.New(store, chainOpts...)
	}

	return &Instance{
		dna:       d,
		runtime:   rt,
		opts:      o,
		store:     store,
		chain:     c,
		engine:    validation.NewEngine(c, d.RulesFor),
		links:     links.NewIndex(store),
		query:     query.NewEngine(c),
		gate:      capability.NewGate(d, o.check),
		dnaAddr:   d.Address(),
		agentAddr: entry.New(entry.AgentIDType, o.agent).Address(),
	}, nil
}

// Start moves the instance to Running. An empty chain receives its genesis
// entries (%dna, then %agent_id); a restored chain must begin with the
// genesis of this DNA and agent.
func (i *Instance) Start(ctx context.Context) error {
	i.startMu.Lock()
	defer i.startMu.Unlock()
	if i.State() == StateRunning {
		return errs.Wrap(errs.KindStructural, "INST-005", "instance: start", ErrAlreadyStarted)
	}
	ctx = i.withTrace(ctx)

	if i.chain.Len() == 0 {
		if err := i.genesis(ctx); err != nil {
			return err
		}
	} else if err := i.verifyGenesis(); err != nil {
		return err
	}
	i.state.Store(int32(StateRunning))
	trace.FromContext(ctx).Info("instance started", "dna", i.dnaAddr.String(), "agent", i.agentAddr.String(), "chain_length", i.chain.Len())
	return nil
}

func (i *Instance) genesis(ctx context.Context) error {
	if _, err := i.engine.ValidateAndCommit(ctx, i.dna.Entry()); err != nil {
		return errs.Wrap(errs.KindInternal, "INST-006", "instance: commit dna entry", err)
	}
	if _, err := i.engine.ValidateAndCommit(ctx, entry.New(entry.AgentIDType, i.opts.agent)); err != nil {
		return errs.Wrap(errs.KindInternal, "INST-006", "instance: commit agent entry", err)
	}
	return nil
}

func (i *Instance) verifyGenesis() error {
	headers := i.chain.Headers()
	if len(headers) < 2 {
		return errs.New(errs.KindStructural, "INST-007", "instance: restored chain has no genesis")
	}
	if headers[0].EntryType.EntryType() != entry.DNAType || headers[0].EntryAddress != i.dnaAddr {
		return errs.New(errs.KindStructural, "INST-007", "instance: restored chain belongs to another dna")
	}
	if headers[1].EntryType.EntryType() != entry.AgentIDType || headers[1].EntryAddress != i.agentAddr {
		return errs.New(errs.KindStructural, "INST-007", "instance: restored chain belongs to another agent")
	}
	return nil
}

type depthKey struct{}

func depthFrom(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}

func (i *Instance) withTrace(ctx context.Context) context.Context {
	if i.opts.log != nil && trace.LogFrom(ctx) == nil {
		return trace.WithLog(ctx, i.opts.log)
	}
	return ctx
}

// Call authorizes (zome, capability, fn) and runs it with params. Nested
// calls made by zome code come back through here with the depth of the
// calling chain; at most MaxCallDepth calls may be active in one chain.
func (i *Instance) Call(ctx context.Context, zome, capName, fn string, params json.RawMessage) (json.RawMessage, error) {
	if i.State() != StateRunning {
		return nil, errs.Wrap(errs.KindStructural, "INST-101", "instance: call "+zome+"/"+capName+"/"+fn, ErrNotRunning)
	}
	depth := depthFrom(ctx)
	if depth >= i.opts.maxDepth {
		return nil, errs.Wrap(errs.KindStructural, "INST-102", fmt.Sprintf("instance: call %s/%s/%s at depth %d", zome, capName, fn, depth), ErrCallDepth)
	}
	if _, err := i.gate.Authorize(ctx, zome, capName, fn); err != nil {
		return nil, err
	}

	ctx = context.WithValue(i.withTrace(ctx), depthKey{}, depth+1)
	ctx, log := trace.StartCall(ctx, zome, capName, fn)
	log.Info("call")

	out, err := i.runtime.Invoke(ctx, sandbox.Invocation{
		Zome:       zome,
		Capability: capName,
		Function:   fn,
		Params:     params,
	}, &host{inst: i, zome: zome})
	if err != nil {
		log.Info("call failed", "err", err.Error())
		return nil, err
	}
	log.Debug("call returned", "bytes", len(out))
	return out, nil
}

func (i *Instance) State() State { return State(i.state.Load()) }

func (i *Instance) DNA() *dna.DNA { return i.dna }

func (i *Instance) Chain() *chain.Chain { return i.chain }

func (i *Instance) Store() *storage.EntryStore { return i.store }

func (i *Instance) Links() *links.Index { return i.links }

func (i *Instance) Query() *query.Engine { return i.query }

// AgentAddress is the address of the %agent_id genesis entry.
func (i *Instance) AgentAddress() entry.Address { return i.agentAddr }

func (i *Instance) DNAAddress() entry.Address { return i.dnaAddr }

// Checkpoint captures the chain head so the instance can be reopened with
// WithCheckpoint over the same CAS.
func (i *Instance) Checkpoint() chain.Checkpoint { return i.chain.Checkpoint() }
