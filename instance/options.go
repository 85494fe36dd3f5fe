package instance

import (
	"time"

	"xdao.co/agentchain/capability"
	"xdao.co/agentchain/chain"
	"xdao.co/agentchain/keys"
	"xdao.co/agentchain/storage"
	"xdao.co/agentchain/trace"
)

// DefaultMaxCallDepth bounds nested zome calls unless WithMaxCallDepth says
// otherwise.
const DefaultMaxCallDepth = 16

type options struct {
	cas        storage.CAS
	agent      string
	check      capability.CallerCheck
	maxDepth   int
	signer     keys.Signer
	now        func() time.Time
	log        *trace.Log
	checkpoint *chain.Checkpoint
}

type Option func(*options)

// WithCAS stores entries and headers in cas instead of a fresh in-memory
// store.
func WithCAS(cas storage.CAS) Option {
	return func(o *options) { o.cas = cas }
}

// WithAgent names the agent the instance runs for. It becomes the value of
// the %agent_id genesis entry.
func WithAgent(name string) Option {
	return func(o *options) { o.agent = name }
}

// WithCallerCheck decides who may reach declared functions.
func WithCallerCheck(check capability.CallerCheck) Option {
	return func(o *options) { o.check = check }
}

func WithMaxCallDepth(n int) Option {
	return func(o *options) { o.maxDepth = n }
}

// WithSigner signs every header's entry address.
func WithSigner(s keys.Signer) Option {
	return func(o *options) { o.signer = s }
}

// WithClock timestamps headers.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithTrace records call traces into l for calls whose context carries no
// Log of its own.
func WithTrace(l *trace.Log) Option {
	return func(o *options) { o.log = l }
}

// WithCheckpoint reopens the chain recorded by cp over the configured CAS
// instead of starting an empty one.
func WithCheckpoint(cp chain.Checkpoint) Option {
	return func(o *options) { o.checkpoint = &cp }
}
