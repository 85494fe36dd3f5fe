package validation

import (
	"context"

	"github.com/sasha-s/go-deadlock"

	"xdao.co/agentchain/chain"
	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/errs"
	"xdao.co/agentchain/trace"
)

// Engine validates and commits entries to one chain. Commits are serialized
// by the engine's commit lock: reading the head, building the package,
// storing the entry and appending the header happen as one unit. Reads on the
// chain and store never take the lock.
type Engine struct {
	chain  *chain.Chain
	lookup Lookup
	mu     *deadlock.Mutex
}

// NewEngine returns an engine committing to c with rules from lookup.
func NewEngine(c *chain.Chain, lookup Lookup) *Engine {
	if lookup == nil {
		lookup = func(string) (Definition, bool) { return Definition{}, false }
	}
	return &Engine{chain: c, lookup: lookup, mu: &deadlock.Mutex{}}
}

// Chain returns the chain the engine commits to.
func (en *Engine) Chain() *chain.Chain { return en.chain }

// ValidateAndCommit hashes e, prepares its header, validates it against the
// acceptance rules of its type and, if accepted, stores e and appends the
// header. On rejection it returns an *Error and commits nothing.
//
// System entries (%agent_id, %dna) bypass app rules. Committing content that
// is already stored still appends a new header.
func (en *Engine) ValidateAndCommit(ctx context.Context, e entry.Entry) (entry.Address, error) {
	log := trace.FromContext(ctx)

	def, err := en.definition(e.Type)
	if err != nil {
		return "", err
	}

	en.mu.Lock()
	defer en.mu.Unlock()

	addr := entry.Hash(e)
	h, err := en.chain.Prepare(e.Type, addr)
	if err != nil {
		return "", err
	}

	if len(def.Rules) > 0 {
		pkg, err := en.pkg(h, e, def)
		if err != nil {
			return "", err
		}
		if err := Run(e, pkg, def.Rules); err != nil {
			log.Info("commit rejected", "entry_type", e.Type, "address", addr.String(), "err", err.Error())
			return "", err
		}
	}

	stored, err := en.chain.Store().Put(e)
	if err != nil {
		return "", err
	}
	if stored != addr {
		return "", errs.New(errs.KindInternal, "VAL-INTERNAL-003", "store address "+stored.String()+" differs from hash "+addr.String())
	}
	headerAddr, err := en.chain.Append(h)
	if err != nil {
		return "", err
	}
	log.Debug("commit", "entry_type", e.Type, "address", addr.String(), "header", headerAddr.String())
	return addr, nil
}

// Validate runs the acceptance rules for e against the current chain without
// committing anything.
func (en *Engine) Validate(ctx context.Context, e entry.Entry) error {
	def, err := en.definition(e.Type)
	if err != nil {
		return err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	h, err := en.chain.Prepare(e.Type, entry.Hash(e))
	if err != nil {
		return err
	}
	pkg, err := en.pkg(h, e, def)
	if err != nil {
		return err
	}
	return Run(e, pkg, def.Rules)
}

func (en *Engine) definition(entryType string) (Definition, error) {
	if entry.IsSystemType(entryType) {
		switch entryType {
		case entry.AgentIDType, entry.DNAType:
			return Definition{}, nil
		default:
			return Definition{}, errs.New(errs.KindStructural, "VAL-001", "unknown system entry type "+entryType)
		}
	}
	if entryType == "" {
		return Definition{}, errs.New(errs.KindStructural, "VAL-002", "missing entry type")
	}
	def, ok := en.lookup(entryType)
	if !ok {
		return Definition{}, errs.New(errs.KindStructural, "VAL-003", "entry type not declared in DNA: "+entryType)
	}
	return def, nil
}

// pkg builds the validation package for candidate header h: every prior
// header and entry except the %dna genesis pair. Callers hold the commit
// lock, so the chain cannot move underneath.
func (en *Engine) pkg(h chain.Header, e entry.Entry, def Definition) (*Package, error) {
	all := en.chain.Headers()
	headers := make([]chain.Header, 0, len(all))
	entries := make([]entry.Entry, 0, len(all))
	for _, ph := range all {
		// The DNA genesis entry is not agent state.
		if ph.EntryType.EntryType() == entry.DNAType {
			continue
		}
		headers = append(headers, ph)
		pe, ok, err := en.chain.Store().Get(ph.EntryAddress)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.New(errs.KindInternal, "VAL-INTERNAL-004", "chain references missing entry "+ph.EntryAddress.String())
		}
		entries = append(entries, pe)
	}
	pkg := &Package{
		ChainHeader:        h,
		SourceChainEntries: entries,
		SourceChainHeaders: headers,
	}
	if def.Custom != nil {
		custom, err := def.Custom(e)
		if err != nil {
			return nil, errs.Wrap(errs.KindInternal, "VAL-INTERNAL-005", "build custom package data", err)
		}
		pkg.Custom = custom
	}
	return pkg, nil
}
