// Package query answers "which entries of this type has the agent
// committed", in chain order.
package query

import (
	"xdao.co/agentchain/chain"
	"xdao.co/agentchain/entry"
)

// Options bound a query. A zero Limit is unbounded.
type Options struct {
	Limit  int
	Newest bool
}

// Engine queries one chain.
type Engine struct {
	chain *chain.Chain
}

func NewEngine(c *chain.Chain) *Engine {
	return &Engine{chain: c}
}

// Query returns the addresses of entries of entryType, oldest first (newest
// first with opts.Newest), following the type-scoped header links.
//
// An address committed more than once is reported once, at the position of
// its first commit in the walk order.
func (q *Engine) Query(entryType string, opts Options) []entry.Address {
	headers := q.chain.HeadersOfType(entryType)
	if opts.Newest {
		for l, r := 0, len(headers)-1; l < r; l, r = l+1, r-1 {
			headers[l], headers[r] = headers[r], headers[l]
		}
	}

	out := []entry.Address{}
	seen := make(map[entry.Address]struct{}, len(headers))
	for _, h := range headers {
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
		if _, dup := seen[h.EntryAddress]; dup {
			continue
		}
		seen[h.EntryAddress] = struct{}{}
		out = append(out, h.EntryAddress)
	}
	return out
}
