// Package validation assembles the evidence a validator needs and commits an
// entry only if every acceptance rule of its type passes.
package validation

import (
	"encoding/json"

	"xdao.co/agentchain/chain"
	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/errs"
)

// Package is the snapshot handed to acceptance rules: the candidate's own
// header plus every prior entry and header, oldest first. It is rebuilt for
// every attempt and never stored.
type Package struct {
	ChainHeader        chain.Header    `json:"chain_header"`
	SourceChainEntries []entry.Entry   `json:"source_chain_entries"`
	SourceChainHeaders []chain.Header  `json:"source_chain_headers"`
	Custom             json.RawMessage `json:"custom"`
}

// Rule is one named acceptance check.
//
// ID must be stable across versions. Apply must be deterministic and free of
// side effects; a non-nil error rejects the entry.
type Rule struct {
	ID    string
	Apply func(e entry.Entry, pkg *Package) error
}

// Definition is the acceptance policy of one entry type.
type Definition struct {
	Rules []Rule
	// Custom optionally adds type-specific data to the package.
	Custom func(e entry.Entry) (json.RawMessage, error)
}

// Lookup resolves the acceptance policy of an app entry type.
type Lookup func(entryType string) (Definition, bool)

func (r Rule) apply(e entry.Entry, pkg *Package) error {
	if r.Apply == nil {
		return errs.New(errs.KindInternal, "VAL-INTERNAL-001", "nil rule Apply")
	}
	return r.Apply(e, pkg)
}

// Run evaluates rules in order and returns the first rejection as an *Error.
func Run(e entry.Entry, pkg *Package, rules []Rule) error {
	for _, r := range rules {
		err := r.apply(e, pkg)
		if err == nil {
			continue
		}
		if errs.KindOf(err) == errs.KindInternal {
			return err
		}
		return asRejection(r.ID, err)
	}
	return nil
}

// RunAll evaluates every rule and returns all rejections in rule order.
func RunAll(e entry.Entry, pkg *Package, rules []Rule) []error {
	var out []error
	for _, r := range rules {
		if err := r.apply(e, pkg); err != nil {
			out = append(out, asRejection(r.ID, err))
		}
	}
	return out
}

// Reject returns a rejection carrying reason.
func Reject(reason string) error {
	return &Error{Reason: reason}
}

// RejectJSON is Reject with the JSON encoding of v as the reason.
func RejectJSON(v any) error {
	b, err := entry.Marshal(v)
	if err != nil {
		return errs.Wrap(errs.KindInternal, "VAL-INTERNAL-002", "encode rejection", err)
	}
	return &Error{Reason: string(b)}
}
