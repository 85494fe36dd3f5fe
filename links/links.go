// Package links is the secondary index of tagged associations between
// stored entries.
//
// A link is a set member keyed by (base, target, tag): inserting the same
// triple twice is a no-op. Enumeration order is unspecified.
package links

import (
	"errors"

	"github.com/sasha-s/go-deadlock"

	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/errs"
)

var (
	ErrBaseNotFound   = errors.New("links: base entry not found")
	ErrTargetNotFound = errors.New("links: target entry not found")
)

// Resolver reports whether an address resolves to stored content.
type Resolver interface {
	Has(addr entry.Address) bool
}

// Link is one (base, target, tag) association.
type Link struct {
	Base   entry.Address `json:"base"`
	Target entry.Address `json:"target"`
	Tag    string        `json:"tag"`
}

// Index holds links for one instance. Reads run concurrently; writes are
// serialized.
type Index struct {
	store Resolver

	mu deadlock.RWMutex
	// base -> tag -> set of targets
	byBase map[entry.Address]map[string]map[entry.Address]struct{}
	n      int
}

// NewIndex returns an empty index whose endpoints are checked against store.
func NewIndex(store Resolver) *Index {
	return &Index{
		store:  store,
		byBase: map[entry.Address]map[string]map[entry.Address]struct{}{},
	}
}

// Link records (base, target, tag). Both endpoints must already be stored.
func (x *Index) Link(base, target entry.Address, tag string) error {
	if !x.store.Has(base) {
		return errs.Wrap(errs.KindLink, "LINK-001", "link base "+base.String()+" not found", ErrBaseNotFound)
	}
	if !x.store.Has(target) {
		return errs.Wrap(errs.KindLink, "LINK-002", "link target "+target.String()+" not found", ErrTargetNotFound)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	tags, ok := x.byBase[base]
	if !ok {
		tags = map[string]map[entry.Address]struct{}{}
		x.byBase[base] = tags
	}
	targets, ok := tags[tag]
	if !ok {
		targets = map[entry.Address]struct{}{}
		tags[tag] = targets
	}
	if _, dup := targets[target]; dup {
		return nil
	}
	targets[target] = struct{}{}
	x.n++
	return nil
}

// LinksFor returns the targets linked from base under tag, or under any tag
// when tag is empty. The result is a set in no particular order.
func (x *Index) LinksFor(base entry.Address, tag string) []entry.Address {
	x.mu.RLock()
	defer x.mu.RUnlock()

	tags := x.byBase[base]
	out := []entry.Address{}
	if tag != "" {
		for t := range tags[tag] {
			out = append(out, t)
		}
		return out
	}
	seen := map[entry.Address]struct{}{}
	for _, targets := range tags {
		for t := range targets {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// Has reports whether the exact triple is present.
func (x *Index) Has(base, target entry.Address, tag string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	_, ok := x.byBase[base][tag][target]
	return ok
}

// Len returns the number of distinct links.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.n
}
