// Package chain implements an agent's source chain: an append-only,
// hash-linked sequence of headers, each referencing one entry.
//
// Header n links to the address of header n-1, and to the previous header of
// the same entry type, so a type-scoped walk never scans the whole chain.
// Headers are stored in the entry store next to the entries they reference.
package chain

import (
	"time"

	"github.com/sasha-s/go-deadlock"

	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/errs"
	"xdao.co/agentchain/keys"
	"xdao.co/agentchain/storage"
)

// Chain is one agent's source chain. Reads run concurrently with each
// other; Append is atomic with respect to other appends and readers never
// observe a partial header.
type Chain struct {
	store  *storage.EntryStore
	signer keys.Signer
	now    func() time.Time

	mu         deadlock.RWMutex
	headers    []Header
	addrs      []entry.Address
	index      map[entry.Address]int
	lastOfType map[string]int
}

type Option func(*Chain)

// WithSigner signs each header's entry address with s.
func WithSigner(s keys.Signer) Option {
	return func(c *Chain) { c.signer = s }
}

// WithClock stamps headers with now() in RFC 3339 form. Without a clock the
// timestamp is empty and header addresses are reproducible.
func WithClock(now func() time.Time) Option {
	return func(c *Chain) { c.now = now }
}

// New returns an empty chain whose headers are stored in store.
func New(store *storage.EntryStore, opts ...Option) *Chain {
	c := &Chain{
		store:      store,
		index:      map[entry.Address]int{},
		lastOfType: map[string]int{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the entry store the chain writes headers to.
func (c *Chain) Store() *storage.EntryStore { return c.store }

// Signer returns the header signer, or nil.
func (c *Chain) Signer() keys.Signer { return c.signer }

// Prepare builds the header that would record entryAddress as the next link
// of the chain. The header only becomes part of the chain through Append.
func (c *Chain) Prepare(entryType string, entryAddress entry.Address) (Header, error) {
	h := Header{
		EntryType:    HeaderTypeFor(entryType),
		EntryAddress: entryAddress,
	}
	if c.signer != nil {
		sig, err := c.signer.Sign([]byte(entryAddress))
		if err != nil {
			return Header{}, errs.Wrap(errs.KindInternal, "CHAIN-001", "sign header", err)
		}
		h.EntrySignature = sig
	}
	if c.now != nil {
		h.Timestamp = c.now().UTC().Format(time.RFC3339)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if n := len(c.addrs); n > 0 {
		h.Link = addrPtr(c.addrs[n-1])
	}
	if i, ok := c.lastOfType[entryType]; ok {
		h.LinkSameType = addrPtr(c.addrs[i])
	}
	return h, nil
}

// Append stores h and makes it the new head. It fails with ErrForked unless
// h links to the current head and to the current last header of its type,
// so two headers prepared against the same head can never both land.
func (c *Chain) Append(h Header) (entry.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var head entry.Address
	if n := len(c.addrs); n > 0 {
		head = c.addrs[n-1]
	}
	if deref(h.Link) != head {
		return "", errs.Wrap(errs.KindInternal, "CHAIN-002", "append: link "+string(deref(h.Link))+" is not head "+string(head), ErrForked)
	}
	typ := h.EntryType.EntryType()
	var sameType entry.Address
	if i, ok := c.lastOfType[typ]; ok {
		sameType = c.addrs[i]
	}
	if deref(h.LinkSameType) != sameType {
		return "", errs.Wrap(errs.KindInternal, "CHAIN-003", "append: stale same-type link for "+typ, ErrForked)
	}

	addr, err := c.store.PutRaw(h.Bytes())
	if err != nil {
		return "", err
	}
	c.push(h, addr)
	return addr, nil
}

func (c *Chain) push(h Header, addr entry.Address) {
	c.index[addr] = len(c.headers)
	c.lastOfType[h.EntryType.EntryType()] = len(c.headers)
	c.headers = append(c.headers, h)
	c.addrs = append(c.addrs, addr)
}

// Head returns the address of the most recent header.
func (c *Chain) Head() (entry.Address, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.addrs) == 0 {
		return "", false
	}
	return c.addrs[len(c.addrs)-1], true
}

func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.headers)
}

// Headers returns every header, oldest first.
func (c *Chain) Headers() []Header {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Header(nil), c.headers...)
}

// Header returns the header stored at addr if it is part of this chain.
func (c *Chain) Header(addr entry.Address) (Header, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.index[addr]
	if !ok {
		return Header{}, false
	}
	return c.headers[i], true
}

// HeadersOfType returns the headers of one entry type, oldest first, by
// following LinkSameType back from the newest one.
func (c *Chain) HeadersOfType(entryType string) []Header {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.lastOfType[entryType]
	if !ok {
		return nil
	}
	var out []Header
	for {
		h := c.headers[i]
		out = append(out, h)
		if h.LinkSameType == nil {
			break
		}
		i = c.index[*h.LinkSameType]
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}
