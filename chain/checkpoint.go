package chain

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/errs"
	"xdao.co/agentchain/storage"
)

// CheckpointVersion is the current checkpoint schema version.
const CheckpointVersion = 1

// Checkpoint is the minimal state needed to reopen a chain over a persistent
// entry store: the head address and the expected length. Everything else is
// recovered from the stored headers.
type Checkpoint struct {
	Version int           `cbor:"1,keyasint"`
	Head    entry.Address `cbor:"2,keyasint,omitempty"`
	Length  int           `cbor:"3,keyasint"`
}

// checkpointWire has Checkpoint's fields and none of its methods, so the
// CBOR codec does not call back into MarshalBinary.
type checkpointWire Checkpoint

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("chain: CBOR encoder initialization failed: " + err.Error())
	}
}

// Checkpoint captures the chain's current head.
func (c *Chain) Checkpoint() Checkpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := Checkpoint{Version: CheckpointVersion, Length: len(c.addrs)}
	if n := len(c.addrs); n > 0 {
		cp.Head = c.addrs[n-1]
	}
	return cp
}

// MarshalBinary encodes cp with CBOR Core Deterministic Encoding.
func (cp Checkpoint) MarshalBinary() ([]byte, error) {
	return encMode.Marshal(checkpointWire(cp))
}

// UnmarshalCheckpoint decodes a checkpoint written by MarshalBinary.
func UnmarshalCheckpoint(b []byte) (Checkpoint, error) {
	var w checkpointWire
	if err := cbor.Unmarshal(b, &w); err != nil {
		return Checkpoint{}, errs.Wrap(errs.KindStructural, "CHAIN-101", "malformed checkpoint", err)
	}
	cp := Checkpoint(w)
	if cp.Version != CheckpointVersion {
		return Checkpoint{}, errs.New(errs.KindStructural, "CHAIN-102", fmt.Sprintf("unsupported checkpoint version %d", cp.Version))
	}
	if cp.Length < 0 {
		return Checkpoint{}, errs.New(errs.KindStructural, "CHAIN-109", fmt.Sprintf("negative checkpoint length %d", cp.Length))
	}
	return cp, nil
}

// Restore rebuilds a chain from the headers in store, walking back from
// cp.Head. Every header must be present, parse, and link to its predecessor,
// and the walk must end at a header with no link after exactly cp.Length
// steps.
func Restore(store *storage.EntryStore, cp Checkpoint, opts ...Option) (*Chain, error) {
	if cp.Length < 0 {
		return nil, errs.New(errs.KindStructural, "CHAIN-109", fmt.Sprintf("negative checkpoint length %d", cp.Length))
	}
	c := New(store, opts...)
	if cp.Length == 0 {
		if cp.Head != "" {
			return nil, errs.Wrap(errs.KindStorage, "CHAIN-103", "empty checkpoint names a head", ErrBrokenLink)
		}
		return c, nil
	}

	// Collected newest first; the slices grow with the headers actually read.
	var headers []Header
	var addrs []entry.Address
	for next := cp.Head; next != ""; {
		if len(headers) == cp.Length {
			return nil, errs.Wrap(errs.KindStorage, "CHAIN-103", "chain is longer than the checkpoint", ErrBrokenLink)
		}
		b, ok, err := store.GetRaw(next)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.Wrap(errs.KindStorage, "CHAIN-104", "missing header "+next.String(), ErrBrokenLink)
		}
		h, err := parseHeader(b)
		if err != nil {
			return nil, errs.Wrap(errs.KindStorage, "CHAIN-105", "malformed header "+next.String(), err)
		}
		if h.Address() != next {
			return nil, errs.Wrap(errs.KindStorage, "CHAIN-106", "header "+next.String()+" is not canonical", ErrBrokenLink)
		}
		if !store.Has(h.EntryAddress) {
			return nil, errs.Wrap(errs.KindStorage, "CHAIN-107", "missing entry "+h.EntryAddress.String(), ErrBrokenLink)
		}
		headers = append(headers, h)
		addrs = append(addrs, next)
		next = deref(h.Link)
	}
	if len(headers) < cp.Length {
		return nil, errs.Wrap(errs.KindStorage, "CHAIN-103", fmt.Sprintf("chain ends %d headers early", cp.Length-len(headers)), ErrBrokenLink)
	}

	for i := len(headers) - 1; i >= 0; i-- {
		h := headers[i]
		var want entry.Address
		if j, ok := c.lastOfType[h.EntryType.EntryType()]; ok {
			want = c.addrs[j]
		}
		if deref(h.LinkSameType) != want {
			return nil, errs.Wrap(errs.KindStorage, "CHAIN-108", "bad same-type link in "+addrs[i].String(), ErrBrokenLink)
		}
		c.push(h, addrs[i])
	}
	return c, nil
}
