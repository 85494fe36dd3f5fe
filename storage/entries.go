package storage

import (
	"xdao.co/agentchain/cidutil"
	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/errs"
)

// EntryStore is the typed entry view over a CAS: entries go in by value and
// come out by address.
//
// A missing entry is a normal outcome (ok == false), not an error.
type EntryStore struct {
	cas CAS
}

func NewEntryStore(cas CAS) *EntryStore {
	return &EntryStore{cas: cas}
}

// CAS returns the underlying content-addressable store.
func (s *EntryStore) CAS() CAS { return s.cas }

// Put stores e if absent and returns its address. Re-putting identical
// content is a silent success.
func (s *EntryStore) Put(e entry.Entry) (entry.Address, error) {
	b := entry.Serialize(e)
	id, err := s.cas.Put(b)
	if err != nil {
		return "", errs.Wrap(errs.KindStorage, "STORE-001", "put entry", err)
	}
	want, err := cidutil.CIDv0SHA256CID(b)
	if err != nil {
		return "", errs.Wrap(errs.KindInternal, "STORE-002", "address computation failed", err)
	}
	if id != want {
		return "", errs.Wrap(errs.KindStorage, "STORE-003", "backend returned foreign address "+id.String(), ErrCIDMismatch)
	}
	return entry.FromCID(id), nil
}

// Get returns the entry stored at addr.
func (s *EntryStore) Get(addr entry.Address) (entry.Entry, bool, error) {
	b, ok, err := s.GetRaw(addr)
	if err != nil || !ok {
		return entry.Entry{}, ok, err
	}
	e, err := entry.Deserialize(b)
	if err != nil {
		return entry.Entry{}, false, err
	}
	return e, true, nil
}

// GetRaw returns the verified bytes stored at addr.
func (s *EntryStore) GetRaw(addr entry.Address) ([]byte, bool, error) {
	id, err := addr.CID()
	if err != nil {
		return nil, false, err
	}
	b, err := s.cas.Get(id)
	if IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(errs.KindStorage, "STORE-004", "get "+addr.String(), err)
	}
	got, err := cidutil.CIDv0SHA256CID(b)
	if err != nil {
		return nil, false, errs.Wrap(errs.KindInternal, "STORE-002", "address computation failed", err)
	}
	if got != id {
		return nil, false, errs.Wrap(errs.KindStorage, "STORE-005", "stored bytes do not match "+addr.String(), ErrCIDMismatch)
	}
	return b, true, nil
}

// PutRaw stores canonical bytes of a system record (e.g. a chain header).
func (s *EntryStore) PutRaw(b []byte) (entry.Address, error) {
	id, err := s.cas.Put(b)
	if err != nil {
		return "", errs.Wrap(errs.KindStorage, "STORE-001", "put record", err)
	}
	return entry.FromCID(id), nil
}

// Has reports whether addr resolves to stored content. Malformed addresses
// resolve to nothing.
func (s *EntryStore) Has(addr entry.Address) bool {
	id, err := addr.CID()
	if err != nil {
		return false
	}
	return s.cas.Has(id)
}
