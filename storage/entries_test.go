package storage_test

import (
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/errs"
	"xdao.co/agentchain/storage"
	"xdao.co/agentchain/storage/memory"
)

func TestEntryStore_PutGet(t *testing.T) {
	s := storage.NewEntryStore(memory.New())
	e := entry.New("testEntryType", `{"stuff":"non fail"}`)

	addr, err := s.Put(e)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if addr != entry.Hash(e) {
		t.Fatalf("Put address %s does not match Hash %s", addr, entry.Hash(e))
	}
	again, err := s.Put(e)
	if err != nil || again != addr {
		t.Fatalf("re-put must be idempotent: %s %v", again, err)
	}

	got, ok, err := s.Get(addr)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got != e {
		t.Fatalf("Get returned %+v", got)
	}
}

func TestEntryStore_MissingIsNotAnError(t *testing.T) {
	s := storage.NewEntryStore(memory.New())
	_, ok, err := s.Get("QmbC71ggSaEa1oVPTeNN7ZoB93DYhxowhKSF6Yia2Vjxxx")
	if err != nil {
		t.Fatalf("expected no error for missing entry, got %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false")
	}
	if s.Has("QmbC71ggSaEa1oVPTeNN7ZoB93DYhxowhKSF6Yia2Vjxxx") {
		t.Fatalf("Has must be false for missing entry")
	}
}

func TestEntryStore_MalformedAddressIsStructural(t *testing.T) {
	s := storage.NewEntryStore(memory.New())
	_, _, err := s.Get("garbage")
	if !errs.IsKind(err, errs.KindStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
}

// lyingCAS returns a fixed CID regardless of input.
type lyingCAS struct {
	storage.CAS
	id cid.Cid
}

func (l lyingCAS) Put([]byte) (cid.Cid, error) { return l.id, nil }

func TestEntryStore_RejectsForeignAddress(t *testing.T) {
	other, err := entry.Hash(entry.New("t", "other")).CID()
	if err != nil {
		t.Fatal(err)
	}
	s := storage.NewEntryStore(lyingCAS{CAS: memory.New(), id: other})
	_, err = s.Put(entry.New("t", "mine"))
	if !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("expected ErrCIDMismatch, got %v", err)
	}
}
