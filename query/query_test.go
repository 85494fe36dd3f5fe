package query

import (
	"testing"

	"xdao.co/agentchain/chain"
	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/storage"
	"xdao.co/agentchain/storage/memory"
)

func commitAll(t *testing.T, c *chain.Chain, es ...entry.Entry) {
	t.Helper()
	for _, e := range es {
		addr, err := c.Store().Put(e)
		if err != nil {
			t.Fatal(err)
		}
		h, err := c.Prepare(e.Type, addr)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.Append(h); err != nil {
			t.Fatal(err)
		}
	}
}

func equal(a, b []entry.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQuery_ChainOrderAndLimit(t *testing.T) {
	c := chain.New(storage.NewEntryStore(memory.New()))
	p1 := entry.New("post", `"1"`)
	p2 := entry.New("post", `"2"`)
	p3 := entry.New("post", `"3"`)
	commitAll(t, c,
		entry.New(entry.AgentIDType, "alex"),
		p1, entry.New("comment", `"c"`), p2, p3)
	q := NewEngine(c)

	all := []entry.Address{p1.Address(), p2.Address(), p3.Address()}
	if got := q.Query("post", Options{}); !equal(got, all) {
		t.Fatalf("Query = %v, want %v", got, all)
	}
	for k := 1; k <= 4; k++ {
		got := q.Query("post", Options{Limit: k})
		n := k
		if n > len(all) {
			n = len(all)
		}
		if !equal(got, all[:n]) {
			t.Fatalf("limit %d: got %v", k, got)
		}
	}
	newest := q.Query("post", Options{Newest: true, Limit: 2})
	if !equal(newest, []entry.Address{p3.Address(), p2.Address()}) {
		t.Fatalf("newest = %v", newest)
	}
}

func TestQuery_DeduplicatesRecommittedContent(t *testing.T) {
	c := chain.New(storage.NewEntryStore(memory.New()))
	e := entry.New("testEntryType", `{"stuff":"non fail"}`)
	other := entry.New("testEntryType", `"other"`)
	commitAll(t, c, e, other, e)

	got := NewEngine(c).Query("testEntryType", Options{})
	want := []entry.Address{"QmSxw5mUkFfc2W95GK2xaNYRp4a8ZXxY8o7mPMDJv9pvJg", other.Address()}
	if !equal(got, want) {
		t.Fatalf("Query = %v, want %v", got, want)
	}
	if c.Len() != 3 {
		t.Fatalf("expected one header per commit")
	}
}

func TestQuery_UnknownTypeIsEmpty(t *testing.T) {
	c := chain.New(storage.NewEntryStore(memory.New()))
	got := NewEngine(c).Query("nothing", Options{})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected an empty, non-nil result; got %#v", got)
	}
}
