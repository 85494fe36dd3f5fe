package memory

import (
	"testing"

	"xdao.co/agentchain/storage"
	"xdao.co/agentchain/storage/testkit"
)

func TestMemory_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return New()
	})
}

func TestMemory_Len(t *testing.T) {
	c := New()
	for _, s := range []string{"a", "b", "a"} {
		if _, err := c.Put([]byte(s)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 objects, got %d", c.Len())
	}
}
