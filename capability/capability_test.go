package capability

import (
	"context"
	"errors"
	"strings"
	"testing"

	"xdao.co/agentchain/dna"
	"xdao.co/agentchain/errs"
)

func testDNA(t *testing.T) *dna.DNA {
	t.Helper()
	d, err := dna.Load(strings.NewReader(`
name: app
zomes:
  test_zome:
    capabilities:
      test_cap:
        membrane: public
        functions: [{name: check_global}]
      internal:
        membrane: zome
        functions: [{name: helper}]
`))
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestAuthorize_Declared(t *testing.T) {
	g := NewGate(testDNA(t), nil)
	decl, err := g.Authorize(context.Background(), "test_zome", "test_cap", "check_global")
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if decl.Name != "check_global" {
		t.Fatalf("declaration = %+v", decl)
	}
}

func TestAuthorize_Unknown(t *testing.T) {
	g := NewGate(testDNA(t), nil)
	cases := []struct {
		zome, cap, fn, rule string
	}{
		{"nope", "test_cap", "check_global", "CAP-001"},
		{"test_zome", "nope", "check_global", "CAP-002"},
		{"test_zome", "test_cap", "nope", "CAP-003"},
		{"test_zome", "test_cap", "helper", "CAP-003"},
	}
	for _, tc := range cases {
		_, err := g.Authorize(context.Background(), tc.zome, tc.cap, tc.fn)
		if !errs.IsKind(err, errs.KindStructural) || errs.RuleID(err) != tc.rule {
			t.Fatalf("%s/%s/%s: got %v (rule %q), want %s", tc.zome, tc.cap, tc.fn, err, errs.RuleID(err), tc.rule)
		}
	}
}

func TestAuthorize_CallerCheck(t *testing.T) {
	g := NewGate(testDNA(t), RequireZomeCaller)

	ctx := WithCaller(context.Background(), Caller{Agent: "alex"})
	_, err := g.Authorize(ctx, "test_zome", "internal", "helper")
	if !errors.Is(err, ErrDenied) || errs.RuleID(err) != "CAP-004" {
		t.Fatalf("expected denial, got %v", err)
	}

	nested := WithCaller(ctx, Caller{Agent: "alex", Zome: "test_zome"})
	if _, err := g.Authorize(nested, "test_zome", "internal", "helper"); err != nil {
		t.Fatalf("nested call denied: %v", err)
	}
	if c, ok := CallerFrom(nested); !ok || c.Zome != "test_zome" {
		t.Fatalf("CallerFrom = %+v, %v", c, ok)
	}
}
