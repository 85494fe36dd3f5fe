package entry

import (
	"testing"

	"xdao.co/agentchain/errs"
)

func TestSerialize_FieldOrder(t *testing.T) {
	got := string(Serialize(New("testEntryType", `"non fail"`)))
	want := `{"value":"\"non fail\"","entry_type":"testEntryType"}`
	if got != want {
		t.Fatalf("Serialize: got %s want %s", got, want)
	}
}

func TestHash_KnownVectors(t *testing.T) {
	cases := []struct {
		e    Entry
		want Address
	}{
		{New(AgentIDType, "alex"), "QmQw3V41bAWkQA9kwpNfU3ZDNzr9YW4p9RV4QHhFD3BkqA"},
		{New("testEntryType", `{"stuff":"non fail"}`), "QmSxw5mUkFfc2W95GK2xaNYRp4a8ZXxY8o7mPMDJv9pvJg"},
		{New("testEntryType", `{"stuff":"entry1"}`), "QmbagHKV6kU89Z4FzQGMHpCYMxpR8WPxnse6KMArQ2wPJa"},
		{New("testEntryType", `"non fail"`), "QmXxdzM9uHiSfV1xDwUxMm5jX4rVU8jhtWVaeCzjkFW249"},
		{New("testEntryType", `"test entry value"`), "QmeoLRiWhXLTQKEAHxd8s6Yt3KktYULatGoMsaXi62e5zT"},
	}
	for _, tc := range cases {
		if got := Hash(tc.e); got != tc.want {
			t.Fatalf("Hash(%s): got %s want %s", Serialize(tc.e), got, tc.want)
		}
	}
}

func TestHash_Deterministic(t *testing.T) {
	a := New("post", `{"title":"<b>&"}`)
	b := New("post", `{"title":"<b>&"}`)
	if Hash(a) != Hash(b) {
		t.Fatalf("identical entries must hash identically")
	}
	if Hash(a) == Hash(New("post", `{"title":"<b>"}`)) {
		t.Fatalf("different values must hash differently")
	}
	if Hash(a) == Hash(New("other", a.Value)) {
		t.Fatalf("different types must hash differently")
	}
}

func TestNewJSON(t *testing.T) {
	e, err := NewJSON("testEntryType", map[string]string{"stuff": "non fail"})
	if err != nil {
		t.Fatalf("NewJSON: %v", err)
	}
	if e.Address() != "QmSxw5mUkFfc2W95GK2xaNYRp4a8ZXxY8o7mPMDJv9pvJg" {
		t.Fatalf("unexpected address %s", e.Address())
	}

	_, err = NewJSON("testEntryType", make(chan int))
	if !errs.IsKind(err, errs.KindStructural) {
		t.Fatalf("expected structural error for unserializable value, got %v", err)
	}
}

func TestDeserialize_RoundTrip(t *testing.T) {
	e := New("testEntryType", `{"stuff":"non fail"}`)
	got, err := Deserialize(Serialize(e))
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got != e {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if _, err := Deserialize([]byte(`{"value":"x","entry_type":"t","extra":1}`)); err == nil {
		t.Fatalf("expected unknown fields to be rejected")
	}
}

func TestParseAddress(t *testing.T) {
	if _, err := ParseAddress("QmbC71ggSaEa1oVPTeNN7ZoB93DYhxowhKSF6Yia2Vjxxx"); err != nil {
		t.Fatalf("well-formed address rejected: %v", err)
	}
	_, err := ParseAddress("nope")
	if !errs.IsKind(err, errs.KindStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
}
