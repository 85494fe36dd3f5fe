package cidutil

import (
	"errors"
	"testing"
)

func TestCIDv0SHA256_KnownVectors(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"value":"alex","entry_type":"%agent_id"}`, "QmQw3V41bAWkQA9kwpNfU3ZDNzr9YW4p9RV4QHhFD3BkqA"},
		{`{"value":"{\"stuff\":\"non fail\"}","entry_type":"testEntryType"}`, "QmSxw5mUkFfc2W95GK2xaNYRp4a8ZXxY8o7mPMDJv9pvJg"},
	}
	for _, tc := range cases {
		got := CIDv0SHA256([]byte(tc.in))
		if got != tc.want {
			t.Fatalf("CIDv0SHA256(%s): got %s want %s", tc.in, got, tc.want)
		}
		if len(got) != 46 {
			t.Fatalf("expected 46 chars, got %d", len(got))
		}
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	id, err := CIDv0SHA256CID([]byte("hello"))
	if err != nil {
		t.Fatalf("CIDv0SHA256CID: %v", err)
	}
	got, err := Decode(id.String())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got != id {
		t.Fatalf("Decode mismatch: got %s want %s", got, id)
	}
}

func TestDecode_RejectsV1AndGarbage(t *testing.T) {
	id, err := CIDv0SHA256CID([]byte("hello"))
	if err != nil {
		t.Fatalf("CIDv0SHA256CID: %v", err)
	}
	for _, s := range []string{RawV1(id).String(), "QmbC71ggSaEa1oVPTeNN7ZoB93DYhxowhKSF6Yia2Vj", "not-a-cid", ""} {
		if _, err := Decode(s); !errors.Is(err, ErrUnsupported) {
			t.Fatalf("Decode(%q): expected ErrUnsupported, got %v", s, err)
		}
	}
}

func TestSameHash_AcrossVersions(t *testing.T) {
	id, err := CIDv0SHA256CID([]byte("hello"))
	if err != nil {
		t.Fatalf("CIDv0SHA256CID: %v", err)
	}
	if !SameHash(id, RawV1(id)) {
		t.Fatalf("expected v0 and raw v1 to share a multihash")
	}
	other, _ := CIDv0SHA256CID([]byte("world"))
	if SameHash(id, other) {
		t.Fatalf("expected different content to differ")
	}
}
