package model

import (
	"encoding/json"
	"testing"

	"xdao.co/agentchain/entry"
)

func marshal(t *testing.T, v any) string {
	t.Helper()
	b, err := entry.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	return string(b)
}

func TestSnapshot_Envelopes(t *testing.T) {
	const addr = entry.Address("QmSxw5mUkFfc2W95GK2xaNYRp4a8ZXxY8o7mPMDJv9pvJg")
	e := entry.New("testEntryType", `"test entry value"`)

	cases := []struct {
		name string
		v    any
		want string
	}{
		{"address", AddressResponse{Address: addr}, `{"address":"QmSxw5mUkFfc2W95GK2xaNYRp4a8ZXxY8o7mPMDJv9pvJg"}`},
		{"ok address", Ok(addr), `{"Ok":"QmSxw5mUkFfc2W95GK2xaNYRp4a8ZXxY8o7mPMDJv9pvJg"}`},
		{"err reason", Fail[entry.Address]("Validation failed: FAIL content is not allowed"), `{"Err":"Validation failed: FAIL content is not allowed"}`},
		{"err internal", Fail[entry.Address](InternalErr{Internal: "<pkg>"}), `{"Err":{"Internal":"<pkg>"}}`},
		{"ok entry", Ok(&e), `{"Ok":{"value":"\"test entry value\"","entry_type":"testEntryType"}}`},
		{"ok null entry", Ok[*entry.Entry](nil), `{"Ok":null}`},
		{"ok null", Ok[any](nil), `{"Ok":null}`},
		{"no entry", NewNoEntry(), `{"got back no entry":true}`},
		{"links", NewLinksResponse([]entry.Address{addr}), `{"links":["QmSxw5mUkFfc2W95GK2xaNYRp4a8ZXxY8o7mPMDJv9pvJg"]}`},
		{"no links", NewLinksResponse(nil), `{"links":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := marshal(t, tc.v); got != tc.want {
				t.Fatalf("got  %s\nwant %s", got, tc.want)
			}
		})
	}
}

func TestResult_Unmarshal(t *testing.T) {
	var ok Result[*entry.Entry]
	if err := json.Unmarshal([]byte(`{"Ok":{"value":"v","entry_type":"t"}}`), &ok); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if ok.IsErr() || ok.Value == nil || ok.Value.Value != "v" || ok.Value.Type != "t" {
		t.Fatalf("got %+v", ok)
	}

	var null Result[*entry.Entry]
	if err := json.Unmarshal([]byte(`{"Ok":null}`), &null); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if null.IsErr() || null.Value != nil {
		t.Fatalf("got %+v", null)
	}

	var failed Result[entry.Address]
	if err := json.Unmarshal([]byte(`{"Err":"nope"}`), &failed); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !failed.IsErr() || failed.Err != "nope" {
		t.Fatalf("got %+v", failed)
	}

	for _, bad := range []string{`{}`, `{"Ok":1,"Err":2}`, `{"Maybe":1}`, `[]`} {
		var r Result[int]
		if err := json.Unmarshal([]byte(bad), &r); err == nil {
			t.Fatalf("expected error for %s", bad)
		}
	}
}
