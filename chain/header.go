package chain

import (
	"encoding/json"
	"fmt"

	"xdao.co/agentchain/entry"
)

// System header type names, as they appear in header JSON.
const (
	SystemAgentID = "AgentId"
	SystemDNA     = "Dna"
)

var systemNames = map[string]string{
	entry.AgentIDType: SystemAgentID,
	entry.DNAType:     SystemDNA,
}

// HeaderType is the entry type recorded in a header. App types encode as
// {"App":"<name>"}; system types encode as a bare string such as "AgentId".
type HeaderType struct {
	App    string
	System string
}

// HeaderTypeFor maps an entry type name to its header form.
func HeaderTypeFor(entryType string) HeaderType {
	if s, ok := systemNames[entryType]; ok {
		return HeaderType{System: s}
	}
	return HeaderType{App: entryType}
}

// EntryType returns the entry type name the header type was derived from.
func (t HeaderType) EntryType() string {
	if t.System == "" {
		return t.App
	}
	for typ, s := range systemNames {
		if s == t.System {
			return typ
		}
	}
	return t.System
}

func (t HeaderType) String() string { return t.EntryType() }

func (t HeaderType) MarshalJSON() ([]byte, error) {
	if t.System != "" {
		return entry.Marshal(t.System)
	}
	return entry.Marshal(struct {
		App string `json:"App"`
	}{t.App})
}

func (t *HeaderType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = HeaderType{System: s}
		return nil
	}
	var app struct {
		App *string `json:"App"`
	}
	if err := json.Unmarshal(b, &app); err != nil || app.App == nil {
		return fmt.Errorf("chain: invalid header entry_type %s", b)
	}
	*t = HeaderType{App: *app.App}
	return nil
}

// Header records that the agent asserted one entry at one position of its
// chain. Headers are immutable once appended.
type Header struct {
	EntryType      HeaderType     `json:"entry_type"`
	EntryAddress   entry.Address  `json:"entry_address"`
	EntrySignature string         `json:"entry_signature"`
	Link           *entry.Address `json:"link"`
	LinkSameType   *entry.Address `json:"link_same_type"`
	Timestamp      string         `json:"timestamp"`
}

// Bytes returns the canonical JSON of h.
func (h Header) Bytes() []byte {
	b, err := entry.Marshal(h)
	if err != nil {
		panic("chain: serialize header: " + err.Error())
	}
	return b
}

// Address returns the content address of h.
func (h Header) Address() entry.Address {
	return entry.HashBytes(h.Bytes())
}

func parseHeader(b []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(b, &h); err != nil {
		return Header{}, err
	}
	return h, nil
}

func addrPtr(a entry.Address) *entry.Address {
	if a == "" {
		return nil
	}
	return &a
}

func deref(a *entry.Address) entry.Address {
	if a == nil {
		return ""
	}
	return *a
}
