// Package entry defines the typed unit of application data and its content
// address.
//
// An Entry is addressed by the CIDv0 (base58 sha2-256 multihash) of its
// canonical serialization:
//
//	{"value":<string>,"entry_type":<string>}
//
// Two entries with identical type and value always produce identical bytes
// and therefore the identical Address, in any process.
package entry

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/agentchain/cidutil"
	"xdao.co/agentchain/errs"
)

// System entry types. App entry types must not start with '%'.
const (
	AgentIDType = "%agent_id"
	DNAType     = "%dna"
)

// Entry is an entry-type name plus an opaque value. The value is usually JSON
// text but the core never interprets it.
type Entry struct {
	Value string `json:"value"`
	Type  string `json:"entry_type"`
}

// New returns an Entry of type typ holding value verbatim.
func New(typ, value string) Entry {
	return Entry{Type: typ, Value: value}
}

// NewJSON returns an Entry whose value is the JSON encoding of v.
func NewJSON(typ string, v any) (Entry, error) {
	b, err := marshal(v)
	if err != nil {
		return Entry{}, errs.Wrap(errs.KindStructural, "ENTRY-001", "entry value not serializable", err)
	}
	return Entry{Type: typ, Value: string(b)}, nil
}

// IsSystem reports whether e is a system-internal record.
func (e Entry) IsSystem() bool { return IsSystemType(e.Type) }

// IsSystemType reports whether typ names a system entry type.
func IsSystemType(typ string) bool { return strings.HasPrefix(typ, "%") }

// Serialize returns the canonical bytes of e.
func Serialize(e Entry) []byte {
	b, err := marshal(e)
	if err != nil {
		// Entry holds only strings; encoding cannot fail.
		panic("entry: serialize: " + err.Error())
	}
	return b
}

// Deserialize parses canonical entry bytes.
func Deserialize(b []byte) (Entry, error) {
	var e Entry
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&e); err != nil {
		return Entry{}, errs.Wrap(errs.KindStructural, "ENTRY-002", "malformed entry bytes", err)
	}
	return e, nil
}

// Hash returns the content address of e.
func Hash(e Entry) Address {
	return Address(cidutil.CIDv0SHA256(Serialize(e)))
}

// Address returns the content address of e.
func (e Entry) Address() Address { return Hash(e) }

// Address is the wire form of a content address: a 46 character CIDv0 string.
type Address string

func (a Address) String() string { return string(a) }

// CID returns the storage key for a.
func (a Address) CID() (cid.Cid, error) {
	id, err := cidutil.Decode(string(a))
	if err != nil {
		return cid.Undef, errs.Wrap(errs.KindStructural, "ENTRY-003", "malformed address "+quote(string(a)), err)
	}
	return id, nil
}

// FromCID returns the wire address for id.
func FromCID(id cid.Cid) Address {
	if !id.Defined() {
		return ""
	}
	return Address(id.String())
}

// ParseAddress validates s as an address.
func ParseAddress(s string) (Address, error) {
	a := Address(s)
	if _, err := a.CID(); err != nil {
		return "", err
	}
	return a, nil
}

// HashBytes returns the address of arbitrary canonical bytes (headers and
// other system records).
func HashBytes(b []byte) Address {
	return Address(cidutil.CIDv0SHA256(b))
}

// marshal is json.Marshal without HTML escaping and without the trailing
// newline json.Encoder appends.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Marshal is the canonical JSON encoder used for every hashed record.
func Marshal(v any) ([]byte, error) { return marshal(v) }

func quote(s string) string {
	b, _ := marshal(s)
	return string(b)
}
