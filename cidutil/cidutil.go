package cidutil

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ErrUnsupported is returned by Decode for CIDs outside the address contract.
var ErrUnsupported = errors.New("cidutil: unsupported cid")

// CIDv0SHA256 returns the CIDv0 string for data: the base58 encoding of the
// sha2-256 multihash, always 46 characters starting with "Qm".
func CIDv0SHA256(data []byte) string {
	id, err := CIDv0SHA256CID(data)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1 length,
		// this should be unreachable.
		return ""
	}
	return id.String()
}

// CIDv0SHA256CID returns a CIDv0 (sha2-256 multihash) derived from data.
func CIDv0SHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV0(sum), nil
}

// Decode parses s and requires it to be a CIDv0 over a sha2-256 multihash.
func Decode(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if id.Version() != 0 || id.Prefix().MhType != multihash.SHA2_256 {
		return cid.Undef, fmt.Errorf("%w: %s", ErrUnsupported, s)
	}
	return id, nil
}

// RawV1 returns the CIDv1 "raw" form of id, sharing its multihash.
// Block stores that refuse CIDv0 for non dag-pb bytes are addressed this way.
func RawV1(id cid.Cid) cid.Cid {
	return cid.NewCidV1(cid.Raw, id.Hash())
}

// SameHash reports whether a and b carry the same multihash, ignoring CID
// version and codec.
func SameHash(a, b cid.Cid) bool {
	if !a.Defined() || !b.Defined() {
		return false
	}
	return string(a.Hash()) == string(b.Hash())
}
