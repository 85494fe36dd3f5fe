package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"xdao.co/agentchain/entry"
)

// AddressResponse is the address form of a commit result.
type AddressResponse struct {
	Address entry.Address `json:"address"`
}

// NoEntry is the result form of a get that found nothing.
type NoEntry struct {
	NoEntry bool `json:"got back no entry"`
}

// NewNoEntry returns {"got back no entry":true}.
func NewNoEntry() NoEntry { return NoEntry{NoEntry: true} }

// LinksResponse lists link targets in no particular order.
type LinksResponse struct {
	Links []entry.Address `json:"links"`
}

// NewLinksResponse never encodes a null list.
func NewLinksResponse(targets []entry.Address) LinksResponse {
	if targets == nil {
		targets = []entry.Address{}
	}
	return LinksResponse{Links: targets}
}

// Result is the Ok/Err envelope: {"Ok":<value>} or {"Err":<reason>}.
// A zero Result encodes as {"Ok":null} when T is a pointer, interface, map
// or slice type.
type Result[T any] struct {
	Value T
	Err   any

	failed bool
}

// Ok wraps a success value.
func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

// Fail wraps a failure reason. The reason is usually a string, but any JSON
// encodable value is kept as is.
func Fail[T any](reason any) Result[T] { return Result[T]{Err: reason, failed: true} }

// IsErr reports whether r is the Err form.
func (r Result[T]) IsErr() bool { return r.failed }

func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.failed {
		return entry.Marshal(struct {
			Err any `json:"Err"`
		}{r.Err})
	}
	return entry.Marshal(struct {
		Ok T `json:"Ok"`
	}{r.Value})
}

func (r *Result[T]) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("model: result must have exactly one of Ok or Err, got %s", b)
	}
	if v, ok := raw["Err"]; ok {
		var reason any
		if err := json.Unmarshal(v, &reason); err != nil {
			return err
		}
		*r = Result[T]{Err: reason, failed: true}
		return nil
	}
	v, ok := raw["Ok"]
	if !ok {
		return fmt.Errorf("model: result must have exactly one of Ok or Err, got %s", b)
	}
	var out Result[T]
	if !bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		if err := json.Unmarshal(v, &out.Value); err != nil {
			return err
		}
	}
	*r = out
	return nil
}

// InternalErr is the reason form {"Internal":"<text>"} used when a failure
// carries a serialized payload rather than a plain message.
type InternalErr struct {
	Internal string `json:"Internal"`
}
