// Package model defines the JSON envelopes zome functions answer with and
// the coded error DTO used at the CLI boundary.
//
// Addresses and entries are unaffected by any projection here. Envelopes are
// encoded with the canonical encoder (entry.Marshal) so their bytes are
// stable.
package model
