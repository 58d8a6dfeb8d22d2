// Package dump renders a decoded package as a plain document: a text tree
// for terminals, JSON, or deterministic CBOR.
//
// Handles render as {"handle": index, "weak": bool, "bound": bool}, resource
// references as {"import": index} and inline classes as maps carrying a
// "$type" key.
package dump
