// Package ir provides the constrained value model records are persisted as.
//
// A record's persisted form is an Object: a map of string keys to Values.
// Only Null, String, Int, Bool, Array and Object implement Value. There is
// no float type, so a payload always round-trips byte-for-byte through the
// canonical encoder.
//
// This package imports nothing internal. Every other package may import ir.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - All object keys use snake_case in persisted envelopes
//   - Canonical encoding (RFC 8785) is the only encoding used for hashing
package ir
