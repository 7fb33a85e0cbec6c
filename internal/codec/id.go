package codec

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
)

// EncodeID packs a persistent id as 8 little-endian bytes and returns the
// unpadded URL-safe base64 form (always 11 characters). Backends use it to
// build file names and object keys that are safe on every filesystem.
func EncodeID(id int64) string {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(id))
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// DecodeID reverses EncodeID.
func DecodeID(s string) (int64, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return 0, fmt.Errorf("decode id %q: %w", s, err)
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("decode id %q: want 8 bytes, got %d", s, len(b))
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// RecordName is the base name of a record blob: "<kind>_<id64>".
func RecordName(kind string, id int64) string {
	return kind + "_" + EncodeID(id)
}

// ParseRecordName extracts the id from a base name produced by RecordName.
// The second result is false when name does not belong to kind.
func ParseRecordName(kind, name string) (int64, bool) {
	rest, ok := strings.CutPrefix(name, kind+"_")
	if !ok || len(rest) != 11 {
		return 0, false
	}
	id, err := DecodeID(rest)
	if err != nil {
		return 0, false
	}
	return id, true
}
