// Package codec turns record envelopes into bytes and back.
//
// A Serializer only sees ir.Object values; it knows nothing about records
// or managers. Two formats are provided: canonical JSON (the default, and
// the form content hashes are computed over) and YAML for hand-edited stores.
package codec

import (
	"fmt"
	"sort"

	"github.com/roach88/stash/internal/ir"
)

// Serializer encodes and decodes record envelopes.
type Serializer interface {
	// Encode turns an envelope into a payload.
	Encode(obj ir.Object) ([]byte, error)

	// Decode parses a payload back into an envelope.
	Decode(data []byte) (ir.Object, error)

	// Format is the configuration name of the serializer ("json", "yaml").
	Format() string

	// Extension is the file name extension used by file-per-record backends.
	Extension() string
}

var serializers = map[string]Serializer{
	"json": JSON{},
	"yaml": YAML{},
}

// ByFormat returns the serializer registered under format.
func ByFormat(format string) (Serializer, error) {
	s, ok := serializers[format]
	if !ok {
		return nil, fmt.Errorf("unknown serializer %q (available: %v)", format, Formats())
	}
	return s, nil
}

// Formats lists the registered serializer names in sorted order.
func Formats() []string {
	names := make([]string, 0, len(serializers))
	for name := range serializers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
