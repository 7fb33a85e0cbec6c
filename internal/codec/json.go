package codec

import (
	"fmt"

	"github.com/roach88/stash/internal/ir"
)

// JSON is the canonical JSON serializer (RFC 8785).
type JSON struct{}

// Encode implements Serializer.
func (JSON) Encode(obj ir.Object) ([]byte, error) {
	return ir.MarshalCanonical(obj)
}

// Decode implements Serializer. Floats are rejected.
func (JSON) Decode(data []byte) (ir.Object, error) {
	v, err := ir.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("decode json: expected object, got %T", v)
	}
	return obj, nil
}

// Format implements Serializer.
func (JSON) Format() string { return "json" }

// Extension implements Serializer.
func (JSON) Extension() string { return "json" }
