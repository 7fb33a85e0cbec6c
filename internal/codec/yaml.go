package codec

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stash/internal/ir"
)

// YAML serializes envelopes as block-style YAML documents.
// Map keys are emitted in sorted order by yaml.v3, so output is stable.
type YAML struct{}

// Encode implements Serializer.
func (YAML) Encode(obj ir.Object) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(ir.ToNative(obj)); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode implements Serializer.
func (YAML) Decode(data []byte) (ir.Object, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode yaml: empty document")
	}
	v, err := ir.FromNative(raw)
	if err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return v.(ir.Object), nil
}

// Format implements Serializer.
func (YAML) Format() string { return "yaml" }

// Extension implements Serializer.
func (YAML) Extension() string { return "yaml" }
