package ir

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashDeterminism(t *testing.T) {
	payload := []byte(`{"kind":"document","persistent_id":4}`)
	assert.Equal(t, ContentHash("document", payload), ContentHash("document", payload))
}

func TestContentHashChangesWithPayload(t *testing.T) {
	a := ContentHash("document", []byte(`{"n":1}`))
	b := ContentHash("document", []byte(`{"n":2}`))
	assert.NotEqual(t, a, b)
}

func TestContentHashSeparatesKinds(t *testing.T) {
	payload := []byte(`{}`)
	assert.NotEqual(t, ContentHash("document", payload), ContentHash("note", payload))
}

func TestContentHashBoundary(t *testing.T) {
	// "ab"+"c" and "a"+"bc" must not collide.
	assert.NotEqual(t, ContentHash("ab", []byte("c")), ContentHash("a", []byte("bc")))
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	h1 := hashWithDomain("ab", []byte("c"))
	h2 := hashWithDomain("a", []byte("bc"))
	assert.NotEqual(t, h1, h2)
}

func TestContentHashHexEncoding(t *testing.T) {
	h := ContentHash("document", []byte("x"))
	assert.Len(t, h, 64)
	_, err := hex.DecodeString(h)
	require.NoError(t, err)
}
