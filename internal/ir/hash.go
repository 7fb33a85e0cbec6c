package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainRecord separates record content hashes from any other use of
// SHA-256 over canonical bytes. The version suffix allows migration.
const DomainRecord = "stash/record/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash returns the hex digest the sqlite backend stores beside each
// payload, used to skip writes whose bytes did not change.
// The record kind is mixed in so identical payloads of different kinds differ.
func ContentHash(kind string, payload []byte) string {
	data := make([]byte, 0, len(kind)+1+len(payload))
	data = append(data, kind...)
	data = append(data, 0x00)
	data = append(data, payload...)
	return hashWithDomain(DomainRecord, data)
}
