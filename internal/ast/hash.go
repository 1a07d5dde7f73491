package ast

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainNode is the domain prefix for node fingerprints.
// Version suffix enables future rendering migration.
const DomainNode = "qrewrite/node/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns a stable content hash of a node's canonical rendering.
// Logically identical trees rebuilt independently share a fingerprint.
func Fingerprint(n Node) string {
	return hashWithDomain(DomainNode, []byte(Render(n)))
}
