package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// IdentifierKeyer turns identifiers (IP addresses, email addresses) into opaque
// storage keys using keyed BLAKE2b-256. Without the secret the stored keys
// cannot be matched back to an identifier by brute force over known emails.
type IdentifierKeyer struct {
	secret []byte
}

// NewIdentifierKeyer returns a keyer using secret. An empty secret generates a
// random one, which means keys only stay stable for the life of the process.
func NewIdentifierKeyer(secret []byte) (*IdentifierKeyer, error) {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate keyer secret: %w", err)
		}
	}
	if len(secret) > blake2b.Size {
		// blake2b keys are limited to 64 bytes; fold longer secrets first.
		sum := blake2b.Sum512(secret)
		secret = sum[:]
	}
	return &IdentifierKeyer{secret: secret}, nil
}

// Key returns the hex encoded keyed digest of namespace and identifier.
func (k *IdentifierKeyer) Key(namespace, identifier string) string {
	h, err := blake2b.New256(k.secret)
	if err != nil {
		// Only possible with an oversized key, which NewIdentifierKeyer prevents.
		panic(fmt.Sprintf("cryptox: blake2b init: %v", err))
	}
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(identifier))
	return hex.EncodeToString(h.Sum(nil))
}
