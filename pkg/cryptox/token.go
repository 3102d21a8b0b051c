package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
	// TokenSize512 provides 512 bits of entropy (86 chars base64url).
	TokenSize512 = 64

	// SaltSize is the size of the per-record salt used by HashToken.
	SaltSize = 16
)

// TokenHash is the persisted form of a confirmation token. The raw token is
// never part of it.
type TokenHash struct {
	// Hash is base64url(SHA-256(salt || token)).
	Hash string
	// Salt is the base64url encoded random salt used for Hash.
	Salt string
	// LookupHash is the unsalted fingerprint used as an index.
	LookupHash string
}

// GenerateToken creates a cryptographically secure random token of the specified byte length.
// The token is returned as a base64url-encoded string (URL-safe, no padding).
// Returns an error if the random number generator fails.
//
// Common sizes:
//   - TokenSize128 (16 bytes): Short-lived tokens, CSRF tokens
//   - TokenSize256 (32 bytes): Confirmation links (recommended)
//   - TokenSize512 (64 bytes): High-security tokens
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MustGenerateToken is like GenerateToken but panics on error.
// Use this only during initialization or in contexts where failure is unrecoverable.
func MustGenerateToken(size int) string {
	token, err := GenerateToken(size)
	if err != nil {
		panic(fmt.Sprintf("cryptox: failed to generate token: %v", err))
	}
	return token
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token.
// This is the lookup hash: it lets a store find a record by token without
// holding the token itself.
//
// The fingerprint is returned as a base64url-encoded string (43 chars).
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// HashToken derives the salted hash and lookup hash for token. When salt is
// empty a fresh random salt of SaltSize bytes is generated; otherwise salt must
// be a value previously returned in TokenHash.Salt.
func HashToken(token, salt string) (TokenHash, error) {
	var saltBytes []byte
	if salt == "" {
		saltBytes = make([]byte, SaltSize)
		if _, err := rand.Read(saltBytes); err != nil {
			return TokenHash{}, fmt.Errorf("failed to generate salt: %w", err)
		}
		salt = base64.RawURLEncoding.EncodeToString(saltBytes)
	} else {
		var err error
		saltBytes, err = base64.RawURLEncoding.DecodeString(salt)
		if err != nil {
			return TokenHash{}, fmt.Errorf("invalid salt encoding: %w", err)
		}
	}

	h := sha256.New()
	h.Write(saltBytes)
	h.Write([]byte(token))

	return TokenHash{
		Hash:       base64.RawURLEncoding.EncodeToString(h.Sum(nil)),
		Salt:       salt,
		LookupHash: FingerprintToken(token),
	}, nil
}

// ConstantTimeEquals reports whether a and b are equal without leaking the
// position of the first differing byte. Values of different length are never
// equal.
func ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
