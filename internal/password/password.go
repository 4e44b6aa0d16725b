// Package password hashes and verifies account credentials with bcrypt.
package password

import "golang.org/x/crypto/bcrypt"

// DefaultCost is the fixed bcrypt work factor used for account credentials.
const DefaultCost = 10

// Hasher wraps bcrypt with a fixed cost. The zero value uses DefaultCost.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given cost, clamped to bcrypt's range.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return Hasher{Cost: cost}
}

// Hash returns the salted digest of plaintext.
func (h Hasher) Hash(plaintext string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Malformed digests never match.
func (h Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
