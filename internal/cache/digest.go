package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Digest is a SHA-256 content hash.
type Digest [32]byte

// Sum hashes data.
func Sum(data []byte) Digest {
	return sha256.Sum256(data)
}

// Combine hashes content followed by parts: H(content || p1 || p2 ...).
// The order of parts matters.
func Combine(content Digest, parts ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, p := range parts {
		_, _ = h.Write(p[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Key identifies one encoding run: the universe document, the requested
// roots in order, and the encoder build that produced the output.
func Key(universe []byte, roots []string, build string) Digest {
	return Combine(
		Sum(universe),
		Sum([]byte(strings.Join(roots, "\x00"))),
		Sum([]byte(build)),
	)
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d was never set.
func (d Digest) IsZero() bool {
	return d == Digest{}
}
