// internal/cardcrypto/checksum.go
package cardcrypto

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ChecksumLength is the number of characters in every checksum.
const ChecksumLength = 8

// ChecksumAlphabet is the character set checksums are drawn from. It never
// contains the '|' used by the QR wire format.
const ChecksumAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Checksum returns the unkeyed 8-character checksum of data.
func Checksum(data string) string {
	sum := blake2b.Sum256([]byte(data))
	return encode(sum[:])
}

// Hasher computes checksums, keyed when a secret is configured so that a
// payload cannot be re-signed without it.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher. An empty key yields the unkeyed Checksum.
func NewHasher(key []byte) (*Hasher, error) {
	if len(key) > blake2b.Size {
		return nil, fmt.Errorf("checksum key too long: %d bytes, max %d", len(key), blake2b.Size)
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Hasher{key: k}, nil
}

// Sum returns the checksum of data.
func (h *Hasher) Sum(data string) string {
	if h == nil || len(h.key) == 0 {
		return Checksum(data)
	}
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// key length is checked in NewHasher
		panic(err)
	}
	mac.Write([]byte(data))
	return encode(mac.Sum(nil))
}

func encode(digest []byte) string {
	out := make([]byte, ChecksumLength)
	for i := range out {
		out[i] = ChecksumAlphabet[int(digest[i])%len(ChecksumAlphabet)]
	}
	return string(out)
}
