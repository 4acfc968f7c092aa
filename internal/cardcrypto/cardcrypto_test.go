package cardcrypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestChecksumShape(t *testing.T) {
	sum := Checksum("JKT-12345-ABC123")

	assert.Len(t, sum, ChecksumLength)
	for _, r := range sum {
		assert.True(t, strings.ContainsRune(ChecksumAlphabet, r), "unexpected rune %q", r)
	}
	assert.Equal(t, sum, Checksum("JKT-12345-ABC123"))
	assert.NotEqual(t, sum, Checksum("JKT-12345-ABC124"))
}

func TestHasherKeyed(t *testing.T) {
	unkeyed, err := NewHasher(nil)
	require.NoError(t, err)
	assert.Equal(t, Checksum("payload"), unkeyed.Sum("payload"))

	keyed, err := NewHasher([]byte("secret-key"))
	require.NoError(t, err)
	assert.NotEqual(t, Checksum("payload"), keyed.Sum("payload"))
	assert.Equal(t, keyed.Sum("payload"), keyed.Sum("payload"))

	_, err = NewHasher(make([]byte, 65))
	assert.Error(t, err)

	var nilHasher *Hasher
	assert.Equal(t, Checksum("x"), nilHasher.Sum("x"))
}

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("passphrase", "sinoman-salt")
	require.NoError(t, err)

	plain := `{"format":"KOPERASI_SINOMAN_MEMBER"}`
	sealed, err := c.Encrypt(plain)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "|")
	assert.NotEqual(t, plain, sealed)

	opened, err := c.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, opened)
}

func TestCipherRejectsForeignCiphertext(t *testing.T) {
	a, err := NewCipher("passphrase-a", "sinoman-salt")
	require.NoError(t, err)
	b, err := NewCipher("passphrase-b", "sinoman-salt")
	require.NoError(t, err)

	sealed, err := a.Encrypt("hello")
	require.NoError(t, err)

	_, err = b.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrCiphertextInvalid)

	_, err = a.Decrypt("not base64 !!")
	assert.ErrorIs(t, err, ErrCiphertextInvalid)

	_, err = a.Decrypt("AAAA")
	assert.ErrorIs(t, err, ErrCiphertextInvalid)
}

func TestNewCipherPreconditions(t *testing.T) {
	_, err := NewCipher("", "sinoman-salt")
	assert.Error(t, err)
	_, err = NewCipher("passphrase", "short")
	assert.Error(t, err)
}

func TestChecksumAlphabetProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.String().Draw(t, "data")
		sum := Checksum(data)
		if len(sum) != ChecksumLength {
			t.Fatalf("checksum length %d", len(sum))
		}
		if strings.Trim(sum, ChecksumAlphabet) != "" {
			t.Fatalf("checksum %q outside alphabet", sum)
		}
	})
}
