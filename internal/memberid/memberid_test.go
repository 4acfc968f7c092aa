package memberid

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"sinoman/internal/apperr"
)

func TestGenerateAndValidate(t *testing.T) {
	id, err := Generate("12345", "JKT")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id, "JKT-12345-"))
	assert.True(t, Validate(id), id)

	number, ok := ExtractMemberNumber(id)
	assert.True(t, ok)
	assert.Equal(t, "12345", number)

	branch, ok := ExtractBranchCode(id)
	assert.True(t, ok)
	assert.Equal(t, "JKT", branch)
}

func TestGenerateDefaultsBranch(t *testing.T) {
	id, err := Generate("7", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, DefaultBranch+"-7-"))
	assert.True(t, Validate(id))
}

func TestGenerateRequiresMemberNumber(t *testing.T) {
	_, err := Generate("", "JKT")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestGenerateIsDistinct(t *testing.T) {
	frozen := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	nowFn = func() time.Time { return frozen }
	defer func() { nowFn = time.Now }()

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		id, err := Generate("12345", "SBY")
		require.NoError(t, err)
		seen[id] = struct{}{}
	}
	// two random characters on a frozen clock: collisions are possible but rare
	assert.Greater(t, len(seen), 10)
}

func TestValidateRejects(t *testing.T) {
	rejected := []string{
		"",
		"INVALID",
		"JKT-12345",
		"JKT-12345-ABC",
		"XXX-12345-ABC123-CHECKSUM",
		"JKT-ABCDE-ABC123-CHECKSUM",
		"JKT-12345-abc123-CHECKSUM",
		"JKT-12345-ABC123-CHECKSUM",
		"JKT-12345-ABC123-00000000-EXTRA",
	}
	for _, id := range rejected {
		assert.False(t, Validate(id), id)
	}
}

func TestWithChecksum(t *testing.T) {
	id := WithChecksum("JKT", "12345", "ABC123")
	assert.True(t, Validate(id))

	// tampering with the member number invalidates the checksum
	tampered := strings.Replace(id, "12345", "12346", 1)
	assert.False(t, Validate(tampered))
}

func TestExtractMalformed(t *testing.T) {
	_, ok := ExtractMemberNumber("JKT-12345")
	assert.False(t, ok)
	_, ok = ExtractBranchCode("a-b-c-d-e")
	assert.False(t, ok)

	// extraction is structural only
	number, ok := ExtractMemberNumber("XXX-999-TOKEN-BADSUM")
	assert.True(t, ok)
	assert.Equal(t, "999", number)
}

func TestGenerateValidatesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		number := rapid.StringMatching(`[0-9]{1,12}`).Draw(t, "memberNumber")
		branch := rapid.SampledFrom(KnownBranches).Draw(t, "branch")

		id, err := Generate(number, branch)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !Validate(id) {
			t.Fatalf("generated id %q does not validate", id)
		}
	})
}
