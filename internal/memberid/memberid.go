// internal/memberid/memberid.go
package memberid

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sinoman/internal/apperr"
	"sinoman/internal/cardcrypto"
)

// DefaultBranch is used when Generate is called without a branch code.
const DefaultBranch = "SBY"

// KnownBranches lists the branch codes a member ID may carry.
var KnownBranches = []string{"JKT", "SBY", "SDA", "GRS", "MLG", "BDG", "SMG", "YGY"}

var (
	numericPattern  = regexp.MustCompile(`^[0-9]+$`)
	tokenPattern    = regexp.MustCompile(`^[A-Z0-9]+$`)
	checksumPattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)
)

// nowFn is swapped in tests.
var nowFn = time.Now

// ID is a member identifier split into its segments.
type ID struct {
	BranchCode   string
	MemberNumber string
	Token        string
	Checksum     string
}

func (id ID) String() string {
	return strings.Join([]string{id.BranchCode, id.MemberNumber, id.Token, id.Checksum}, "-")
}

// IsKnownBranch reports whether code is one of KnownBranches.
func IsKnownBranch(code string) bool {
	for _, b := range KnownBranches {
		if b == code {
			return true
		}
	}
	return false
}

// Generate builds "{branch}-{memberNumber}-{token}-{checksum}". The token is
// derived from the clock plus two random characters so repeated calls differ.
func Generate(memberNumber, branchCode string) (string, error) {
	if memberNumber == "" {
		return "", apperr.Validation("memberid.Generate", "member_number", "must not be empty")
	}
	if branchCode == "" {
		branchCode = DefaultBranch
	}

	token, err := timestampToken(nowFn())
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "memberid.Generate", err)
	}

	prefix := branchCode + "-" + memberNumber + "-" + token
	return prefix + "-" + cardcrypto.Checksum(prefix), nil
}

func timestampToken(now time.Time) (string, error) {
	var b strings.Builder
	b.WriteString(strings.ToUpper(strconv.FormatInt(now.UnixMicro(), 36)))
	for i := 0; i < 2; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(cardcrypto.ChecksumAlphabet))))
		if err != nil {
			return "", err
		}
		b.WriteByte(cardcrypto.ChecksumAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Parse splits id into its four segments without validating them.
func Parse(id string) (ID, bool) {
	parts := strings.Split(id, "-")
	if len(parts) != 4 {
		return ID{}, false
	}
	return ID{BranchCode: parts[0], MemberNumber: parts[1], Token: parts[2], Checksum: parts[3]}, true
}

// Validate reports whether id is well formed and its checksum matches.
func Validate(id string) bool {
	p, ok := Parse(id)
	if !ok {
		return false
	}
	if !IsKnownBranch(p.BranchCode) {
		return false
	}
	if !numericPattern.MatchString(p.MemberNumber) {
		return false
	}
	if !tokenPattern.MatchString(p.Token) {
		return false
	}
	if !checksumPattern.MatchString(p.Checksum) {
		return false
	}
	return cardcrypto.Checksum(p.BranchCode+"-"+p.MemberNumber+"-"+p.Token) == p.Checksum
}

// ExtractMemberNumber returns the member number segment. The checksum is not
// re-validated.
func ExtractMemberNumber(id string) (string, bool) {
	p, ok := Parse(id)
	if !ok {
		return "", false
	}
	return p.MemberNumber, true
}

// ExtractBranchCode returns the branch segment. The checksum is not
// re-validated.
func ExtractBranchCode(id string) (string, bool) {
	p, ok := Parse(id)
	if !ok {
		return "", false
	}
	return p.BranchCode, true
}

// WithChecksum completes "{branch}-{memberNumber}-{token}" with its checksum.
// Used to build fixed identifiers for imports and fixtures.
func WithChecksum(branchCode, memberNumber, token string) string {
	prefix := branchCode + "-" + memberNumber + "-" + token
	return prefix + "-" + cardcrypto.Checksum(prefix)
}
