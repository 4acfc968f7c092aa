package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNIK(t *testing.T) {
	// Surabaya, male, born 17 August 1985
	info, err := ParseNIK("3578011708850001")
	require.NoError(t, err)
	assert.Equal(t, "35", info.ProvinceCode)
	assert.Equal(t, "78", info.RegencyCode)
	assert.False(t, info.Female)
	assert.Equal(t, time.Date(1985, time.August, 17, 0, 0, 0, 0, time.UTC), info.BirthDate)
	assert.Equal(t, "0001", info.Serial)

	// female: day + 40
	info, err = ParseNIK("3578015708850002")
	require.NoError(t, err)
	assert.True(t, info.Female)
	assert.Equal(t, 17, info.BirthDate.Day())
}

func TestParseNIKRejects(t *testing.T) {
	cases := map[string]error{
		"":                  ErrNIKFormat,
		"357801170885":      ErrNIKFormat,
		"35780117088500AB":  ErrNIKFormat,
		"9978011708850001":  ErrNIKProvince,
		"3578013208850001":  ErrNIKBirthDate,
		"3578011713850001":  ErrNIKBirthDate,
		"3578013102850001":  ErrNIKBirthDate,
		"35780117088500011": ErrNIKFormat,
	}
	for nik, want := range cases {
		assert.ErrorIs(t, ValidateNIK(nik), want, nik)
	}
}

func TestNPWP(t *testing.T) {
	assert.NoError(t, ValidateNPWP("09.254.294.3-407.000"))
	assert.NoError(t, ValidateNPWP("3578011708850001"))
	assert.ErrorIs(t, ValidateNPWP("12.345"), ErrNPWPFormat)

	assert.Equal(t, "09.254.294.3-407.000", FormatNPWP("092542943407000"))
	assert.Equal(t, "3578011708850001", FormatNPWP("3578011708850001"))
}

func TestPhone(t *testing.T) {
	for _, ok := range []string{"081234567890", "+6281234567890", "6281234567890", "0812-3456-7890"} {
		assert.NoError(t, ValidatePhone(ok), ok)
	}
	for _, bad := range []string{"", "021123456", "0812", "+1 555 0100", "0802345678"} {
		assert.ErrorIs(t, ValidatePhone(bad), ErrPhoneFormat, bad)
	}

	assert.Equal(t, "6281234567890", NormalizePhone("0812-3456-7890"))
	assert.Equal(t, "6281234567890", NormalizePhone("+62 812 3456 7890"))
}

func TestEmailAndName(t *testing.T) {
	assert.NoError(t, ValidateEmail("budi@sinoman.co.id"))
	assert.ErrorIs(t, ValidateEmail("Budi <budi@sinoman.co.id>"), ErrEmailFormat)
	assert.ErrorIs(t, ValidateEmail("budi@localhost"), ErrEmailFormat)
	assert.ErrorIs(t, ValidateEmail("not-an-email"), ErrEmailFormat)

	assert.NoError(t, ValidateFullName("Budi Santoso"))
	assert.NoError(t, ValidateFullName("Siti Nur'aini"))
	assert.ErrorIs(t, ValidateFullName("Bu"), ErrFullNameFormat)
	assert.ErrorIs(t, ValidateFullName("R2-D2"), ErrFullNameFormat)
}
