// internal/validation/identity.go
package validation

import (
	"errors"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNIKFormat      = errors.New("NIK must be 16 digits")
	ErrNIKProvince    = errors.New("NIK province code is unknown")
	ErrNIKBirthDate   = errors.New("NIK birth date segment is invalid")
	ErrNPWPFormat     = errors.New("NPWP must be 15 or 16 digits")
	ErrPhoneFormat    = errors.New("phone must be an Indonesian mobile number")
	ErrEmailFormat    = errors.New("email address is invalid")
	ErrFullNameFormat = errors.New("full name must be 3 to 100 letters")
)

var (
	digitsOnly   = regexp.MustCompile(`^[0-9]+$`)
	mobileNumber = regexp.MustCompile(`^(\+62|62|0)8[1-9][0-9]{6,10}$`)
	nameChars    = regexp.MustCompile(`^[\p{L} .,'-]+$`)
	nonDigits    = regexp.MustCompile(`[^0-9]`)
)

// Province codes as issued by Dukcapil.
var provinceCodes = map[string]struct{}{
	"11": {}, "12": {}, "13": {}, "14": {}, "15": {}, "16": {}, "17": {}, "18": {}, "19": {}, "21": {},
	"31": {}, "32": {}, "33": {}, "34": {}, "35": {}, "36": {},
	"51": {}, "52": {}, "53": {},
	"61": {}, "62": {}, "63": {}, "64": {}, "65": {},
	"71": {}, "72": {}, "73": {}, "74": {}, "75": {}, "76": {},
	"81": {}, "82": {},
	"91": {}, "92": {}, "93": {}, "94": {}, "95": {}, "96": {},
}

// NIKInfo is what a national ID number encodes.
type NIKInfo struct {
	ProvinceCode string
	RegencyCode  string
	DistrictCode string
	BirthDate    time.Time
	Female       bool
	Serial       string
}

// ParseNIK validates a 16-digit NIK and decodes its segments. Women have 40
// added to the day of birth.
func ParseNIK(nik string) (NIKInfo, error) {
	if len(nik) != 16 || !digitsOnly.MatchString(nik) {
		return NIKInfo{}, ErrNIKFormat
	}
	province := nik[0:2]
	if _, ok := provinceCodes[province]; !ok {
		return NIKInfo{}, ErrNIKProvince
	}

	day, _ := strconv.Atoi(nik[6:8])
	month, _ := strconv.Atoi(nik[8:10])
	year, _ := strconv.Atoi(nik[10:12])

	female := false
	if day > 40 {
		female = true
		day -= 40
	}
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return NIKInfo{}, ErrNIKBirthDate
	}

	// two-digit years: anything ahead of the current year is last century
	century := 2000
	if year > time.Now().Year()%100 {
		century = 1900
	}
	birth := time.Date(century+year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if birth.Day() != day {
		return NIKInfo{}, ErrNIKBirthDate
	}

	return NIKInfo{
		ProvinceCode: province,
		RegencyCode:  nik[2:4],
		DistrictCode: nik[4:6],
		BirthDate:    birth,
		Female:       female,
		Serial:       nik[12:16],
	}, nil
}

// ValidateNIK reports whether nik is a well-formed national ID number.
func ValidateNIK(nik string) error {
	_, err := ParseNIK(nik)
	return err
}

// NormalizeNPWP strips the punctuation of a formatted tax number.
func NormalizeNPWP(npwp string) string {
	return nonDigits.ReplaceAllString(npwp, "")
}

// ValidateNPWP accepts the legacy 15-digit and the NIK-based 16-digit forms,
// with or without punctuation.
func ValidateNPWP(npwp string) error {
	digits := NormalizeNPWP(npwp)
	if len(digits) != 15 && len(digits) != 16 {
		return ErrNPWPFormat
	}
	return nil
}

// FormatNPWP renders a 15-digit NPWP as XX.XXX.XXX.X-XXX.XXX. Other lengths
// are returned as bare digits.
func FormatNPWP(npwp string) string {
	d := NormalizeNPWP(npwp)
	if len(d) != 15 {
		return d
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "." + d[8:9] + "-" + d[9:12] + "." + d[12:15]
}

// NormalizePhone rewrites a mobile number to the 62 country-code form.
func NormalizePhone(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	switch {
	case strings.HasPrefix(p, "+62"):
		return p[1:]
	case strings.HasPrefix(p, "0"):
		return "62" + p[1:]
	default:
		return p
	}
}

// ValidatePhone checks an Indonesian mobile number.
func ValidatePhone(phone string) error {
	p := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
	if !mobileNumber.MatchString(p) {
		return ErrPhoneFormat
	}
	return nil
}

// ValidateEmail checks a bare e-mail address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], ".") {
		return ErrEmailFormat
	}
	return nil
}

// ValidateFullName checks the length and character set of a person's name.
func ValidateFullName(name string) error {
	n := strings.TrimSpace(name)
	if len([]rune(n)) < 3 || len([]rune(n)) > 100 || !nameChars.MatchString(n) {
		return ErrFullNameFormat
	}
	return nil
}
