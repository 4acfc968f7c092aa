// internal/membercard/verify.go
package membercard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"sinoman/internal/memberid"
)

const (
	errMissingChecksum  = "Missing checksum"
	errChecksumMismatch = "Checksum mismatch: QR data may have been tampered with"
	errUndecodable      = "Invalid QR data: unable to decode payload"
	errDataChecksum     = "Data checksum mismatch"
	errInvalidMemberID  = "Invalid member ID"
	errCardExpired      = "Member card has expired"
	errSuspended        = "Member account is suspended"
	errWrongEvent       = "QR code is for a different event"
	errAttendanceExpiry = "Attendance QR has expired"
)

var errNoCipher = errors.New("payload is not JSON and no cipher is configured")

// VerifyMemberCardQR checks a scanned member card payload. It never panics
// and reports every failure through the result.
func (c *Codec) VerifyMemberCardQR(qr string) VerificationResult {
	res := VerificationResult{Errors: []string{}}

	env, failure := c.open(qr, FormatMemberCard)
	if failure != "" {
		return res.fail(failure)
	}

	var payload CardPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return res.fail("Invalid card data: " + err.Error())
	}
	res.Envelope = env
	res.CardData = &payload
	res.MemberID = payload.MemberID
	res.MemberNumber = payload.MemberNumber

	return c.checkMember(res, env, payload.MemberID, payload.MembershipStatus)
}

// VerifyMemberVerificationQR checks a payload made by GenerateMemberVerificationQR.
func (c *Codec) VerifyMemberVerificationQR(qr string) VerificationResult {
	res := VerificationResult{Errors: []string{}}

	env, failure := c.open(qr, FormatVerification)
	if failure != "" {
		return res.fail(failure)
	}

	var payload VerificationPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return res.fail("Invalid verification data: " + err.Error())
	}
	res.Envelope = env
	res.Verification = &payload
	res.MemberID = payload.MemberID
	res.MemberNumber = payload.MemberNumber

	return c.checkMember(res, env, payload.MemberID, payload.Status)
}

// QuickVerifyMemberQR is VerifyMemberCardQR without the error list. Member
// fields are only filled in for valid cards.
func (c *Codec) QuickVerifyMemberQR(qr string) QuickResult {
	res := c.VerifyMemberCardQR(qr)
	if !res.IsValid {
		return QuickResult{}
	}
	return QuickResult{
		IsValid:          true,
		MemberID:         res.MemberID,
		MemberNumber:     res.MemberNumber,
		MembershipStatus: res.CardData.MembershipStatus,
	}
}

// VerifyAttendanceQR checks an attendance payload against the event being
// checked in. Payloads are accepted until AttendanceGrace after the event date.
func (c *Codec) VerifyAttendanceQR(qr, expectedEventID string) AttendanceResult {
	res := AttendanceResult{Errors: []string{}}
	fail := func(msg string) AttendanceResult {
		res.Errors = append(res.Errors, msg)
		res.IsValid = false
		return res
	}

	env, failure := c.open(qr, FormatAttendance)
	if failure != "" {
		return fail(failure)
	}

	var payload AttendancePayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		return fail("Invalid attendance data: " + err.Error())
	}
	res.Attendance = &payload
	res.MemberID = payload.MemberID

	if !memberid.Validate(payload.MemberID) {
		return fail(errInvalidMemberID)
	}
	if payload.EventID != expectedEventID {
		return fail(errWrongEvent)
	}

	eventDate, err := time.Parse(time.RFC3339, payload.EventDate)
	if err != nil {
		return fail("Invalid event date: " + payload.EventDate)
	}
	if c.nowFn().After(eventDate.Add(AttendanceGrace)) {
		res.IsExpired = true
		return fail(errAttendanceExpiry)
	}

	res.IsValid = true
	return res
}

func (c *Codec) checkMember(res VerificationResult, env *Envelope, id string, status MembershipStatus) VerificationResult {
	if !memberid.Validate(id) {
		return res.fail(errInvalidMemberID)
	}
	if env.ExpiresAt != nil && c.nowFn().UnixMilli() > *env.ExpiresAt {
		res.IsExpired = true
		return res.fail(errCardExpired)
	}
	if status == StatusSuspended {
		res.IsSuspended = true
		return res.fail(errSuspended)
	}
	res.IsValid = true
	return res
}

func (r VerificationResult) fail(msg string) VerificationResult {
	r.Errors = append(r.Errors, msg)
	r.IsValid = false
	return r
}

// open runs the checks shared by every format: body checksum, decoding
// (decrypting when needed), format, version and data checksum. It returns the
// first failure message.
func (c *Codec) open(qr, format string) (*Envelope, string) {
	idx := strings.LastIndex(qr, checksumDelimiter)
	if idx < 0 {
		return nil, errMissingChecksum
	}
	body, sum := qr[:idx], qr[idx+len(checksumDelimiter):]
	if body == "" || c.hasher.Sum(body) != sum {
		return nil, errChecksumMismatch
	}

	env, err := c.decodeEnvelope(body)
	if err != nil {
		return nil, errUndecodable
	}

	if env.Format != format {
		return nil, fmt.Sprintf("Invalid format: expected %s, got %s", format, env.Format)
	}
	if !compatibleVersion(env.Version) {
		return nil, fmt.Sprintf("Incompatible version: %s", env.Version)
	}
	if c.hasher.Sum(string(env.Data)) != env.Checksum {
		return nil, errDataChecksum
	}
	return env, ""
}

func (c *Codec) decodeEnvelope(body string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(body), &env); err == nil {
		return &env, nil
	}

	if c.cipher == nil {
		return nil, errNoCipher
	}
	plain, err := c.cipher.Decrypt(body)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(plain), &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func compatibleVersion(v string) bool {
	return majorVersion(v) != "" && majorVersion(v) == majorVersion(QRVersion)
}

func majorVersion(v string) string {
	major, _, _ := strings.Cut(v, ".")
	return major
}
