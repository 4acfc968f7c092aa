// internal/membercard/domain.go
package membercard

import (
	"errors"
	"time"

	json "github.com/goccy/go-json"

	"sinoman/internal/apperr"
	"sinoman/internal/memberid"
	"sinoman/internal/validation"
)

const (
	FormatMemberCard   = "KOPERASI_SINOMAN_MEMBER"
	FormatVerification = "KOPERASI_SINOMAN_VERIFICATION"
	FormatAttendance   = "KOPERASI_SINOMAN_ATTENDANCE"

	// QRVersion is written into every envelope. Readers accept any version
	// with the same major component.
	QRVersion = "1.0"

	// MaxQRDataLength bounds the final "<body>|CHK:<checksum>" string in
	// UTF-8 bytes, the unit of QR byte mode.
	MaxQRDataLength = 2048

	// VerificationTTL is how long a verification QR stays valid.
	VerificationTTL = 24 * time.Hour

	// AttendanceGrace is how long after the event date an attendance QR is accepted.
	AttendanceGrace = 24 * time.Hour

	checksumDelimiter = "|CHK:"
	dateLayout        = "2006-01-02"
)

// ErrQRDataTooLarge is returned when an encoded payload exceeds MaxQRDataLength.
var ErrQRDataTooLarge = errors.New("QR data too large")

type MembershipType string

const (
	MembershipRegular  MembershipType = "regular"
	MembershipPremium  MembershipType = "premium"
	MembershipInvestor MembershipType = "investor"
)

func (t MembershipType) Valid() bool {
	switch t {
	case MembershipRegular, MembershipPremium, MembershipInvestor:
		return true
	}
	return false
}

type MembershipStatus string

const (
	StatusActive    MembershipStatus = "active"
	StatusInactive  MembershipStatus = "inactive"
	StatusSuspended MembershipStatus = "suspended"
)

func (s MembershipStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// MemberCardData is a snapshot of a member at card-issue time.
type MemberCardData struct {
	MemberID         string           `json:"member_id"`
	MemberNumber     string           `json:"member_number"`
	FullName         string           `json:"full_name"`
	NIK              string           `json:"nik,omitempty"`
	NPWP             string           `json:"npwp,omitempty"`
	Phone            string           `json:"phone"`
	Email            string           `json:"email,omitempty"`
	MembershipType   MembershipType   `json:"membership_type"`
	MembershipStatus MembershipStatus `json:"membership_status"`
	JoinDate         time.Time        `json:"join_date"`
	BranchCode       string           `json:"branch_code"`
	PhotoURL         string           `json:"photo_url,omitempty"`
}

// Validate checks a snapshot before a card is issued for it.
func (d MemberCardData) Validate() error {
	const op = "membercard.Validate"

	if !memberid.Validate(d.MemberID) {
		return apperr.Validation(op, "member_id", "invalid member ID %q", d.MemberID)
	}
	if number, _ := memberid.ExtractMemberNumber(d.MemberID); number != d.MemberNumber {
		return apperr.Validation(op, "member_number", "does not match member ID")
	}
	if branch, _ := memberid.ExtractBranchCode(d.MemberID); branch != d.BranchCode {
		return apperr.Validation(op, "branch_code", "does not match member ID")
	}
	if err := validation.ValidateFullName(d.FullName); err != nil {
		return apperr.Validation(op, "full_name", "%v", err)
	}
	if d.NIK != "" {
		if err := validation.ValidateNIK(d.NIK); err != nil {
			return apperr.Validation(op, "nik", "%v", err)
		}
	}
	if d.NPWP != "" {
		if err := validation.ValidateNPWP(d.NPWP); err != nil {
			return apperr.Validation(op, "npwp", "%v", err)
		}
	}
	if d.Phone != "" {
		if err := validation.ValidatePhone(d.Phone); err != nil {
			return apperr.Validation(op, "phone", "%v", err)
		}
	}
	if d.Email != "" {
		if err := validation.ValidateEmail(d.Email); err != nil {
			return apperr.Validation(op, "email", "%v", err)
		}
	}
	if !d.MembershipType.Valid() {
		return apperr.Validation(op, "membership_type", "unknown type %q", d.MembershipType)
	}
	if !d.MembershipStatus.Valid() {
		return apperr.Validation(op, "membership_status", "unknown status %q", d.MembershipStatus)
	}
	if d.JoinDate.IsZero() {
		return apperr.Validation(op, "join_date", "must be set")
	}
	return nil
}

// GenerateOptions controls what goes into a member card QR.
type GenerateOptions struct {
	IncludePersonalData bool              `json:"include_personal_data"`
	EncryptData         bool              `json:"encrypt_data"`
	ExpirationDays      *int              `json:"expiration_days,omitempty"`
	CustomFields        map[string]string `json:"custom_fields,omitempty"`
}

// Envelope wraps every QR data block. Timestamps are Unix milliseconds and
// Checksum covers Data.
type Envelope struct {
	Format    string          `json:"format"`
	Version   string          `json:"version"`
	Data      json.RawMessage `json:"data"`
	IssuedAt  int64           `json:"issuedAt"`
	ExpiresAt *int64          `json:"expiresAt,omitempty"`
	Checksum  string          `json:"checksum"`
}

// CardPayload is the data block of a member card QR.
type CardPayload struct {
	MemberID         string            `json:"memberId"`
	MemberNumber     string            `json:"memberNumber"`
	FullName         string            `json:"fullName"`
	MembershipType   MembershipType    `json:"membershipType"`
	MembershipStatus MembershipStatus  `json:"membershipStatus"`
	BranchCode       string            `json:"branchCode"`
	JoinDate         string            `json:"joinDate"`
	NIK              string            `json:"nik,omitempty"`
	NPWP             string            `json:"npwp,omitempty"`
	Email            string            `json:"email,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	CustomFields     map[string]string `json:"customFields,omitempty"`
}

// VerificationPayload is the data block of a verification QR.
type VerificationPayload struct {
	MemberID     string           `json:"memberId"`
	MemberNumber string           `json:"memberNumber"`
	FullName     string           `json:"fullName"`
	Status       MembershipStatus `json:"status"`
}

// AttendancePayload is the data block of an attendance QR.
type AttendancePayload struct {
	MemberID  string `json:"memberId"`
	EventID   string `json:"eventId"`
	EventName string `json:"eventName"`
	EventDate string `json:"eventDate"`
}

// Metadata describes a generated QR.
type Metadata struct {
	Version string `json:"version"`
	Format  string `json:"format"`
}

// QRCode is the output of every generator.
type QRCode struct {
	QRData      string   `json:"qr_data"`
	Envelope    Envelope `json:"card_data"`
	Checksum    string   `json:"checksum"`
	IsEncrypted bool     `json:"is_encrypted"`
	Metadata    Metadata `json:"metadata"`
}

// VerificationResult reports the outcome of verifying a card or verification
// QR. Fields other than IsValid are only trustworthy when IsValid is true.
type VerificationResult struct {
	IsValid      bool                 `json:"is_valid"`
	IsExpired    bool                 `json:"is_expired"`
	IsSuspended  bool                 `json:"is_suspended"`
	Errors       []string             `json:"errors"`
	MemberID     string               `json:"member_id,omitempty"`
	MemberNumber string               `json:"member_number,omitempty"`
	CardData     *CardPayload         `json:"card_data,omitempty"`
	Verification *VerificationPayload `json:"verification,omitempty"`
	Envelope     *Envelope            `json:"envelope,omitempty"`
}

// QuickResult is the reduced form of VerificationResult.
type QuickResult struct {
	IsValid          bool             `json:"is_valid"`
	MemberID         string           `json:"member_id,omitempty"`
	MemberNumber     string           `json:"member_number,omitempty"`
	MembershipStatus MembershipStatus `json:"membership_status,omitempty"`
}

// AttendanceResult reports the outcome of verifying an attendance QR.
type AttendanceResult struct {
	IsValid    bool               `json:"is_valid"`
	IsExpired  bool               `json:"is_expired"`
	Errors     []string           `json:"errors"`
	MemberID   string             `json:"member_id,omitempty"`
	Attendance *AttendancePayload `json:"attendance,omitempty"`
}
