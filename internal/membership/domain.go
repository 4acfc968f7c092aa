// internal/membership/domain.go
package membership

import (
	"time"

	"github.com/google/uuid"
	json "github.com/goccy/go-json"

	"sinoman/internal/attendance"
	"sinoman/internal/membercard"
)

// AggregateType is the event store aggregate every card event belongs to.
const AggregateType = "member_card"

const (
	EventCardIssued          = "CardIssued"
	EventCardVerified        = "CardVerified"
	EventVerificationIssued  = "VerificationIssued"
	EventAttendanceIssued    = "AttendanceIssued"
	EventAttendanceCheckedIn = "AttendanceCheckedIn"
)

// IssuedCard is a generated member card with the serial it was logged under.
type IssuedCard struct {
	Serial uuid.UUID          `json:"serial"`
	QR     *membercard.QRCode `json:"qr"`
}

// MemberIDInfo describes a member identifier.
type MemberIDInfo struct {
	MemberID     string `json:"member_id"`
	Valid        bool   `json:"valid"`
	BranchCode   string `json:"branch_code,omitempty"`
	MemberNumber string `json:"member_number,omitempty"`
}

// CheckInResult is the outcome of scanning an attendance QR at the door.
type CheckInResult struct {
	Accepted     bool                        `json:"accepted"`
	Verification membercard.AttendanceResult `json:"verification"`
	CheckIn      *attendance.CheckIn         `json:"check_in,omitempty"`
}

// CardEvent is one entry of a member's card history. ID and MemberID are
// only set in the event feed.
type CardEvent struct {
	ID        int64           `json:"id,omitempty"`
	MemberID  string          `json:"member_id,omitempty"`
	Version   int             `json:"version"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// AttendanceSummary lists who checked in to an event.
type AttendanceSummary struct {
	EventID string   `json:"event_id"`
	Count   int64    `json:"count"`
	Members []string `json:"members"`
}

// CardIssuedEvent is recorded when a member card QR is generated.
type CardIssuedEvent struct {
	Serial              uuid.UUID  `json:"serial"`
	MemberNumber        string     `json:"member_number"`
	MembershipStatus    string     `json:"membership_status"`
	Encrypted           bool       `json:"encrypted"`
	IncludePersonalData bool       `json:"include_personal_data"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	Checksum            string     `json:"checksum"`
}

// CardVerifiedEvent is recorded for every scan that carried a well-formed
// member ID, valid or not.
type CardVerifiedEvent struct {
	Format    string   `json:"format"`
	Valid     bool     `json:"valid"`
	Expired   bool     `json:"expired"`
	Suspended bool     `json:"suspended"`
	Errors    []string `json:"errors,omitempty"`
}

// QRIssuedEvent is recorded for verification and attendance QRs.
type QRIssuedEvent struct {
	Format    string     `json:"format"`
	EventID   string     `json:"event_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Checksum  string     `json:"checksum"`
}

// AttendanceCheckedInEvent is recorded once per member per event.
type AttendanceCheckedInEvent struct {
	CheckInID uuid.UUID `json:"check_in_id"`
	EventID   string    `json:"event_id"`
	EventName string    `json:"event_name"`
}
