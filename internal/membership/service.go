// internal/membership/service.go
package membership

import (
	"context"
	"time"

	"sinoman/internal/attendance"
	"sinoman/internal/membercard"
)

// Service issues and checks member cards and keeps their history.
type Service interface {
	GenerateMemberID(ctx context.Context, memberNumber, branchCode string) (string, error)
	InspectMemberID(ctx context.Context, memberID string) MemberIDInfo

	IssueCard(ctx context.Context, data membercard.MemberCardData, opts membercard.GenerateOptions) (*IssuedCard, error)
	VerifyCard(ctx context.Context, qr string) (membercard.VerificationResult, error)
	QuickVerify(ctx context.Context, qr string) (membercard.QuickResult, error)

	IssueVerificationQR(ctx context.Context, memberID, memberNumber, fullName string, status membercard.MembershipStatus) (*membercard.QRCode, error)
	VerifyVerificationQR(ctx context.Context, qr string) (membercard.VerificationResult, error)

	IssueAttendanceQR(ctx context.Context, memberID, eventID, eventName string, eventDate time.Time) (*membercard.QRCode, error)
	CheckIn(ctx context.Context, qr, eventID string) (*CheckInResult, error)
	EventAttendance(ctx context.Context, eventID string) (*AttendanceSummary, error)
	CheckInStatus(ctx context.Context, eventID, memberID string) (*attendance.CheckIn, error)

	CardHistory(ctx context.Context, memberID string) ([]CardEvent, error)
	// CardEventFeed pages through every member's card events after afterID.
	CardEventFeed(ctx context.Context, afterID int64, limit int) ([]CardEvent, error)
}
