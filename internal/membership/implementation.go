// internal/membership/implementation.go
package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"sinoman/internal/apperr"
	"sinoman/internal/attendance"
	"sinoman/internal/eventstore"
	"sinoman/internal/membercard"
	"sinoman/internal/memberid"
)

// Feed page sizes for CardEventFeed.
const (
	DefaultFeedLimit = 100
	MaxFeedLimit     = 1000
)

// maxAppendAttempts bounds retries after a concurrent write to the same
// member's history.
const maxAppendAttempts = 3

// service implements the Service interface.
type service struct {
	store    eventstore.Store
	recorder attendance.Recorder
	codec    *membercard.Codec
	limiter  *rate.Limiter
	logger   *zap.Logger
	tracer   trace.Tracer
	nowFn    func() time.Time

	issued   metric.Int64Counter
	verified metric.Int64Counter
	checkIns metric.Int64Counter
}

// Option configures the service.
type Option func(*service)

// WithClock overrides time.Now for check-in timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.nowFn = now }
}

// WithLimiter bounds the verification and check-in rate. Without one the
// service allows 5 scans per second.
func WithLimiter(l *rate.Limiter) Option {
	return func(s *service) { s.limiter = l }
}

// NewService creates a new card service.
func NewService(store eventstore.Store, recorder attendance.Recorder, codec *membercard.Codec, logger *zap.Logger, opts ...Option) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &service{
		store:    store,
		recorder: recorder,
		codec:    codec,
		limiter:  rate.NewLimiter(rate.Limit(5), 10),
		logger:   logger,
		tracer:   otel.Tracer("sinoman/membership"),
		nowFn:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	meter := otel.Meter("sinoman/membership")
	s.issued = s.counter(meter, "sinoman.qr.issued", "QR payloads generated, by format")
	s.verified = s.counter(meter, "sinoman.qr.verified", "QR payloads verified, by format and outcome")
	s.checkIns = s.counter(meter, "sinoman.attendance.check_ins", "Attendance check-ins, by outcome")
	return s
}

func (s *service) counter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		s.logger.Warn("failed to create counter", zap.String("name", name), zap.Error(err))
		c, _ = noop.Meter{}.Int64Counter(name)
	}
	return c
}

func (s *service) allow(op string) error {
	if !s.limiter.Allow() {
		return apperr.New(apperr.KindRateLimited, op, "rate limit exceeded")
	}
	return nil
}

func (s *service) GenerateMemberID(ctx context.Context, memberNumber, branchCode string) (string, error) {
	_, span := s.tracer.Start(ctx, "membership.generate_member_id")
	defer span.End()

	if branchCode != "" && !memberid.IsKnownBranch(branchCode) {
		return "", apperr.Validation("membership.GenerateMemberID", "branch_code", "unknown branch %q", branchCode)
	}
	id, err := memberid.Generate(memberNumber, branchCode)
	if err != nil {
		return "", err
	}
	span.SetAttributes(attribute.String("member.id", id))
	return id, nil
}

func (s *service) InspectMemberID(_ context.Context, id string) MemberIDInfo {
	info := MemberIDInfo{MemberID: id, Valid: memberid.Validate(id)}
	if info.Valid {
		info.BranchCode, _ = memberid.ExtractBranchCode(id)
		info.MemberNumber, _ = memberid.ExtractMemberNumber(id)
	}
	return info
}

// IssueCard validates the member snapshot, generates the card QR and logs it.
func (s *service) IssueCard(ctx context.Context, data membercard.MemberCardData, opts membercard.GenerateOptions) (*IssuedCard, error) {
	ctx, span := s.tracer.Start(ctx, "membership.issue_card",
		trace.WithAttributes(
			attribute.String("member.id", data.MemberID),
			attribute.Bool("qr.encrypted", opts.EncryptData),
		),
	)
	defer span.End()

	if err := data.Validate(); err != nil {
		return nil, err
	}

	qr, err := s.codec.GenerateMemberCardQR(data, opts)
	if err != nil {
		return nil, err
	}

	serial := uuid.New()
	event := CardIssuedEvent{
		Serial:              serial,
		MemberNumber:        data.MemberNumber,
		MembershipStatus:    string(data.MembershipStatus),
		Encrypted:           qr.IsEncrypted,
		IncludePersonalData: opts.IncludePersonalData,
		ExpiresAt:           millisToTime(qr.Envelope.ExpiresAt),
		Checksum:            qr.Checksum,
	}
	if err := s.appendEvent(ctx, data.MemberID, EventCardIssued, event); err != nil {
		return nil, err
	}

	s.issued.Add(ctx, 1, metric.WithAttributes(attribute.String("format", qr.Metadata.Format)))
	s.logger.Info("member card issued",
		zap.String("member_id", data.MemberID),
		zap.String("serial", serial.String()),
		zap.Bool("encrypted", qr.IsEncrypted),
		zap.Int("qr_length", len(qr.QRData)),
	)
	return &IssuedCard{Serial: serial, QR: qr}, nil
}

func (s *service) VerifyCard(ctx context.Context, qr string) (membercard.VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "membership.verify_card")
	defer span.End()

	if err := s.allow("membership.VerifyCard"); err != nil {
		return membercard.VerificationResult{}, err
	}

	res := s.codec.VerifyMemberCardQR(qr)
	span.SetAttributes(attribute.Bool("card.valid", res.IsValid))
	s.recordVerification(ctx, membercard.FormatMemberCard, res)
	return res, nil
}

func (s *service) QuickVerify(ctx context.Context, qr string) (membercard.QuickResult, error) {
	ctx, span := s.tracer.Start(ctx, "membership.quick_verify")
	defer span.End()

	if err := s.allow("membership.QuickVerify"); err != nil {
		return membercard.QuickResult{}, err
	}

	res := s.codec.QuickVerifyMemberQR(qr)
	s.verified.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", membercard.FormatMemberCard),
		attribute.Bool("valid", res.IsValid),
	))
	return res, nil
}

func (s *service) IssueVerificationQR(ctx context.Context, memberID, memberNumber, fullName string, status membercard.MembershipStatus) (*membercard.QRCode, error) {
	const op = "membership.IssueVerificationQR"
	ctx, span := s.tracer.Start(ctx, "membership.issue_verification_qr",
		trace.WithAttributes(attribute.String("member.id", memberID)),
	)
	defer span.End()

	if !memberid.Validate(memberID) {
		return nil, apperr.Validation(op, "member_id", "invalid member ID %q", memberID)
	}
	if number, _ := memberid.ExtractMemberNumber(memberID); number != memberNumber {
		return nil, apperr.Validation(op, "member_number", "does not match member ID")
	}
	if status != "" && !status.Valid() {
		return nil, apperr.Validation(op, "status", "unknown status %q", status)
	}

	qr, err := s.codec.GenerateMemberVerificationQR(memberID, memberNumber, fullName, status)
	if err != nil {
		return nil, err
	}
	event := QRIssuedEvent{
		Format:    qr.Metadata.Format,
		ExpiresAt: millisToTime(qr.Envelope.ExpiresAt),
		Checksum:  qr.Checksum,
	}
	if err := s.appendEvent(ctx, memberID, EventVerificationIssued, event); err != nil {
		return nil, err
	}
	s.issued.Add(ctx, 1, metric.WithAttributes(attribute.String("format", qr.Metadata.Format)))
	return qr, nil
}

func (s *service) VerifyVerificationQR(ctx context.Context, qr string) (membercard.VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, "membership.verify_verification_qr")
	defer span.End()

	if err := s.allow("membership.VerifyVerificationQR"); err != nil {
		return membercard.VerificationResult{}, err
	}

	res := s.codec.VerifyMemberVerificationQR(qr)
	span.SetAttributes(attribute.Bool("card.valid", res.IsValid))
	s.recordVerification(ctx, membercard.FormatVerification, res)
	return res, nil
}

func (s *service) IssueAttendanceQR(ctx context.Context, memberID, eventID, eventName string, eventDate time.Time) (*membercard.QRCode, error) {
	const op = "membership.IssueAttendanceQR"
	ctx, span := s.tracer.Start(ctx, "membership.issue_attendance_qr",
		trace.WithAttributes(
			attribute.String("member.id", memberID),
			attribute.String("event.id", eventID),
		),
	)
	defer span.End()

	if !memberid.Validate(memberID) {
		return nil, apperr.Validation(op, "member_id", "invalid member ID %q", memberID)
	}
	if eventID == "" {
		return nil, apperr.Validation(op, "event_id", "must not be empty")
	}
	if eventDate.IsZero() {
		return nil, apperr.Validation(op, "event_date", "must be set")
	}

	qr, err := s.codec.GenerateAttendanceQR(memberID, eventID, eventName, eventDate)
	if err != nil {
		return nil, err
	}
	event := QRIssuedEvent{Format: qr.Metadata.Format, EventID: eventID, Checksum: qr.Checksum}
	if err := s.appendEvent(ctx, memberID, EventAttendanceIssued, event); err != nil {
		return nil, err
	}
	s.issued.Add(ctx, 1, metric.WithAttributes(attribute.String("format", qr.Metadata.Format)))
	return qr, nil
}

// CheckIn verifies an attendance QR for eventID and records the member's
// attendance. A second scan of the same member is a conflict.
func (s *service) CheckIn(ctx context.Context, qr, eventID string) (*CheckInResult, error) {
	const op = "membership.CheckIn"
	ctx, span := s.tracer.Start(ctx, "membership.check_in",
		trace.WithAttributes(attribute.String("event.id", eventID)),
	)
	defer span.End()

	if eventID == "" {
		return nil, apperr.Validation(op, "event_id", "must not be empty")
	}
	if err := s.allow(op); err != nil {
		return nil, err
	}

	verification := s.codec.VerifyAttendanceQR(qr, eventID)
	result := &CheckInResult{Verification: verification}
	if !verification.IsValid {
		s.checkIns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rejected")))
		return result, nil
	}

	checkIn := attendance.CheckIn{
		ID:        uuid.NewString(),
		EventID:   eventID,
		MemberID:  verification.MemberID,
		CheckedIn: s.nowFn().UTC(),
	}
	if err := s.recorder.Record(ctx, checkIn); err != nil {
		if errors.Is(err, attendance.ErrAlreadyCheckedIn) {
			s.checkIns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "duplicate")))
			return nil, apperr.Wrap(apperr.KindConflict, op, err)
		}
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}

	event := AttendanceCheckedInEvent{
		CheckInID: uuid.MustParse(checkIn.ID),
		EventID:   eventID,
		EventName: verification.Attendance.EventName,
	}
	if err := s.appendEvent(ctx, verification.MemberID, EventAttendanceCheckedIn, event); err != nil {
		// attendance is already recorded; history catches up on the next write
		s.logger.Error("failed to log check-in",
			zap.String("member_id", verification.MemberID),
			zap.String("event_id", eventID),
			zap.Error(err),
		)
	}

	s.checkIns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "accepted")))
	s.logger.Info("member checked in",
		zap.String("member_id", verification.MemberID),
		zap.String("event_id", eventID),
	)
	result.Accepted = true
	result.CheckIn = &checkIn
	return result, nil
}

func (s *service) EventAttendance(ctx context.Context, eventID string) (*AttendanceSummary, error) {
	const op = "membership.EventAttendance"
	ctx, span := s.tracer.Start(ctx, "membership.event_attendance",
		trace.WithAttributes(attribute.String("event.id", eventID)),
	)
	defer span.End()

	if eventID == "" {
		return nil, apperr.Validation(op, "event_id", "must not be empty")
	}
	count, err := s.recorder.Count(ctx, eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}
	members, err := s.recorder.Members(ctx, eventID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}
	span.SetAttributes(attribute.Int64("attendance.count", count))
	return &AttendanceSummary{EventID: eventID, Count: count, Members: members}, nil
}

func (s *service) CheckInStatus(ctx context.Context, eventID, memberID string) (*attendance.CheckIn, error) {
	const op = "membership.CheckInStatus"
	ctx, span := s.tracer.Start(ctx, "membership.check_in_status",
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("member.id", memberID),
		),
	)
	defer span.End()

	if !memberid.Validate(memberID) {
		return nil, apperr.Validation(op, "member_id", "invalid member ID %q", memberID)
	}
	checkIn, err := s.recorder.Get(ctx, eventID, memberID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}
	if checkIn == nil {
		return nil, &apperr.Error{Kind: apperr.KindNotFound, Op: op, Message: "member has not checked in to this event"}
	}
	return checkIn, nil
}

func (s *service) CardHistory(ctx context.Context, memberID string) ([]CardEvent, error) {
	ctx, span := s.tracer.Start(ctx, "membership.card_history",
		trace.WithAttributes(attribute.String("member.id", memberID)),
	)
	defer span.End()

	if !memberid.Validate(memberID) {
		return nil, apperr.Validation("membership.CardHistory", "member_id", "invalid member ID %q", memberID)
	}

	events, err := s.store.LoadEvents(ctx, memberID, 1, 0)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "membership.CardHistory", err)
	}
	history := make([]CardEvent, 0, len(events))
	for _, e := range events {
		history = append(history, CardEvent{
			Version:   e.Version,
			Type:      e.EventType,
			Data:      e.EventData,
			CreatedAt: e.CreatedAt,
		})
	}
	return history, nil
}

// recordVerification logs a scan against the member it names. Scans that
// never yielded a well-formed member ID have no history to join.
func (s *service) CardEventFeed(ctx context.Context, afterID int64, limit int) ([]CardEvent, error) {
	const op = "membership.CardEventFeed"
	ctx, span := s.tracer.Start(ctx, "membership.card_event_feed")
	defer span.End()

	if afterID < 0 {
		return nil, apperr.Validation(op, "after", "must not be negative")
	}
	switch {
	case limit <= 0:
		limit = DefaultFeedLimit
	case limit > MaxFeedLimit:
		limit = MaxFeedLimit
	}

	events, err := s.store.StreamEvents(ctx, afterID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, err)
	}
	feed := make([]CardEvent, 0, len(events))
	for _, e := range events {
		feed = append(feed, CardEvent{
			ID:        e.ID,
			MemberID:  e.AggregateID,
			Version:   e.Version,
			Type:      e.EventType,
			Data:      e.EventData,
			CreatedAt: e.CreatedAt,
		})
	}
	return feed, nil
}

func (s *service) recordVerification(ctx context.Context, format string, res membercard.VerificationResult) {
	s.verified.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", format),
		attribute.Bool("valid", res.IsValid),
	))
	if !memberid.Validate(res.MemberID) {
		return
	}
	event := CardVerifiedEvent{
		Format:    format,
		Valid:     res.IsValid,
		Expired:   res.IsExpired,
		Suspended: res.IsSuspended,
		Errors:    res.Errors,
	}
	if err := s.appendEvent(ctx, res.MemberID, EventCardVerified, event); err != nil {
		s.logger.Warn("failed to log verification", zap.String("member_id", res.MemberID), zap.Error(err))
	}
}

func (s *service) appendEvent(ctx context.Context, memberID, eventType string, data any) error {
	const op = "membership.appendEvent"

	raw, err := json.Marshal(data)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, op, fmt.Errorf("failed to marshal event data: %w", err))
	}
	event := eventstore.Event{EventType: eventType, EventData: raw}

	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		version, err := s.store.GetCurrentVersion(ctx, memberID)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, op, err)
		}
		err = s.store.AppendEvents(ctx, memberID, AggregateType, version, []eventstore.Event{event})
		if err == nil {
			return nil
		}
		if !errors.Is(err, eventstore.ErrConcurrencyConflict) {
			return apperr.Wrap(apperr.KindInternal, op, fmt.Errorf("failed to append event: %w", err))
		}
		s.logger.Debug("retrying event append", zap.String("member_id", memberID), zap.Int("attempt", attempt))
	}
	return apperr.Wrap(apperr.KindConflict, op, eventstore.ErrConcurrencyConflict)
}

func millisToTime(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}
