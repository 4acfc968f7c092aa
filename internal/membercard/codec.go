// internal/membercard/codec.go
package membercard

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"sinoman/internal/apperr"
	"sinoman/internal/cardcrypto"
	"sinoman/internal/validation"
)

// Checksummer computes the tamper-evidence checksum of a string.
type Checksummer interface {
	Sum(data string) string
}

// Cipher reversibly obfuscates QR bodies.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Codec generates and verifies QR payloads. A Codec holds no mutable state
// and is safe for concurrent use.
type Codec struct {
	hasher  Checksummer
	cipher  Cipher
	nowFn   func() time.Time
	maxSize int
}

// Option configures a Codec.
type Option func(*Codec)

// WithChecksummer replaces the default unkeyed checksum.
func WithChecksummer(h Checksummer) Option {
	return func(c *Codec) {
		if h != nil {
			c.hasher = h
		}
	}
}

// WithCipher enables EncryptData and decryption of sealed payloads.
func WithCipher(cipher Cipher) Option {
	return func(c *Codec) {
		c.cipher = cipher
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.nowFn = now
		}
	}
}

// NewCodec returns a Codec with the given options.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{
		nowFn:   time.Now,
		maxSize: MaxQRDataLength,
	}
	c.hasher, _ = cardcrypto.NewHasher(nil)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateMemberCardQR encodes a member snapshot into a checksummed,
// optionally encrypted QR payload.
func (c *Codec) GenerateMemberCardQR(data MemberCardData, opts GenerateOptions) (*QRCode, error) {
	payload := CardPayload{
		MemberID:         data.MemberID,
		MemberNumber:     data.MemberNumber,
		FullName:         data.FullName,
		MembershipType:   data.MembershipType,
		MembershipStatus: data.MembershipStatus,
		BranchCode:       data.BranchCode,
		JoinDate:         data.JoinDate.Format(dateLayout),
	}
	if opts.IncludePersonalData {
		payload.NIK = data.NIK
		if data.NPWP != "" {
			payload.NPWP = validation.FormatNPWP(data.NPWP)
		}
		payload.Email = data.Email
		payload.Phone = data.Phone
	}
	if len(opts.CustomFields) > 0 {
		payload.CustomFields = make(map[string]string, len(opts.CustomFields))
		for k, v := range opts.CustomFields {
			payload.CustomFields[k] = v
		}
	}

	var expiresAt *time.Time
	if opts.ExpirationDays != nil {
		t := c.nowFn().AddDate(0, 0, *opts.ExpirationDays)
		expiresAt = &t
	}

	return c.seal("membercard.GenerateMemberCardQR", FormatMemberCard, payload, expiresAt, opts.EncryptData)
}

// GenerateMemberVerificationQR encodes the lighter payload shown at service
// counters. An empty status means active.
func (c *Codec) GenerateMemberVerificationQR(memberID, memberNumber, fullName string, status MembershipStatus) (*QRCode, error) {
	if status == "" {
		status = StatusActive
	}
	payload := VerificationPayload{
		MemberID:     memberID,
		MemberNumber: memberNumber,
		FullName:     fullName,
		Status:       status,
	}
	expiresAt := c.nowFn().Add(VerificationTTL)
	return c.seal("membercard.GenerateMemberVerificationQR", FormatVerification, payload, &expiresAt, false)
}

// GenerateAttendanceQR encodes a member's ticket for one event.
func (c *Codec) GenerateAttendanceQR(memberID, eventID, eventName string, eventDate time.Time) (*QRCode, error) {
	payload := AttendancePayload{
		MemberID:  memberID,
		EventID:   eventID,
		EventName: eventName,
		EventDate: eventDate.UTC().Format(time.RFC3339),
	}
	return c.seal("membercard.GenerateAttendanceQR", FormatAttendance, payload, nil, false)
}

func (c *Codec) seal(op, format string, payload any, expiresAt *time.Time, encrypt bool) (*QRCode, error) {
	if encrypt && c.cipher == nil {
		return nil, apperr.New(apperr.KindPrecondition, op, "encryption requested but no cipher is configured")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, fmt.Errorf("marshal data: %w", err))
	}

	env := Envelope{
		Format:   format,
		Version:  QRVersion,
		Data:     data,
		IssuedAt: c.nowFn().UnixMilli(),
		Checksum: c.hasher.Sum(string(data)),
	}
	if expiresAt != nil {
		ms := expiresAt.UnixMilli()
		env.ExpiresAt = &ms
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, op, fmt.Errorf("marshal envelope: %w", err))
	}

	body := string(raw)
	if encrypt {
		body, err = c.cipher.Encrypt(body)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, op, fmt.Errorf("encrypt: %w", err))
		}
	}

	checksum := c.hasher.Sum(body)
	qr := body + checksumDelimiter + checksum
	if len(qr) > c.maxSize {
		return nil, apperr.Wrap(apperr.KindPrecondition, op,
			fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrQRDataTooLarge, len(qr), c.maxSize))
	}

	return &QRCode{
		QRData:      qr,
		Envelope:    env,
		Checksum:    checksum,
		IsEncrypted: encrypt,
		Metadata:    Metadata{Version: QRVersion, Format: format},
	}, nil
}

// NewKeyedCodec builds a Codec from deployment secrets. An empty secret
// disables encryption and an empty checksumKey keeps the plain checksum.
func NewKeyedCodec(secret, salt, checksumKey string, opts ...Option) (*Codec, error) {
	if checksumKey != "" {
		hasher, err := cardcrypto.NewHasher([]byte(checksumKey))
		if err != nil {
			return nil, fmt.Errorf("checksum key: %w", err)
		}
		opts = append([]Option{WithChecksummer(hasher)}, opts...)
	}
	if secret != "" {
		cipher, err := cardcrypto.NewCipher(secret, salt)
		if err != nil {
			return nil, fmt.Errorf("card cipher: %w", err)
		}
		opts = append([]Option{WithCipher(cipher)}, opts...)
	}
	return NewCodec(opts...), nil
}
