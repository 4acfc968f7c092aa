package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := Validation("memberid.Generate", "member_number", "must not be empty")
	assert.Equal(t, "memberid.Generate: member_number: must not be empty", err.Error())

	cause := errors.New("boom")
	wrapped := &Error{Kind: KindPrecondition, Message: "QR data too large", Err: cause}
	assert.Equal(t, "QR data too large: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := New(KindConflict, "eventstore.append", "version mismatch")
	err := fmt.Errorf("issue card: %w", base)

	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(nil, KindConflict))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindPrecondition: http.StatusUnprocessableEntity,
		KindRateLimited:  http.StatusTooManyRequests,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(kind, "", "x")), kind.String())
	}
}

func TestParseKind(t *testing.T) {
	for k := KindInternal; k <= KindRateLimited; k++ {
		assert.Equal(t, k, ParseKind(k.String()))
	}
	assert.Equal(t, KindInternal, ParseKind("teapot"))
}
