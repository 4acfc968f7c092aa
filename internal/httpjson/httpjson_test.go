package httpjson

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sinoman/internal/apperr"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestErrorHidesInternalCause(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cause := errors.New(`pq: relation "card_events" does not exist`)

	rec := httptest.NewRecorder()
	Error(rec, zap.New(core), apperr.Wrap(apperr.KindInternal, "membership.CardHistory", cause))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, InternalMessage, resp.Message)
	assert.NotContains(t, rec.Body.String(), "card_events")

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap()["error"], "card_events")

	// plain errors are internal too
	rec = httptest.NewRecorder()
	Error(rec, nil, errors.New("dial tcp 10.0.0.3:6379: connection refused"))
	assert.Equal(t, InternalMessage, decodeError(t, rec).Message)
}

func TestErrorKeepsClientErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, zap.NewNop(), apperr.Validation("finance.DistributeSHU", "total_shu", "must be a non-negative amount"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "validation", resp.Kind)
	assert.Equal(t, "total_shu", resp.Field)
	assert.Contains(t, resp.Message, "non-negative")
}

func TestDecode(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Budi"}`))
	require.NoError(t, Decode(req, &out))
	assert.Equal(t, "Budi", out.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.True(t, apperr.Is(Decode(req, &out), apperr.KindValidation))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`"`+strings.Repeat("a", MaxBodyBytes)+`"`))
	assert.True(t, apperr.Is(Decode(req, &out), apperr.KindValidation))
}
