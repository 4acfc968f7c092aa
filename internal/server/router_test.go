package server

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"sinoman/internal/attendance"
	"sinoman/internal/eventstore"
	"sinoman/internal/finance"
	"sinoman/internal/membercard"
	"sinoman/internal/membership"
	"sinoman/internal/memberid"
)

func newTestServer(t *testing.T, logger *zap.Logger) *httptest.Server {
	t.Helper()
	svc := membership.NewService(eventstore.NewMemoryStore(), attendance.NewMemoryRecorder(), membercard.NewCodec(), logger)
	srv := httptest.NewServer(New(Config{
		Logger:     logger,
		Membership: membership.NewHandler(svc, logger),
		Finance:    finance.NewHandler(logger),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, zap.NewNop())

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down := httptest.NewServer(New(Config{Ready: func(*http.Request) error { return errors.New("redis down") }}))
	defer down.Close()
	resp, err = http.Get(down.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// Issue a card for a freshly generated member ID, verify it, then price a
// loan for the same member.
func TestEndToEnd(t *testing.T) {
	srv := newTestServer(t, zap.NewNop())

	resp := postJSON(t, srv.URL+"/member-ids", map[string]string{"member_number": "12345", "branch_code": "JKT"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var info membership.MemberIDInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.True(t, memberid.Validate(info.MemberID))

	resp = postJSON(t, srv.URL+"/cards/qr", map[string]any{
		"member": membercard.MemberCardData{
			MemberID:         info.MemberID,
			MemberNumber:     "12345",
			FullName:         "Budi Santoso",
			MembershipType:   membercard.MembershipRegular,
			MembershipStatus: membercard.StatusActive,
			JoinDate:         time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
			BranchCode:       "JKT",
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var card membership.IssuedCard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))

	resp = postJSON(t, srv.URL+"/cards/verify", map[string]string{"qr_data": card.QR.QRData})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res membercard.VerificationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.IsValid)
	assert.False(t, res.IsExpired)
	assert.Empty(t, res.Errors)
	assert.Equal(t, "12345", res.MemberNumber)

	resp = postJSON(t, srv.URL+"/finance/loan-payment", map[string]any{"principal": 1_200_000, "annual_rate": 0, "term_months": 12})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var amount struct {
		Amount    float64 `json:"amount"`
		Formatted string  `json:"formatted"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&amount))
	assert.Equal(t, 100_000.0, amount.Amount)
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	srv := newTestServer(t, zap.New(core))

	resp := postJSON(t, srv.URL+"/cards/verify", "not an object")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	rejected := logs.FilterMessage("request rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, "/cards/verify", rejected[0].ContextMap()["path"])
	assert.EqualValues(t, http.StatusBadRequest, rejected[0].ContextMap()["status"])

	resp, err := http.Get(srv.URL + "/nowhere")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
