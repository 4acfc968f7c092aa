package membership

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sinoman/internal/attendance"
	"sinoman/internal/eventstore"
	"sinoman/internal/httpjson"
	"sinoman/internal/membercard"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(newFixture(t).svc, zap.NewNop()).Mount(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleIssueAndVerifyCard(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/cards/qr", map[string]any{
		"member": map[string]any{
			"member_id":         budi().MemberID,
			"member_number":     "12345",
			"full_name":         "Budi Santoso",
			"phone":             "081234567890",
			"membership_type":   "regular",
			"membership_status": "active",
			"join_date":         "2020-01-15T00:00:00Z",
			"branch_code":       "JKT",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var card IssuedCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	require.NotNil(t, card.QR)

	rec = do(t, router, http.MethodPost, "/cards/verify", qrRequest{QRData: card.QR.QRData})
	require.Equal(t, http.StatusOK, rec.Code)
	var res membercard.VerificationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.IsValid)
	assert.Equal(t, "12345", res.MemberNumber)

	rec = do(t, router, http.MethodGet, "/members/"+budi().MemberID+"/card-events", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), EventCardIssued)
	assert.Contains(t, rec.Body.String(), EventCardVerified)
}

func TestHandleIssueCardValidationError(t *testing.T) {
	rec := do(t, newTestRouter(t), http.MethodPost, "/cards/qr", map[string]any{
		"member": map[string]any{"member_id": "JKT-1"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body httpjson.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation", body.Kind)
	assert.Equal(t, "member_id", body.Field)
}

func TestHandleMemberIDs(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/member-ids", map[string]string{"member_number": "777", "branch_code": "SDA"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var info MemberIDInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.True(t, info.Valid)
	assert.True(t, strings.HasPrefix(info.MemberID, "SDA-777-"))

	rec = do(t, router, http.MethodGet, "/member-ids/"+info.MemberID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":true`)

	rec = do(t, router, http.MethodGet, "/member-ids/INVALID", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":false`)
}

func TestHandleCheckIn(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/attendance/qr", map[string]string{
		"member_id":  budi().MemberID,
		"event_id":   "RAT-2024",
		"event_name": "Rapat Anggota Tahunan",
		"event_date": eventDay.Format("2006-01-02T15:04:05Z07:00"),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var qr membercard.QRCode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qr))

	checkIn := map[string]string{"qr_data": qr.QRData, "event_id": "RAT-2024"}
	rec = do(t, router, http.MethodPost, "/attendance/check-in", checkIn)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/attendance/check-in", checkIn)
	assert.Equal(t, http.StatusConflict, rec.Code)

	checkIn["event_id"] = "OTHER"
	rec = do(t, router, http.MethodPost, "/attendance/check-in", checkIn)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"accepted":false`)

	rec = do(t, router, http.MethodPost, "/attendance/qr", map[string]string{"member_id": budi().MemberID, "event_id": "X", "event_date": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAttendanceQueries(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/attendance/RAT-2024/members/"+budi().MemberID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/attendance/qr", map[string]string{
		"member_id":  budi().MemberID,
		"event_id":   "RAT-2024",
		"event_name": "Rapat Anggota Tahunan",
		"event_date": eventDay.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var qr membercard.QRCode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &qr))
	rec = do(t, router, http.MethodPost, "/attendance/check-in", map[string]string{"qr_data": qr.QRData, "event_id": "RAT-2024"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/attendance/RAT-2024", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary AttendanceSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, int64(1), summary.Count)
	assert.Equal(t, []string{budi().MemberID}, summary.Members)

	rec = do(t, router, http.MethodGet, "/attendance/RAT-2024/members/"+budi().MemberID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"event_id":"RAT-2024"`)
}

func TestHandleCardEventFeed(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/cards/qr", map[string]any{"member": budi()})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/card-events?after=0&limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Events []CardEvent `json:"events"`
		Next   int64       `json:"next"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Events, 1)
	assert.Equal(t, page.Events[0].ID, page.Next)
	assert.Equal(t, budi().MemberID, page.Events[0].MemberID)

	rec = do(t, router, http.MethodGet, "/card-events?after=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type downRecorder struct {
	*attendance.MemoryRecorder
}

func (downRecorder) Count(context.Context, string) (int64, error) {
	return 0, errors.New("dial tcp 10.0.0.3:6379: connection refused")
}

func TestHandleInternalErrorIsMasked(t *testing.T) {
	svc := NewService(eventstore.NewMemoryStore(), downRecorder{attendance.NewMemoryRecorder()}, membercard.NewCodec(), zap.NewNop())
	r := chi.NewRouter()
	NewHandler(svc, zap.NewNop()).Mount(r)

	rec := do(t, r, http.MethodGet, "/attendance/RAT-2024", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
	assert.Contains(t, rec.Body.String(), httpjson.InternalMessage)
}

func TestHandleBadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/cards/verify", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
