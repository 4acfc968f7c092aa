package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sinoman/internal/apperr"
	"sinoman/internal/attendance"
	"sinoman/internal/eventstore"
	"sinoman/internal/finance"
	"sinoman/internal/membercard"
	"sinoman/internal/memberid"
	"sinoman/internal/membership"
	"sinoman/internal/server"
)

func setup(t *testing.T) (*CardClient, membership.Service) {
	t.Helper()
	svc := membership.NewService(eventstore.NewMemoryStore(), attendance.NewMemoryRecorder(), membercard.NewCodec(), zap.NewNop())
	srv := httptest.NewServer(server.New(server.Config{
		Membership: membership.NewHandler(svc, zap.NewNop()),
		Finance:    finance.NewHandler(zap.NewNop()),
	}))
	t.Cleanup(srv.Close)
	return NewCardClient(srv.URL, zap.NewNop()), svc
}

func TestVerifyCard(t *testing.T) {
	client, svc := setup(t)
	ctx := context.Background()

	data := membercard.MemberCardData{
		MemberID:         memberid.WithChecksum("SBY", "4321", "TOKEN1"),
		MemberNumber:     "4321",
		FullName:         "Siti Aminah",
		MembershipType:   membercard.MembershipPremium,
		MembershipStatus: membercard.StatusActive,
		JoinDate:         time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC),
		BranchCode:       "SBY",
	}
	card, err := svc.IssueCard(ctx, data, membercard.GenerateOptions{})
	require.NoError(t, err)

	res, err := client.VerifyCard(ctx, card.QR.QRData)
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Equal(t, "4321", res.MemberNumber)

	quick, err := client.QuickVerify(ctx, card.QR.QRData+"X")
	require.NoError(t, err)
	assert.False(t, quick.IsValid)

	history, err := client.CardHistory(ctx, data.MemberID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, membership.EventCardIssued, history[0].Type)
}

func TestCheckIn(t *testing.T) {
	client, svc := setup(t)
	ctx := context.Background()

	id := memberid.WithChecksum("SBY", "4321", "TOKEN1")
	qr, err := svc.IssueAttendanceQR(ctx, id, "RAT-2025", "RAT", time.Now().Add(time.Hour))
	require.NoError(t, err)

	res, err := client.CheckIn(ctx, qr.QRData, "RAT-2025")
	require.NoError(t, err)
	assert.True(t, res.Accepted)

	_, err = client.CheckIn(ctx, qr.QRData, "RAT-2025")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestErrorsKeepTheirKind(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()

	_, err := client.CardHistory(ctx, "not-a-member")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = client.DistributeSHU(ctx, finance.SHUConfig{
		TotalSHU:          100,
		DistributionRules: finance.DistributionRules{SavingsPercentage: 110},
	})
	assert.True(t, apperr.Is(err, apperr.KindPrecondition))
}

func TestSHU(t *testing.T) {
	client, _ := setup(t)
	cfg := finance.SHUConfig{
		TotalSHU: 1_000_000,
		Members: []finance.MemberContribution{
			{MemberID: "A", SavingsBalance: 1, TransactionVolume: 1, MembershipType: "regular"},
			{MemberID: "B", SavingsBalance: 3, TransactionVolume: 1, MembershipType: "regular"},
		},
		DistributionRules: finance.DistributionRules{SavingsPercentage: 100},
	}

	res, err := client.DistributeSHU(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, res.Breakdown, 2)
	assert.InDelta(t, 750_000, res.Breakdown[1].TotalSHU, 1e-6)

	xlsx, err := client.ExportSHU(context.Background(), cfg)
	require.NoError(t, err)
	// xlsx files are zip archives
	assert.Equal(t, []byte("PK"), xlsx[:2])
}

func TestRetriesUnavailableServer(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"is_valid":true,"member_number":"1"}`))
	}))
	defer srv.Close()

	res, err := NewCardClient(srv.URL, zap.NewNop()).QuickVerify(context.Background(), "qr")
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
