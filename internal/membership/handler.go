// internal/membership/handler.go
package membership

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sinoman/internal/apperr"
	"sinoman/internal/httpjson"
	"sinoman/internal/membercard"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Mount registers the card routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/member-ids", h.HandleGenerateMemberID)
	r.Get("/member-ids/{id}", h.HandleInspectMemberID)

	r.Post("/cards/qr", h.HandleIssueCard)
	r.Post("/cards/verify", h.HandleVerifyCard)
	r.Post("/cards/quick-verify", h.HandleQuickVerify)

	r.Post("/verification/qr", h.HandleIssueVerificationQR)
	r.Post("/verification/verify", h.HandleVerifyVerificationQR)

	r.Post("/attendance/qr", h.HandleIssueAttendanceQR)
	r.Post("/attendance/check-in", h.HandleCheckIn)
	r.Get("/attendance/{eventID}", h.HandleEventAttendance)
	r.Get("/attendance/{eventID}/members/{memberID}", h.HandleCheckInStatus)

	r.Get("/members/{memberID}/card-events", h.HandleCardHistory)
	r.Get("/card-events", h.HandleCardEventFeed)
}

type qrRequest struct {
	QRData string `json:"qr_data"`
}

func (h *Handler) HandleGenerateMemberID(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberNumber string `json:"member_number"`
		BranchCode   string `json:"branch_code"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}

	id, err := h.service.GenerateMemberID(r.Context(), req.MemberNumber, req.BranchCode)
	if err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, h.service.InspectMemberID(r.Context(), id))
}

func (h *Handler) HandleInspectMemberID(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, h.service.InspectMemberID(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) HandleIssueCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Member  membercard.MemberCardData  `json:"member"`
		Options membercard.GenerateOptions `json:"options"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}

	card, err := h.service.IssueCard(r.Context(), req.Member, req.Options)
	if err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, card)
}

func (h *Handler) HandleVerifyCard(w http.ResponseWriter, r *http.Request) {
	var req qrRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}

	res, err := h.service.VerifyCard(r.Context(), req.QRData)
	if err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

func (h *Handler) HandleQuickVerify(w http.ResponseWriter, r *http.Request) {
	var req qrRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}

	res, err := h.service.QuickVerify(r.Context(), req.QRData)
	if err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

func (h *Handler) HandleIssueVerificationQR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID     string                      `json:"member_id"`
		MemberNumber string                      `json:"member_number"`
		FullName     string                      `json:"full_name"`
		Status       membercard.MembershipStatus `json:"status"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}

	qr, err := h.service.IssueVerificationQR(r.Context(), req.MemberID, req.MemberNumber, req.FullName, req.Status)
	if err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, qr)
}

func (h *Handler) HandleVerifyVerificationQR(w http.ResponseWriter, r *http.Request) {
	var req qrRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}

	res, err := h.service.VerifyVerificationQR(r.Context(), req.QRData)
	if err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

func (h *Handler) HandleIssueAttendanceQR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID  string `json:"member_id"`
		EventID   string `json:"event_id"`
		EventName string `json:"event_name"`
		EventDate string `json:"event_date"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	eventDate, err := time.Parse(time.RFC3339, req.EventDate)
	if err != nil {
		httpjson.Error(w, h.logger, apperr.Validation("membership.HandleIssueAttendanceQR", "event_date", "must be RFC 3339"))
		return
	}

	qr, err := h.service.IssueAttendanceQR(r.Context(), req.MemberID, req.EventID, req.EventName, eventDate)
	if err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, qr)
}

func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QRData  string `json:"qr_data"`
		EventID string `json:"event_id"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}

	res, err := h.service.CheckIn(r.Context(), req.QRData, req.EventID)
	if err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	status := http.StatusCreated
	if !res.Accepted {
		status = http.StatusOK
	}
	httpjson.Write(w, status, res)
}

func (h *Handler) HandleCardHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.CardHistory(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"events": history})
}

func (h *Handler) HandleEventAttendance(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.EventAttendance(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusOK, summary)
}

func (h *Handler) HandleCheckInStatus(w http.ResponseWriter, r *http.Request) {
	checkIn, err := h.service.CheckInStatus(r.Context(), chi.URLParam(r, "eventID"), chi.URLParam(r, "memberID"))
	if err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusOK, checkIn)
}

// HandleCardEventFeed serves GET /card-events?after=<id>&limit=<n>.
func (h *Handler) HandleCardEventFeed(w http.ResponseWriter, r *http.Request) {
	const op = "membership.HandleCardEventFeed"
	q := r.URL.Query()

	var after int64
	if v := q.Get("after"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpjson.Error(w, h.logger, apperr.Validation(op, "after", "must be an integer"))
			return
		}
		after = n
	}
	var limit int
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httpjson.Error(w, h.logger, apperr.Validation(op, "limit", "must be an integer"))
			return
		}
		limit = n
	}

	feed, err := h.service.CardEventFeed(r.Context(), after, limit)
	if err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	var next int64
	if len(feed) > 0 {
		next = feed[len(feed)-1].ID
	} else {
		next = after
	}
	httpjson.Write(w, http.StatusOK, map[string]any{"events": feed, "next": next})
}
