// internal/finance/handler.go
package finance

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sinoman/internal/apperr"
	"sinoman/internal/httpjson"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger}
}

// Mount registers the calculator routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/compound-interest", h.HandleCompoundInterest)
	r.Post("/loan-payment", h.HandleLoanPayment)
	r.Post("/amortization", h.HandleAmortization)
	r.Post("/savings-interest", h.HandleSavingsInterest)
	r.Post("/shu", h.HandleSHU)
	r.Post("/shu/export", h.HandleSHUExport)
}

type amountResponse struct {
	Amount    float64 `json:"amount"`
	Formatted string  `json:"formatted"`
}

func newAmount(v float64) amountResponse {
	return amountResponse{Amount: v, Formatted: FormatRupiah(v)}
}

func (h *Handler) HandleCompoundInterest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Principal     float64 `json:"principal"`
		AnnualRatePct float64 `json:"annual_rate"`
		Years         float64 `json:"years"`
		PerYear       int     `json:"compounding_per_year"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusOK, newAmount(CompoundInterest(req.Principal, req.AnnualRatePct, req.Years, req.PerYear)))
}

type loanRequest struct {
	Principal     float64 `json:"principal"`
	AnnualRatePct float64 `json:"annual_rate"`
	TermMonths    int     `json:"term_months"`
}

func (h *Handler) HandleLoanPayment(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusOK, newAmount(LoanPayment(req.Principal, req.AnnualRatePct, req.TermMonths)))
}

func (h *Handler) HandleAmortization(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	if req.TermMonths <= 0 {
		httpjson.Error(w, h.logger, apperr.Validation("finance.HandleAmortization", "term_months", "must be positive"))
		return
	}
	schedule := AmortizationSchedule(req.Principal, req.AnnualRatePct, req.TermMonths)
	httpjson.Write(w, http.StatusOK, map[string]any{
		"monthly_payment": newAmount(LoanPayment(req.Principal, req.AnnualRatePct, req.TermMonths)),
		"schedule":        schedule,
	})
}

func (h *Handler) HandleSavingsInterest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Balance       float64 `json:"balance"`
		AnnualRatePct float64 `json:"annual_rate"`
		Days          int     `json:"days"`
	}
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, h.logger, err)
		return
	}
	httpjson.Write(w, http.StatusOK, newAmount(SavingsInterest(req.Balance, req.AnnualRatePct, req.Days)))
}

func (h *Handler) HandleSHU(w http.ResponseWriter, r *http.Request) {
	res, ok := h.distribute(w, r)
	if !ok {
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

func (h *Handler) HandleSHUExport(w http.ResponseWriter, r *http.Request) {
	res, ok := h.distribute(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := WriteSHUWorkbook(&buf, res); err != nil {
		h.logger.Error("failed to build SHU workbook", zap.Error(err))
		httpjson.Error(w, h.logger, err)
		return
	}

	filename := fmt.Sprintf("shu_%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) distribute(w http.ResponseWriter, r *http.Request) (*SHUResult, bool) {
	var cfg SHUConfig
	if err := httpjson.Decode(r, &cfg); err != nil {
		httpjson.Error(w, h.logger, err)
		return nil, false
	}
	res, err := DistributeSHU(cfg)
	if err != nil {
		h.logger.Warn("SHU distribution rejected", zap.Error(err), zap.Int("members", len(cfg.Members)))
		httpjson.Error(w, h.logger, err)
		return nil, false
	}
	h.logger.Info("SHU distributed",
		zap.Int("members", res.Summary.TotalMembers),
		zap.Float64("total_shu", res.Summary.TotalSHU),
		zap.Float64("undistributed", res.Summary.Undistributed),
	)
	return res, true
}
