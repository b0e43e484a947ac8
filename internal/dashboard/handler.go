package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/inaiurai/cashback/internal/ledger"
	"github.com/inaiurai/cashback/internal/middleware"
	"github.com/inaiurai/cashback/internal/models"
	"github.com/inaiurai/cashback/internal/money"
)

// Staff is the ledger surface of the admin API.
type Staff interface {
	GenerateCode(ctx context.Context, createdBy string, amountCents int64) (*models.Code, error)
	ListCodes(ctx context.Context, filter string) ([]*models.Code, error)
	ListWithdrawals(ctx context.Context, status string) ([]*models.Transaction, error)
	Stats(ctx context.Context) (*models.Stats, error)
}

// Handler serves the admin API. Routes are mounted behind AdminAuth.
type Handler struct {
	staff Staff
	log   *slog.Logger
}

func NewHandler(staff Staff, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{staff: staff, log: log}
}

type createCodeRequest struct {
	// Amount is a decimal string such as "12.50".
	Amount string `json:"amount"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrBadArgument):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
	case errors.Is(err, ledger.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be positive with at most two decimal places"})
	default:
		h.log.Error(op, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// GET /api/v1/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.staff.Stats(r.Context())
	if err != nil {
		h.fail(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GET /api/v1/withdrawals?status=pending|completed|rejected
func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	list, err := h.staff.ListWithdrawals(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, "list withdrawals", err)
		return
	}
	if list == nil {
		list = []*models.Transaction{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GET /api/v1/codes?status=all|active|redeemed
func (h *Handler) ListCodes(w http.ResponseWriter, r *http.Request) {
	list, err := h.staff.ListCodes(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, "list codes", err)
		return
	}
	if list == nil {
		list = []*models.Code{}
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /api/v1/codes
func (h *Handler) CreateCode(w http.ResponseWriter, r *http.Request) {
	var req createCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	cents, err := money.Parse(req.Amount)
	if err != nil {
		h.fail(w, "parse amount", err)
		return
	}
	createdBy := "admin:" + middleware.AdminFromCtx(r.Context())
	code, err := h.staff.GenerateCode(r.Context(), createdBy, cents)
	if err != nil {
		h.fail(w, "generate code", err)
		return
	}
	h.log.Info("code generated via admin api", "created_by", createdBy, "amount_cents", cents)
	writeJSON(w, http.StatusCreated, code)
}
