package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/inaiurai/cashback/internal/ledger"
	"github.com/inaiurai/cashback/internal/middleware"
	"github.com/inaiurai/cashback/internal/models"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type stubStaff struct {
	createdBy   string
	amountCents int64
	filter      string
	status      string
	err         error
}

func (s *stubStaff) GenerateCode(_ context.Context, createdBy string, amountCents int64) (*models.Code, error) {
	s.createdBy, s.amountCents = createdBy, amountCents
	if s.err != nil {
		return nil, s.err
	}
	return &models.Code{Code: "ABCD1234", AmountCents: amountCents, CreatedBy: createdBy}, nil
}

func (s *stubStaff) ListCodes(_ context.Context, filter string) ([]*models.Code, error) {
	s.filter = filter
	if filter == "bogus" {
		return nil, ledger.ErrBadArgument
	}
	return nil, s.err
}

func (s *stubStaff) ListWithdrawals(_ context.Context, status string) ([]*models.Transaction, error) {
	s.status = status
	if s.err != nil {
		return nil, s.err
	}
	return []*models.Transaction{{TransactionID: "AB12CD34EF", Status: models.TxStatusPending}}, nil
}

func (s *stubStaff) Stats(context.Context) (*models.Stats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Stats{TotalUsers: 4, CurrentBalanceCents: 1500}, nil
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestGetStats(t *testing.T) {
	h := NewHandler(&stubStaff{}, nil)
	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got models.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.TotalUsers != 4 || got.CurrentBalanceCents != 1500 {
		t.Errorf("stats = %+v", got)
	}
}

func TestGetStats_InternalError(t *testing.T) {
	h := NewHandler(&stubStaff{err: errors.New("db down")}, nil)
	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestListCodes(t *testing.T) {
	staff := &stubStaff{}
	h := NewHandler(staff, nil)

	rec := httptest.NewRecorder()
	h.ListCodes(rec, httptest.NewRequest(http.MethodGet, "/api/v1/codes?status=active", nil))
	if rec.Code != http.StatusOK || staff.filter != "active" {
		t.Errorf("status = %d filter = %q", rec.Code, staff.filter)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("empty list body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ListCodes(rec, httptest.NewRequest(http.MethodGet, "/api/v1/codes?status=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus filter status = %d, want 400", rec.Code)
	}
}

func TestListWithdrawals(t *testing.T) {
	staff := &stubStaff{}
	h := NewHandler(staff, nil)
	rec := httptest.NewRecorder()
	h.ListWithdrawals(rec, httptest.NewRequest(http.MethodGet, "/api/v1/withdrawals?status=completed", nil))
	if rec.Code != http.StatusOK || staff.status != "completed" {
		t.Errorf("status = %d, filter = %q", rec.Code, staff.status)
	}
	if !strings.Contains(rec.Body.String(), "AB12CD34EF") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestCreateCode(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      int
		wantCents int64
	}{
		{"ok", `{"amount":"12.50"}`, http.StatusCreated, 1250},
		{"dollar sign", `{"amount":"$3"}`, http.StatusCreated, 300},
		{"too precise", `{"amount":"1.005"}`, http.StatusBadRequest, 0},
		{"negative", `{"amount":"-1"}`, http.StatusBadRequest, 0},
		{"missing", `{}`, http.StatusBadRequest, 0},
		{"bad json", `{`, http.StatusBadRequest, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			staff := &stubStaff{}
			h := NewHandler(staff, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/codes", strings.NewReader(tc.body))
			req = req.WithContext(middleware.WithAdmin(req.Context(), "admin"))
			rec := httptest.NewRecorder()
			h.CreateCode(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
			if tc.want == http.StatusCreated {
				if staff.amountCents != tc.wantCents || staff.createdBy != "admin:admin" {
					t.Errorf("generated %d by %q", staff.amountCents, staff.createdBy)
				}
			}
		})
	}
}
