package router

import (
	"net/http"

	"github.com/inaiurai/cashback/internal/auth"
	"github.com/inaiurai/cashback/internal/dashboard"
)

// New returns an http.Handler that serves the admin API under /api/v1.
// Everything except login is wrapped by requireAdmin.
func New(authHandler *auth.Handler, dashHandler *dashboard.Handler, requireAdmin func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"
	mux.HandleFunc(base+"/auth/login", authHandler.Login)

	mux.Handle(base+"/stats", requireAdmin(methodGET(dashHandler.GetStats)))
	mux.Handle(base+"/withdrawals", requireAdmin(methodGET(dashHandler.ListWithdrawals)))
	mux.Handle(base+"/codes", requireAdmin(codesHandler(dashHandler)))

	return mux
}

func methodGET(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func codesHandler(h *dashboard.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.ListCodes(w, r)
		case http.MethodPost:
			h.CreateCode(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
