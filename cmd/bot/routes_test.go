package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/inaiurai/cashback/internal/config"
	"github.com/inaiurai/cashback/internal/ledger"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func testConfig(t *testing.T, extra map[string]string) *config.Config {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	environ := map[string]string{
		"DISCORD_BOT_TOKEN":  "token",
		"DISCORD_PUBLIC_KEY": hex.EncodeToString(pub),
	}
	for k, v := range extra {
		environ[k] = v
	}
	cfg, err := config.Parse(environ)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func adminConfig(t *testing.T) *config.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return testConfig(t, map[string]string{
		"ADMIN_PASSWORD_HASH": string(hash),
		"JWT_SECRET":          testJWTSecret,
	})
}

func forgedToken(t *testing.T, secret string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "attacker",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestNewHTTPHandler_Routes(t *testing.T) {
	h, err := newHTTPHandler(adminConfig(t), &ledger.Service{}, stubPinger{}, nil)
	if err != nil {
		t.Fatalf("newHTTPHandler: %v", err)
	}

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodPost, "/interactions", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/stats", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/auth/login", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		body := `{}`
		if tc.path == "/api/v1/auth/login" {
			body = `{"username":"admin","password":"x"}`
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader(body)))
		if rec.Code != tc.want {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.path, rec.Code, tc.want)
		}
	}
}

func TestNewHTTPHandler_AdminAPIOffWithoutHash(t *testing.T) {
	h, err := newHTTPHandler(testConfig(t, nil), &ledger.Service{}, stubPinger{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, secret := range []string{"supersecretmvp", testJWTSecret} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/codes", strings.NewReader(`{"amount":"1000000"}`))
		req.Header.Set("Authorization", "Bearer "+forgedToken(t, secret))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("secret %q: create code = %d, want 404", secret, rec.Code)
		}
	}
}

func TestNewHTTPHandler_RejectsTokenWithWrongSecret(t *testing.T) {
	h, err := newHTTPHandler(adminConfig(t), &ledger.Service{}, stubPinger{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/codes", strings.NewReader(`{"amount":"1000000"}`))
	req.Header.Set("Authorization", "Bearer "+forgedToken(t, "supersecretmvp"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("create code = %d, want 401", rec.Code)
	}
}

func TestNewHTTPHandler_HealthzReportsDatabase(t *testing.T) {
	h, err := newHTTPHandler(testConfig(t, nil), &ledger.Service{}, stubPinger{err: errors.New("down")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestNewHTTPHandler_RejectsBadPublicKey(t *testing.T) {
	cfg := testConfig(t, nil)
	cfg.DiscordPublicKey = "nothex"
	if _, err := newHTTPHandler(cfg, &ledger.Service{}, stubPinger{}, nil); err == nil {
		t.Fatal("expected error for malformed public key")
	}
}
