package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the only role the admin API issues.
const RoleAdmin = "admin"

const tokenTTL = 24 * time.Hour

// ErrInvalidCredentials is returned for any failed login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned when a bearer token does not verify.
var ErrInvalidToken = errors.New("invalid token")

type Service interface {
	Login(ctx context.Context, username, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (subject, role string, err error)
}

// service authenticates the single configured admin account.
type service struct {
	username     string
	passwordHash []byte
	secret       []byte
	now          func() time.Time
}

// NewService returns the admin auth service. An empty passwordHash or secret
// disables both login and token validation.
func NewService(username, passwordHash, secret string) *service {
	return &service{username: username, passwordHash: []byte(passwordHash), secret: []byte(secret), now: time.Now}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (s *service) enabled() bool {
	return len(s.passwordHash) > 0 && len(s.secret) > 0
}

func (s *service) Login(_ context.Context, username, password string) (string, error) {
	if !s.enabled() {
		return "", ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password.
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(username)
}

func (s *service) issueToken(subject string) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: RoleAdmin,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(_ context.Context, token string) (string, string, error) {
	if !s.enabled() {
		return "", "", ErrInvalidToken
	}
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", "", errors.Join(ErrInvalidToken, err)
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid || c.Role != RoleAdmin {
		return "", "", ErrInvalidToken
	}
	return c.Subject, c.Role, nil
}
