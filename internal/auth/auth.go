// Package auth guards the auction API behind a single shared admin
// password. A successful login issues an HS256 JWT carried in the
// dcl_session cookie (or an Authorization: Bearer header for API clients).
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the session cookie set by Login.
const CookieName = "dcl_session"

const (
	issuer  = "dcl-auction"
	subject = "admin"
)

// ErrInvalidSession is returned by Verify for any token that is missing,
// malformed, expired, or signed with another key.
var ErrInvalidSession = errors.New("auth: invalid session")

// Manager checks the admin password and issues and verifies sessions.
type Manager struct {
	password [sha256.Size]byte
	secret   []byte
	ttl      time.Duration
	now      func() time.Time

	// Secure marks the cookie Secure; set it when served over TLS.
	Secure bool
}

// NewManager creates a manager. Both password and secret are required.
func NewManager(password, secret string, ttl time.Duration) (*Manager, error) {
	if password == "" {
		return nil, errors.New("auth: admin password is required")
	}
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 bytes")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		password: sha256.Sum256([]byte(password)),
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// CheckPassword compares in constant time.
func (m *Manager) CheckPassword(password string) bool {
	sum := sha256.Sum256([]byte(password))
	return subtle.ConstantTimeCompare(sum[:], m.password[:]) == 1
}

// Issue signs a new session token.
func (m *Manager) Issue() (string, time.Time, error) {
	now := m.now().UTC()
	exp := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

// Verify parses and validates a session token.
func (m *Manager) Verify(token string) (*jwt.RegisteredClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidSession
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(subject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return &claims, nil
}

// LoginRequest is the JSON body for POST /login.
type LoginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /login. It accepts a JSON body or a form post.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	} else {
		req.Password = r.FormValue("password")
	}

	if !m.CheckPassword(req.Password) {
		slog.Warn("login rejected", "remote", r.RemoteAddr)
		writeError(w, "Incorrect Password", http.StatusUnauthorized)
		return
	}

	token, exp, err := m.Issue()
	if err != nil {
		slog.Error("session issue failed", "err", err)
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":    true,
		"token":      token,
		"expires_at": exp,
	})
}

// Logout handles POST /logout by expiring the cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// Middleware rejects requests without a valid session.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := m.Verify(tokenFrom(r)); err != nil {
			writeError(w, "Not authenticated", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

func writeError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
