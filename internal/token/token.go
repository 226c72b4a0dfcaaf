package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrWrongScope   = errors.New("token has wrong scope")
)

const (
	ScopeSession = "session"
	ScopePhone   = "phone"
)

// Claims carries the minimal identity the service embeds in a bearer token.
// Session tokens carry user id, email and phone; phone-scope tokens carry
// only the phone number proven by OTP.
type Claims struct {
	Scope       string `json:"scope"`
	Email       string `json:"email,omitempty"`
	PhoneNumber string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and verifies HMAC-signed tokens. There is no refresh or
// revocation path; expiry is the only invalidation.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// IssueSession returns a signed session token for the user.
func (m *Manager) IssueSession(userID uuid.UUID, email, phone string) (string, error) {
	return m.sign(&Claims{
		Scope:       ScopeSession,
		Email:       email,
		PhoneNumber: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
		},
	})
}

// IssuePhone returns a signed token scoped to a phone number proven via OTP.
func (m *Manager) IssuePhone(phone string) (string, error) {
	return m.sign(&Claims{
		Scope:       ScopePhone,
		PhoneNumber: phone,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
		},
	})
}

func (m *Manager) sign(claims *Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifySession parses and validates a session token, returning its claims.
func (m *Manager) VerifySession(raw string) (*Claims, error) {
	claims, err := m.verify(raw)
	if err != nil {
		return nil, err
	}
	if claims.Scope != ScopeSession {
		return nil, ErrWrongScope
	}
	return claims, nil
}

func (m *Manager) verify(raw string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserID returns the subject parsed as a UUID; zero UUID for phone tokens.
func (c *Claims) UserID() uuid.UUID {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil
	}
	return id
}
