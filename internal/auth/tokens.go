// Package auth issues and verifies the bearer tokens used by the API:
// participant sessions, admin sessions, and the short-lived QR attendance
// token consumed by the scan endpoint.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/pdamit/events-api/internal/models"
)

// User types carried in the user_type claim.
const (
	UserTypeParticipant = "pda"
	UserTypeAdmin       = "pda_admin"
)

// QRPurpose is the fixed qr claim of attendance tokens.
const QRPurpose = "pda_event_attendance"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNotQRToken   = errors.New("token is not an attendance token")
)

// Claims is the single claim set for all token variants; QR-only fields are
// empty on session tokens.
type Claims struct {
	UserType string `json:"user_type"`
	Regno    string `json:"regno,omitempty"`
	IsSuper  bool   `json:"is_super,omitempty"`

	QR         string `json:"qr,omitempty"`
	EventSlug  string `json:"event_slug,omitempty"`
	EntityType string `json:"entity_type,omitempty"`
	EntityID   int64  `json:"entity_id,omitempty"`

	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(c.Subject, "%d", &id); err != nil {
		return 0, fmt.Errorf("parse subject %q: %w", c.Subject, err)
	}
	return id, nil
}

// TokenManager signs and verifies HS256 tokens with a shared secret.
type TokenManager struct {
	secret []byte
	qrTTL  time.Duration
}

func NewTokenManager(secret string, qrTTL time.Duration) *TokenManager {
	if qrTTL <= 0 {
		qrTTL = 12 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), qrTTL: qrTTL}
}

// IssueParticipant mints a participant session token.
func (m *TokenManager) IssueParticipant(userID int64, regno string, ttl time.Duration) (string, error) {
	return m.sign(&Claims{
		UserType: UserTypeParticipant,
		Regno:    regno,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

// IssueAdmin mints an admin session token.
func (m *TokenManager) IssueAdmin(adminID int64, regno string, isSuper bool, ttl time.Duration) (string, error) {
	return m.sign(&Claims{
		UserType: UserTypeAdmin,
		Regno:    regno,
		IsSuper:  isSuper,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", adminID),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

// IssueQR mints the attendance token encoded into a participant's QR code.
func (m *TokenManager) IssueQR(userID int64, eventSlug string, entity models.EntityRef) (string, time.Time, error) {
	exp := time.Now().Add(m.qrTTL)
	token, err := m.sign(&Claims{
		UserType:   UserTypeParticipant,
		QR:         QRPurpose,
		EventSlug:  eventSlug,
		EntityType: string(entity.Type),
		EntityID:   entity.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	return token, exp, err
}

func (m *TokenManager) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry and returns the claims.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseQR verifies an attendance token and its qr purpose claim.
func (m *TokenManager) ParseQR(tokenString string) (*Claims, error) {
	claims, err := m.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.QR != QRPurpose || claims.UserType != UserTypeParticipant {
		return nil, ErrNotQRToken
	}
	return claims, nil
}
