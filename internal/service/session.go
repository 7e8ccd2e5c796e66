package service

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"chameleon-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Sessions issues and validates the signed session tokens that bind a hashed
// provider identity to a display handle. Validation is purely a function of
// the token's signed content; the server holds no session store, so a token
// stays valid for its full lifetime once issued. The interface exists so a
// revocation list could be substituted without touching callers.
type Sessions interface {
	Issue(providerID, displayHandle string) (string, time.Time, error)
	Validate(bearerHeader string) (*models.Claims, error)
}

type sessions struct {
	signingKey []byte
	ttl        time.Duration
	logger     *zap.Logger
}

func NewSessions(signingKey []byte, ttl time.Duration, logger *zap.Logger) Sessions {
	return &sessions{signingKey: signingKey, ttl: ttl, logger: logger}
}

// HashIdentifier one-way hashes a provider identity. The hash is the sole
// authorization key and is never reversed.
func HashIdentifier(identifier string) string {
	sum := sha256.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:])
}

func (s *sessions) Issue(providerID, displayHandle string) (string, time.Time, error) {
	expirationTime := time.Now().Add(s.ttl)
	claims := &models.Claims{
		SubjectHash:   HashIdentifier(providerID),
		DisplayHandle: displayHandle,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		s.logger.Error("Failed to sign session token", zap.Error(err))
		return "", time.Time{}, err
	}

	return tokenString, expirationTime, nil
}

func (s *sessions) Validate(bearerHeader string) (*models.Claims, error) {
	if bearerHeader == "" {
		return nil, ErrMissingAuth
	}
	parts := strings.Split(bearerHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, ErrMissingAuth
	}

	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure the token's signing method is what we expect
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidSession
	}
	if !token.Valid {
		return nil, ErrInvalidSession
	}

	return claims, nil
}
