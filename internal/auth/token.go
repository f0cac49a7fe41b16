package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenManager issues and validates service-to-service JWTs.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	service string
	now     func() time.Time
}

// NewTokenManager builds a new manager for the named calling service.
func NewTokenManager(secret, service string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 5
	}
	return &TokenManager{
		secret:  []byte(secret),
		ttl:     time.Duration(ttlMinutes) * time.Minute,
		service: service,
		now:     time.Now,
	}
}

// Claims describes the JWT payload.
type Claims struct {
	CallingService string `json:"calling_service"`
	TargetService  string `json:"target_service"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for calls to target.
func (tm *TokenManager) GenerateToken(target string) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		CallingService: tm.service,
		TargetService:  target,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tm.service,
			Subject:   tm.service,
			Audience:  jwt.ClaimStrings{target},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates a token addressed to this service.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithAudience(tm.service), jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
