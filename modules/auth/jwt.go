// Package auth resolves the identity attached to a chat connection from a
// bearer token issued by the surrounding application.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domain "github.com/example/course-chat/domain/chat"
)

var (
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
	// ErrUnauthenticated is returned by RequireAuthenticated for anonymous identities.
	ErrUnauthenticated = errors.New("authentication required")
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	SecretKey     string
	Issuer        string
	TokenDuration time.Duration
}

// Claims carried by chat access tokens.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates access tokens.
type JWTManager struct {
	config JWTConfig
}

// NewJWTManager creates a new JWTManager with the given configuration.
func NewJWTManager(config JWTConfig) *JWTManager {
	if config.TokenDuration <= 0 {
		config.TokenDuration = time.Hour
	}
	return &JWTManager{config: config}
}

// GenerateToken issues a token for the user. The session layer of the
// surrounding application calls this; tests use it too.
func (m *JWTManager) GenerateToken(userID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// ValidateToken validates the token and returns its claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(m.config.SecretKey), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Identity resolves a token to a chat identity. An empty or invalid token
// yields the anonymous identity along with the validation error, if any.
func (m *JWTManager) Identity(tokenString string) (domain.Identity, error) {
	if tokenString == "" {
		return domain.Anonymous(), nil
	}
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return domain.Anonymous(), err
	}
	return domain.NewIdentity(true, claims.Username, claims.UserID), nil
}

// RequireAuthenticated is an authorization policy that turns anonymous
// connections away.
func RequireAuthenticated(_ context.Context, _ string, identity domain.Identity) error {
	if !identity.Authenticated {
		return ErrUnauthenticated
	}
	return nil
}
