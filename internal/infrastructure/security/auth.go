// Package security verifies bearer tokens, limits request rates and
// validates request bodies.
package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recipesimplifier/api/internal/infrastructure/config"
	"github.com/recipesimplifier/api/internal/ports/inbound"
)

var (
	ErrMissingToken     = errors.New("authorization header required")
	ErrMalformedHeader  = errors.New("invalid authorization header format")
	ErrVerifierDisabled = errors.New("token verification is not configured")
	ErrInvalidSubject   = errors.New("token subject is not a user id")
)

// Claims are the claims the hosted auth provider puts in its access tokens.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 access tokens issued by the auth provider.
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
	logger *zap.Logger
}

// NewTokenVerifier creates a verifier. Audience and issuer are only enforced
// when configured.
func NewTokenVerifier(cfg config.AuthConfig, logger *zap.Logger) *TokenVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	if cfg.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is empty, all authenticated requests will be rejected")
	}

	return &TokenVerifier{
		secret: []byte(cfg.JWTSecret),
		parser: jwt.NewParser(opts...),
		logger: logger.Named("token-verifier"),
	}
}

// Verify parses and validates token and returns the caller it identifies.
func (v *TokenVerifier) Verify(token string) (inbound.Identity, error) {
	if len(v.secret) == 0 {
		return inbound.Identity{}, ErrVerifierDisabled
	}

	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return inbound.Identity{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return inbound.Identity{}, errors.New("invalid token claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return inbound.Identity{}, ErrInvalidSubject
	}

	return inbound.Identity{UserID: userID, Email: claims.Email}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrMalformedHeader
	}
	return strings.TrimSpace(parts[1]), nil
}
