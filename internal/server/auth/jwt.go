// Package auth issues and verifies the signed access and refresh tokens that
// stand in for a user's master session.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates what a token may be used for.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Claims is the token payload: the registered claims (sub, iss, aud, iat,
// exp, jti), the kind discriminator, and optional extra claims carried by
// access tokens only.
type Claims struct {
	jwt.RegisteredClaims
	Kind  Kind           `json:"kind"`
	Extra map[string]any `json:"ext,omitempty"`
}

// Config holds TokenService settings.
type Config struct {
	SecretKey  []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService signs tokens with HS256. It holds no mutable state and is safe
// for concurrent use.
type TokenService struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService validates cfg and returns a TokenService.
func NewTokenService(cfg Config) (*TokenService, error) {
	if len(cfg.SecretKey) == 0 {
		return nil, fmt.Errorf("%w: empty token secret", common.ErrConfiguration)
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fmt.Errorf("%w: token issuer and audience are required", common.ErrConfiguration)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("%w: token TTLs must be positive", common.ErrConfiguration)
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, fmt.Errorf("%w: access TTL must be shorter than refresh TTL", common.ErrConfiguration)
	}

	return &TokenService{
		secret:     cfg.SecretKey,
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// RefreshTTL is how long a freshly issued refresh token stays valid.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccess mints a short-lived access token for subjectID. extra is
// embedded verbatim under "ext" and may be nil.
func (s *TokenService) IssueAccess(subjectID string, extra map[string]any) (string, error) {
	return s.issue(subjectID, KindAccess, s.accessTTL, extra)
}

// IssueRefresh mints a long-lived refresh token for subjectID.
func (s *TokenService) IssueRefresh(subjectID string) (string, error) {
	return s.issue(subjectID, KindRefresh, s.refreshTTL, nil)
}

func (s *TokenService) issue(subjectID string, kind Kind, ttl time.Duration, extra map[string]any) (string, error) {
	if subjectID == "" {
		return "", errors.New("empty subject")
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			// A unique id keeps two tokens minted in the same second distinct,
			// which refresh rotation relies on.
			ID: uuid.NewString(),
		},
		Kind:  kind,
		Extra: extra,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks signature, expiry, issuer, audience and kind as independent
// gates. Every failure wraps common.ErrInvalidToken and exactly one of
// ErrTokenBadSignature, ErrTokenExpired, ErrTokenWrongIssuer,
// ErrTokenWrongAudience, ErrTokenMalformed or ErrTokenWrongKind.
func (s *TokenService) Verify(tokenString string, expected Kind) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, tokenError(classify(err))
	}
	if !token.Valid {
		return nil, tokenError(common.ErrTokenMalformed)
	}

	if claims.Subject == "" {
		return nil, tokenError(common.ErrTokenMalformed)
	}
	if claims.Kind != expected {
		return nil, tokenError(common.ErrTokenWrongKind)
	}

	return claims, nil
}

func tokenError(cause error) error {
	return fmt.Errorf("%w: %w", common.ErrInvalidToken, cause)
}

// classify maps jwt parser errors onto the token error taxonomy. The parser
// verifies the signature before any claim, so a bad signature never reports
// a claim failure.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return common.ErrTokenBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return common.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return common.ErrTokenWrongIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return common.ErrTokenWrongAudience
	default:
		return common.ErrTokenMalformed
	}
}

// Token failure reasons reported by Reason.
const (
	ReasonExpired       = "TOKEN_EXPIRED"
	ReasonBadSignature  = "TOKEN_BAD_SIGNATURE"
	ReasonWrongKind     = "TOKEN_WRONG_KIND"
	ReasonWrongIssuer   = "TOKEN_WRONG_ISSUER"
	ReasonWrongAudience = "TOKEN_WRONG_AUDIENCE"
	ReasonRevoked       = "TOKEN_REVOKED"
	ReasonMalformed     = "TOKEN_MALFORMED"
)

// Reason returns a stable machine-readable code for a token error, or ""
// when err is not one.
func Reason(err error) string {
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		return ReasonExpired
	case errors.Is(err, common.ErrTokenBadSignature):
		return ReasonBadSignature
	case errors.Is(err, common.ErrTokenWrongKind):
		return ReasonWrongKind
	case errors.Is(err, common.ErrTokenWrongIssuer):
		return ReasonWrongIssuer
	case errors.Is(err, common.ErrTokenWrongAudience):
		return ReasonWrongAudience
	case errors.Is(err, common.ErrRefreshTokenReused):
		return ReasonRevoked
	case errors.Is(err, common.ErrTokenMalformed), errors.Is(err, common.ErrInvalidToken):
		return ReasonMalformed
	default:
		return ""
	}
}
