// Package common defines shared constants and sentinel errors used across
// GophGuard layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Configuration errors. Fatal at startup.
	ErrConfiguration    = errors.New("configuration error")
	ErrInvalidKeyLength = errors.New("invalid encryption key length")

	// Envelope errors.
	ErrDecryption        = errors.New("decryption failed")
	ErrInvalidBlobFormat = errors.New("invalid encrypted blob format")

	// Auth errors. Every token failure wraps ErrInvalidToken together with
	// exactly one of the specific causes below.
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenMalformed     = errors.New("token malformed")
	ErrTokenWrongKind     = errors.New("token kind mismatch")
	ErrTokenBadSignature  = errors.New("token signature invalid")
	ErrTokenWrongIssuer   = errors.New("token issuer mismatch")
	ErrTokenWrongAudience = errors.New("token audience mismatch")

	// ErrRefreshTokenReused is returned when a refresh token verifies but is
	// no longer the identity's current one (already rotated or logged out).
	ErrRefreshTokenReused = errors.New("refresh token is not current")

	// Login errors. "unknown email" and "wrong password" are deliberately
	// merged into ErrInvalidCredentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrWeakPassword       = errors.New("password too weak")

	// ErrBreachOracleUnavailable wraps a provider failure after its retries.
	// The oracle logs it and degrades to an offline report.
	ErrBreachOracleUnavailable = errors.New("breach oracle unavailable")
)
