// Package services contains server-side business logic. This file implements
// UserService, which guards login with a lockout policy and issues and
// rotates access/refresh token pairs.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/common"
	"github.com/dmitrijs2005/gophguard/internal/cryptox"
	"github.com/dmitrijs2005/gophguard/internal/dbx"
	"github.com/dmitrijs2005/gophguard/internal/logging"
	"github.com/dmitrijs2005/gophguard/internal/server/auth"
	"github.com/dmitrijs2005/gophguard/internal/server/config"
	"github.com/dmitrijs2005/gophguard/internal/server/metrics"
	"github.com/dmitrijs2005/gophguard/internal/server/models"
	"github.com/dmitrijs2005/gophguard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophguard/internal/strength"
	"github.com/google/uuid"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserService provides authentication-related operations:
// - Register: create identities
// - Login: verify credentials under the lockout policy and mint tokens
// - Refresh: rotate the refresh token and mint a new pair
// - Logout / Unlock: drop the session, clear a lock
type UserService struct {
	db               dbx.DB
	repomanager      repomanager.RepositoryManager
	tokens           *auth.TokenService
	hasher           *cryptox.PasswordHasher
	dummyHash        string
	lockoutThreshold int
	lockoutDuration  time.Duration
	logger           logging.Logger
	metrics          *metrics.Metrics
	now              func() time.Time
}

// NewUserService constructs a UserService. The lockout policy is read from cfg.
// A nil logger or metrics disables them.
func NewUserService(db dbx.DB, m repomanager.RepositoryManager, tokens *auth.TokenService,
	hasher *cryptox.PasswordHasher, cfg *config.Config, logger logging.Logger, mt *metrics.Metrics) (*UserService, error) {

	if cfg.LockoutThreshold < 1 || cfg.LockoutDuration <= 0 {
		return nil, fmt.Errorf("%w: lockout threshold and duration must be positive", common.ErrConfiguration)
	}
	if logger == nil {
		logger = logging.Nop{}
	}

	// Unknown emails are verified against this hash so they cost the same as
	// a wrong password.
	dummy, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, err
	}
	dummyHash, err := hasher.Hash(dummy)
	if err != nil {
		return nil, err
	}

	return &UserService{
		db:               db,
		repomanager:      m,
		tokens:           tokens,
		hasher:           hasher,
		dummyHash:        dummyHash,
		lockoutThreshold: cfg.LockoutThreshold,
		lockoutDuration:  cfg.LockoutDuration,
		logger:           logger.With("module", "user_service"),
		metrics:          mt,
		now:              time.Now,
	}, nil
}

// Register creates an identity. Weak passwords are refused with
// common.ErrWeakPassword; a taken email yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, email, password string) (*models.Identity, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is invalid", common.ErrorValidation)
	}

	report := strength.Score(password)
	if report.Level == strength.LevelWeak {
		return nil, fmt.Errorf("%w: %s", common.ErrWeakPassword, strings.Join(report.Feedback, "; "))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	identity := &models.Identity{ID: uuid.NewString(), Email: email, PasswordHash: hash}
	if err := s.repomanager.Users(s.db).Create(ctx, identity); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "identity registered", "user_id", identity.ID)
	return identity, nil
}

// Login checks the lock, then the password, and on success returns a fresh
// TokenPair which becomes the identity's only valid session.
//
// The identity row stays locked for the whole attempt, so concurrent attempts
// cannot under-count failures. Failed attempts still commit their counter
// update: the outcome is carried out of the transaction instead of being
// returned from it.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = normalizeEmail(email)

	var (
		pair    *TokenPair
		outcome error
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)

		identity, err := users.GetByEmailForUpdate(ctx, email)
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Verify(password, s.dummyHash)
			outcome = common.ErrInvalidCredentials
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now()
		if identity.IsLocked(now) {
			outcome = common.ErrAccountLocked
			return nil
		}

		ok, err := s.hasher.Verify(password, identity.PasswordHash)
		if err != nil {
			return fmt.Errorf("error verifying password: %w", err)
		}

		if !ok {
			count := identity.FailedAttemptCount + 1
			if identity.LockedUntil != nil {
				// the previous lock has expired
				count = 1
			}

			var lockedUntil *time.Time
			if count >= s.lockoutThreshold {
				t := now.Add(s.lockoutDuration)
				lockedUntil = &t
			}

			if err := users.RecordFailure(ctx, identity.ID, count, lockedUntil); err != nil {
				return err
			}

			if lockedUntil != nil {
				s.metrics.Lockout()
				s.logger.Warn(ctx, "identity locked", "user_id", identity.ID, "until", *lockedUntil)
			}
			s.logger.Info(ctx, "login failed", "user_id", identity.ID, "failed_attempts", count)
			outcome = common.ErrInvalidCredentials
			return nil
		}

		if err := users.RecordSuccess(ctx, identity.ID, now); err != nil {
			return err
		}

		pair, err = s.issuePair(ctx, tx, identity)
		return err
	})

	switch {
	case err != nil:
		s.metrics.Login(metrics.LoginError)
		s.logger.Error(ctx, "login error", "error", err)
		return nil, common.ErrorInternal
	case errors.Is(outcome, common.ErrAccountLocked):
		s.metrics.Login(metrics.LoginLocked)
		return nil, outcome
	case outcome != nil:
		s.metrics.Login(metrics.LoginInvalidCredentials)
		return nil, outcome
	}

	s.metrics.Login(metrics.LoginSuccess)
	return pair, nil
}

// Refresh verifies a refresh token, then swaps it for a new one. The swap only
// succeeds if the presented token is still the identity's current one; a
// rotated-out or logged-out token fails with common.ErrRefreshTokenReused
// wrapped in common.ErrInvalidToken.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.KindRefresh)
	s.observeVerification(auth.KindRefresh, err)
	if err != nil {
		return nil, err
	}

	identity, err := s.repomanager.Users(s.db).GetByID(ctx, claims.Subject)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, reusedToken()
	}
	if err != nil {
		s.logger.Error(ctx, "refresh lookup error", "error", err)
		return nil, common.ErrorInternal
	}

	access, refresh, err := s.mint(identity)
	if err != nil {
		return nil, err
	}

	expires := s.now().Add(s.tokens.RefreshTTL())
	err = s.repomanager.RefreshTokens(s.db).Rotate(ctx, identity.ID, hashToken(refreshToken), hashToken(refresh), expires)
	if errors.Is(err, common.ErrVersionConflict) {
		s.logger.Warn(ctx, "stale refresh token presented", "user_id", identity.ID)
		return nil, reusedToken()
	}
	if err != nil {
		s.logger.Error(ctx, "refresh rotation error", "error", err)
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess checks an access token and returns its claims.
func (s *UserService) VerifyAccess(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := s.tokens.Verify(accessToken, auth.KindAccess)
	s.observeVerification(auth.KindAccess, err)
	return claims, err
}

// Logout drops the identity's refresh token; later refreshes fail.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if err := s.repomanager.RefreshTokens(s.db).Delete(ctx, userID); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// Unlock clears the failure counter and any lock. Administrative path only.
func (s *UserService) Unlock(ctx context.Context, userID string) error {
	if err := s.repomanager.Users(s.db).ResetLockout(ctx, userID); err != nil {
		return fmt.Errorf("error unlocking user: %w", err)
	}
	s.logger.Info(ctx, "identity unlocked", "user_id", userID)
	return nil
}

// --- helpers below ---

func (s *UserService) mint(identity *models.Identity) (string, string, error) {
	access, err := s.tokens.IssueAccess(identity.ID, map[string]any{"email": identity.Email})
	if err != nil {
		return "", "", common.ErrorInternal
	}
	refresh, err := s.tokens.IssueRefresh(identity.ID)
	if err != nil {
		return "", "", common.ErrorInternal
	}
	return access, refresh, nil
}

func (s *UserService) issuePair(ctx context.Context, tx dbx.DBTX, identity *models.Identity) (*TokenPair, error) {
	access, refresh, err := s.mint(identity)
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(s.tokens.RefreshTTL())
	if err := s.repomanager.RefreshTokens(tx).Save(ctx, identity.ID, hashToken(refresh), expires); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *UserService) observeVerification(kind auth.Kind, err error) {
	reason := "ok"
	if err != nil {
		reason = auth.Reason(err)
	}
	s.metrics.TokenVerification(string(kind), reason)
}

func reusedToken() error {
	return fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrRefreshTokenReused)
}

// hashToken is the stored form of a refresh token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
