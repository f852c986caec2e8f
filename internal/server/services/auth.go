package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/cryptox"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/auth"
	"github.com/dmitrijs2005/timekeeper/internal/server/config"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/repomanager"
)

const (
	maxUserNameLen = 64
	maxPasswordLen = 1024
)

// PasswordHasher produces and checks encoded password digests.
type PasswordHasher interface {
	Hash(password []byte) (string, error)
	Verify(password []byte, encoded string) (bool, error)
}

// Session is what a validated token proves: who the caller is and which
// token they used.
type Session struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

type AuthService struct {
	repomanager repomanager.RepositoryManager
	hasher      PasswordHasher
	jwtSecret   []byte
	tokenTTL    time.Duration
	log         logging.Logger

	// dummyHash is verified against when the user does not exist so that
	// unknown usernames cost the same as wrong passwords.
	dummyHash string
}

func NewAuthService(m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *AuthService {
	return newAuthService(m, cryptox.NewArgon2Hasher(cryptox.DefaultParams), cfg, log)
}

func newAuthService(m repomanager.RepositoryManager, h PasswordHasher, cfg *config.Config, log logging.Logger) *AuthService {
	dummy, err := h.Hash(common.GenerateRandByteArray(16))
	if err != nil {
		panic(fmt.Sprintf("hashing dummy password: %v", err))
	}
	return &AuthService{
		repomanager: m,
		hasher:      h,
		jwtSecret:   []byte(cfg.SecretKey),
		tokenTTL:    cfg.TokenTTL,
		log:         log.With("module", "auth"),
		dummyHash:   dummy,
	}
}

func validateCredentials(userName, password string) error {
	switch {
	case strings.TrimSpace(userName) == "":
		return fmt.Errorf("%w: username is required", common.ErrorValidation)
	case len(userName) > maxUserNameLen:
		return fmt.Errorf("%w: username is longer than %d bytes", common.ErrorValidation, maxUserNameLen)
	case password == "":
		return fmt.Errorf("%w: password is required", common.ErrorValidation)
	case len(password) > maxPasswordLen:
		return fmt.Errorf("%w: password is longer than %d bytes", common.ErrorValidation, maxPasswordLen)
	}
	return nil
}

// Register creates a user. A taken username yields common.ErrorConflict.
func (s *AuthService) Register(ctx context.Context, userName, password string) (*models.User, error) {
	if err := validateCredentials(userName, password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("%w: hashing password: %v", common.ErrorInternal, err)
	}

	user, err := s.repomanager.Users().Create(ctx, &models.User{UserName: userName, PasswordHash: hash})
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login checks the credentials and issues a new session token. Unknown
// users and wrong passwords both yield common.ErrorUnauthorized.
func (s *AuthService) Login(ctx context.Context, userName, password string) (auth.Token, error) {
	user, err := s.repomanager.Users().GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Verify([]byte(password), s.dummyHash)
			return auth.Token{}, common.ErrorUnauthorized
		}
		return auth.Token{}, fmt.Errorf("error loading user: %w", err)
	}

	ok, err := s.hasher.Verify([]byte(password), user.PasswordHash)
	if err != nil {
		s.log.Error(ctx, "stored password hash is unreadable", "user_id", user.ID, "error", err)
		return auth.Token{}, common.ErrorInternal
	}
	if !ok {
		return auth.Token{}, common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return auth.Token{}, fmt.Errorf("%w: signing token: %v", common.ErrorInternal, err)
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return token, nil
}

// Validate checks a bearer token and returns the session it proves. Any
// token problem (missing, malformed, tampered, expired, revoked) is
// reported as common.ErrorUnauthorized with the cause wrapped alongside.
// Validate has no side effects.
func (s *AuthService) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrInvalidToken)
	}

	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	revoked, err := s.repomanager.RevokedTokens().IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("error checking revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrTokenRevoked)
	}

	return &Session{UserID: claims.UserID(), TokenID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Logout revokes the session's token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, session *Session) error {
	err := s.repomanager.RevokedTokens().Revoke(ctx, &models.RevokedToken{
		ID:        session.TokenID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("error revoking token: %w", err)
	}
	s.log.Info(ctx, "user logged out", "user_id", session.UserID)
	return nil
}

// PurgeRevoked drops revocations of tokens that have expired by now.
func (s *AuthService) PurgeRevoked(ctx context.Context, now time.Time) (int64, error) {
	return s.repomanager.RevokedTokens().PurgeExpired(ctx, now)
}
