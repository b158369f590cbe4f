package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// DefaultSessionTTL bounds session lifetime when the configuration does not
// say otherwise.
const DefaultSessionTTL = 12 * time.Hour

// SessionRepository captures the persistence interactions needed by the auth
// service.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) error
}

// AuthService authenticates credentials and manages bearer sessions.
type AuthService struct {
	users          UserRepository
	sessions       SessionRepository
	sessionTTL     time.Duration
	idGenerator    func() string
	tokenGenerator func() (string, error)
	now            func() time.Time
	logger         *slog.Logger
}

// NewAuthService wires dependencies for authentication.
func NewAuthService(users UserRepository, sessions SessionRepository, sessionTTL time.Duration, idGenerator func() string, tokenGenerator func() (string, error), now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(users, sessions, sessionTTL, idGenerator, tokenGenerator, now, nil)
}

// NewAuthServiceWithLogger constructs an auth service with a specified logger.
func NewAuthServiceWithLogger(users UserRepository, sessions SessionRepository, sessionTTL time.Duration, idGenerator func() string, tokenGenerator func() (string, error), now func() time.Time, logger *slog.Logger) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = func() (string, error) {
			return "", fmt.Errorf("token generator not configured")
		}
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:          users,
		sessions:       sessions,
		sessionTTL:     sessionTTL,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate verifies credentials and issues a new session. Unknown emails
// and wrong passwords are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil || s.sessions == nil {
		err = fmt.Errorf("auth service not fully configured")
		return
	}

	logger := s.loggerWith(ctx, "Authenticate")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to authenticate", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "session issued")
	}()

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	record, lookupErr := s.users.GetUserByEmail(ctx, email)
	if lookupErr != nil {
		if errors.Is(lookupErr, ErrNotFound) || errors.Is(lookupErr, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = lookupErr
		return
	}

	if err = VerifyPassword(record.PasswordHash, params.Password); err != nil {
		return
	}

	var token string
	token, err = s.tokenGenerator()
	if err != nil {
		return
	}

	issuedAt := s.now()
	session := Session{
		ID:        s.idGenerator(),
		UserID:    record.User.ID,
		Token:     token,
		ExpiresAt: issuedAt.Add(s.sessionTTL),
		CreatedAt: issuedAt,
		UpdatedAt: issuedAt,
	}

	session, err = s.sessions.CreateSession(ctx, session)
	if err != nil {
		err = mapSessionRepoError(err)
		return
	}

	result = AuthenticateResult{User: record.User, Session: session}
	return
}

// ValidateSession resolves a bearer token to the acting principal. Expired
// and revoked sessions fail with distinct errors so the transport can log
// them apart, though both surface as unauthenticated to clients.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if s == nil {
		return Principal{}, fmt.Errorf("AuthService is nil")
	}
	if s.users == nil || s.sessions == nil {
		return Principal{}, fmt.Errorf("auth service not fully configured")
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, ErrInvalidCredentials
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, err
	}

	if session.RevokedAt != nil {
		return Principal{}, ErrSessionRevoked
	}
	if !s.now().Before(session.ExpiresAt) {
		return Principal{}, ErrSessionExpired
	}

	user, err := s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, err
	}

	return Principal{UserID: user.ID, IsAdmin: user.IsAdmin}, nil
}

// RevokeSession invalidates a bearer token. Revoking an unknown or already
// revoked token reports ErrNotFound.
func (s *AuthService) RevokeSession(ctx context.Context, token string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	logger := s.loggerWith(ctx, "RevokeSession")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session revoked")
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNotFound
	}

	session, revokeErr := s.sessions.RevokeSession(ctx, token, s.now())
	if revokeErr != nil {
		err = mapSessionRepoError(revokeErr)
		return
	}
	if session.RevokedAt == nil {
		err = fmt.Errorf("session not marked revoked")
	}
	return
}

// PruneExpiredSessions deletes sessions past their expiry. Intended for a
// periodic sweep from the composition root.
func (s *AuthService) PruneExpiredSessions(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return nil
	}

	if err := s.sessions.DeleteExpiredSessions(ctx, s.now()); err != nil {
		return mapSessionRepoError(err)
	}
	s.loggerWith(ctx, "PruneExpiredSessions").InfoContext(ctx, "expired sessions pruned")
	return nil
}

func mapSessionRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return err
}
