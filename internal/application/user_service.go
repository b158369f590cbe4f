package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// UserRecord pairs a user with its stored password hash. The hash stays off
// the User model so it never leaks into listings or responses.
type UserRecord struct {
	User         User
	PasswordHash string
}

// UserRepository captures the persistence interactions needed by the user
// service.
type UserRepository interface {
	CreateUser(ctx context.Context, record UserRecord) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// UserService manages account registration and lookup.
type UserService struct {
	users       UserRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for user management.
func NewUserService(users UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, idGenerator, now, nil)
}

// NewUserServiceWithLogger constructs a user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:       users,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Register creates a regular account from a self-service signup. Registered
// accounts are never administrators.
func (s *UserService) Register(ctx context.Context, params RegisterUserParams) (created User, err error) {
	input := params.Input
	input.IsAdmin = false
	return s.create(ctx, "Register", input)
}

// CreateUser provisions an account on behalf of an administrator, optionally
// with the admin role.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (created User, err error) {
	if !params.Principal.IsAdmin {
		logger := s.loggerWith(ctx, "CreateUser", "principal_id", params.Principal.UserID)
		logger.ErrorContext(ctx, "failed to create user", "error", ErrUnauthorized, "error_kind", ErrorKind(ErrUnauthorized))
		return User{}, ErrUnauthorized
	}
	return s.create(ctx, "CreateUser", params.Input)
}

func (s *UserService) create(ctx context.Context, operation string, input UserInput) (created User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, operation)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", created.ID, "is_admin", created.IsAdmin).InfoContext(ctx, "user created")
	}()

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if vErr := validateUserInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	var hash string
	hash, err = CreatePasswordHash(input.Password, DefaultArgon2idParams)
	if err != nil {
		return
	}

	createdAt := s.now()
	user := User{
		ID:          s.idGenerator(),
		Email:       input.Email,
		DisplayName: input.DisplayName,
		IsAdmin:     input.IsAdmin,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	created, err = s.users.CreateUser(ctx, UserRecord{User: user, PasswordHash: hash})
	if err != nil {
		err = mapUserRepoError(err)
	}
	return
}

// GetUser returns a user profile. Callers may read their own profile;
// administrators may read anyone's.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}

	if userID != principal.UserID && !principal.IsAdmin {
		return User{}, ErrUnauthorized
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return user, nil
}

// ListUsers returns every account. Admin only.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return nil, nil
	}

	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapUserRepoError(err)
	}
	return users, nil
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is not a valid address")
	}
	if input.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	} else if len(input.DisplayName) > 120 {
		vErr.add("display_name", "display name cannot exceed 120 characters")
	}
	if len(input.Password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	} else if len(input.Password) > maxPasswordLength {
		vErr.add("password", fmt.Sprintf("password cannot exceed %d characters", maxPasswordLength))
	}
	return vErr
}

func mapUserRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		vErr := &ValidationError{}
		vErr.add("email", "an account with this email already exists")
		return vErr
	}
	return err
}
