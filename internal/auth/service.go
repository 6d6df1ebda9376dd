package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

// Validation patterns
var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9 ()\-]{5,32}$`)
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user with email or username already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrAuthRequired       = errors.New("authentication required")
	ErrInvalidRole        = errors.New("invalid role")
	ErrUsernameRequired   = errors.New("username is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrFullNameRequired   = errors.New("full name is required")
	ErrIdentifierRequired = errors.New("username or email is required")
	ErrAccountLocked      = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid    = errors.New("username must be 3-64 characters, lowercase alphanumeric and underscore/hyphen only")
	ErrEmailInvalid       = errors.New("invalid email format")
	ErrContactInvalid     = errors.New("invalid contact number")
)

// Registration is the data a new account is created from.
type Registration struct {
	FullName      string
	Email         string
	Username      string
	Password      string
	ContactNumber string
	Role          entities.UserRole // Defaults to member
}

// Service handles authentication and user management.
type Service struct {
	users  *users.Repository
	config config.Auth
}

// NewService creates a new authentication service.
func NewService(repo *users.Repository, cfg config.Auth) *Service {
	return &Service{
		users:  repo,
		config: cfg,
	}
}

// Register validates and stores a new account.
// Usernames are stored lowercase, so lookups are case-insensitive.
func (s *Service) Register(reg Registration) (*entities.User, error) {
	reg.FullName = strings.TrimSpace(reg.FullName)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Username = strings.ToLower(strings.TrimSpace(reg.Username))
	reg.ContactNumber = strings.TrimSpace(reg.ContactNumber)

	if reg.Username == "" {
		return nil, ErrUsernameRequired
	}
	if reg.Email == "" {
		return nil, ErrEmailRequired
	}
	if reg.Password == "" {
		return nil, ErrPasswordRequired
	}
	if reg.FullName == "" {
		return nil, ErrFullNameRequired
	}
	if !usernamePattern.MatchString(reg.Username) {
		return nil, ErrUsernameInvalid
	}
	// RFC 5321 limit is 254
	if len(reg.Email) > 254 || !emailPattern.MatchString(reg.Email) {
		return nil, ErrEmailInvalid
	}
	if reg.ContactNumber != "" && !phonePattern.MatchString(reg.ContactNumber) {
		return nil, ErrContactInvalid
	}

	if reg.Role == "" {
		reg.Role = entities.UserRoleMember
	}
	switch reg.Role {
	case entities.UserRoleAdmin, entities.UserRoleMember:
	default:
		return nil, ErrInvalidRole
	}

	exists, err := s.users.Exists(reg.Username, reg.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := s.hashNewPassword(reg.Password)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:      reg.Username,
		Email:         reg.Email,
		FullName:      reg.FullName,
		ContactNumber: reg.ContactNumber,
		PasswordHash:  passwordHash,
		Role:          reg.Role,
	}
	if err := s.users.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// CreateUser creates an account with an explicit role. The full name
// defaults to the username.
func (s *Service) CreateUser(username, email, password string, role entities.UserRole) (*entities.User, error) {
	return s.Register(Registration{
		FullName: username,
		Email:    email,
		Username: username,
		Password: password,
		Role:     role,
	})
}

// UsernameAvailable reports whether nobody holds the username yet.
func (s *Service) UsernameAvailable(username string) (bool, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return false, ErrUsernameRequired
	}
	_, err := s.users.GetUserByUsername(username)
	if errors.Is(err, users.ErrUserNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// Authenticate validates credentials and returns the user.
// The identifier is either the username or the e-mail address.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(identifier, password string) (*entities.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrIdentifierRequired
	}

	user, err := s.users.GetUserByIdentifier(identifier)
	if err != nil {
		// Usernames are stored lowercase
		user, err = s.users.GetUserByIdentifier(strings.ToLower(identifier))
	}
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(user)
		return nil, err
	}

	now := time.Now()
	_ = s.users.UpdateFields(user.ID, map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	})
	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil

	return user, nil
}

// recordFailedLogin increments the failed login counter and locks the account if threshold reached.
func (s *Service) recordFailedLogin(user *entities.User) {
	user.FailedLoginCount++

	updates := map[string]any{
		"failed_login_count": user.FailedLoginCount,
	}

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if user.FailedLoginCount >= maxAttempts {
		lockoutDuration := s.config.LockoutDuration
		if lockoutDuration == 0 {
			lockoutDuration = 30 * time.Minute
		}
		updates["locked_until"] = time.Now().Add(lockoutDuration)
	}

	_ = s.users.UpdateFields(user.ID, updates)
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	user, err := s.users.GetUserByID(id)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// ValidateToken checks a plaintext token and returns the associated user.
// Returns ErrTokenExpired if the token is past its expiry time.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.users.GetUserByTokenHash(HashToken(token))
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if s.config.TokenExpiry > 0 && user.TokenCreatedAt != nil {
		if time.Since(*user.TokenCreatedAt) > s.config.TokenExpiry {
			return nil, ErrTokenExpired
		}
	}

	return user, nil
}

// GenerateToken creates a new API token for a user, replacing any previous one.
// Returns the plaintext token (show to user once) - only the hash is stored in DB.
func (s *Service) GenerateToken(userID uint) (string, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	err = s.users.UpdateFields(userID, map[string]any{
		"token_hash":       hash,
		"token_created_at": time.Now(),
	})
	if errors.Is(err, users.ErrUserNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}

	return plaintext, nil
}

// RevokeToken removes a user's API token.
func (s *Service) RevokeToken(userID uint) error {
	err := s.users.UpdateFields(userID, map[string]any{
		"token_hash":       "",
		"token_created_at": nil,
	})
	if err != nil && !errors.Is(err, users.ErrUserNotFound) {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// ChangePassword updates a user's password.
func (s *Service) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}

	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return err
	}

	newHash, err := s.hashNewPassword(newPassword)
	if err != nil {
		return err
	}

	return s.users.UpdateFields(userID, map[string]any{"password_hash": newHash})
}

// hashNewPassword enforces the configured length policy before hashing.
func (s *Service) hashNewPassword(password string) (string, error) {
	if err := ValidatePassword(password, s.config.MinPasswordLength); err != nil {
		return "", err
	}
	return HashPassword(password, s.config.BcryptCost)
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers() (bool, error) {
	count, err := s.users.CountUsers()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
