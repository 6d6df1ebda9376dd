// Package users provides database operations for user management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByIdentifier("alice")
package users

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a fully populated user.
func (r *Repository) CreateUser(user *entities.User) error {
	return r.db.Create(user).Error
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	return r.first(r.db.Where("id = ?", id))
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	return r.first(r.db.Where("username = ?", username))
}

// GetUserByIdentifier retrieves a user by username or e-mail.
func (r *Repository) GetUserByIdentifier(identifier string) (*entities.User, error) {
	return r.first(r.db.Where("username = ? OR email = ?", identifier, identifier))
}

// GetUserByTokenHash retrieves a user by the SHA-256 hash of their API token.
func (r *Repository) GetUserByTokenHash(tokenHash string) (*entities.User, error) {
	if tokenHash == "" {
		return nil, ErrUserNotFound
	}
	return r.first(r.db.Where("token_hash = ?", tokenHash))
}

// Exists reports whether a user already holds the username or e-mail.
func (r *Repository) Exists(username, email string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

// UpdateFields applies a partial update to a user row.
// Returns ErrUserNotFound if no row matched.
func (r *Repository) UpdateFields(id uint, fields map[string]any) error {
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountUsers returns the number of users.
func (r *Repository) CountUsers() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

func (r *Repository) first(query *gorm.DB) (*entities.User, error) {
	var user entities.User
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
