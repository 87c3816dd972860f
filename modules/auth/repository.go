package auth

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/contacts-api/domain/user"
)

var (
	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrRefreshTokenMismatch is returned when the stored refresh token does
	// not match the one presented during rotation.
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")
)

// UserRepository provides access to user storage.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. Returns ErrEmailTaken if the email is in use.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByEmail retrieves a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return &u, nil
}

// FindByID retrieves a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}
	return &u, nil
}

// EmailExists reports whether a user with the given email exists.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&user.User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return count > 0, nil
}

// SetRefreshToken stores the refresh token for the user, replacing any
// previous one.
func (r *UserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	result := r.db.WithContext(ctx).Model(&user.User{}).
		Where("id = ?", userID).
		Update("refresh_token", token)
	if result.Error != nil {
		return fmt.Errorf("failed to set refresh token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RotateRefreshToken atomically replaces oldToken with newToken. The update
// only applies when the stored token still equals oldToken, so concurrent
// rotations with the same token cannot both succeed.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) error {
	result := r.db.WithContext(ctx).Model(&user.User{}).
		Where("id = ? AND refresh_token = ?", userID, oldToken).
		Update("refresh_token", newToken)
	if result.Error != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRefreshTokenMismatch
	}
	return nil
}

// ClearRefreshToken removes the stored refresh token, invalidating the
// whole refresh chain for the user.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	err := r.db.WithContext(ctx).Model(&user.User{}).
		Where("id = ?", userID).
		Update("refresh_token", "").Error
	if err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return nil
}

// MarkConfirmed marks the user's email as confirmed.
func (r *UserRepository) MarkConfirmed(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).Model(&user.User{}).
		Where("id = ?", userID).
		Update("confirmed", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark user confirmed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateAvatar stores the avatar URL for the user.
func (r *UserRepository) UpdateAvatar(ctx context.Context, userID, avatarURL string) error {
	result := r.db.WithContext(ctx).Model(&user.User{}).
		Where("id = ?", userID).
		Update("avatar_url", avatarURL)
	if result.Error != nil {
		return fmt.Errorf("failed to update avatar: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
