package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medrec/medrec-api/internal/domain"
)

const (
	maxFailedLogins = 5
	lockDuration    = 15 * time.Minute
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("fetching user by email: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return &u, nil
}

// UpdateLoginAttempt records a login outcome: success resets the failure
// counter, failure increments it and locks the account past the threshold.
func (r *UserRepository) UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error {
	if success {
		now := time.Now()
		return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
			Updates(map[string]any{
				"failed_login_count": 0,
				"locked_until":       nil,
				"last_login_at":      now,
			}).Error
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u domain.User
		if err := tx.First(&u, "id = ?", id).Error; err != nil {
			return err
		}
		updates := map[string]any{"failed_login_count": u.FailedLoginCount + 1}
		if u.FailedLoginCount+1 >= maxFailedLogins {
			lockedUntil := time.Now().Add(lockDuration)
			updates["locked_until"] = lockedUntil
		}
		return tx.Model(&u).Updates(updates).Error
	})
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		Update("password_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("updating password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
