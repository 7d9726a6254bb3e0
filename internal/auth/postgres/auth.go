package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/attendance-management/internal/auth"
	authDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/auth"
	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if isUniqueViolation(err) {
		return auth.ErrEmailExists
	}
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Create(ctx context.Context, t *authDatamodel.RefreshToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *TokenRepository) ReplaceForUser(ctx context.Context, userID int64, t *authDatamodel.RefreshToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&authDatamodel.RefreshToken{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Update("is_active", false).Error
		if err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

func (r *TokenRepository) FindActiveByHash(ctx context.Context, hash string) (*authDatamodel.RefreshToken, error) {
	var t authDatamodel.RefreshToken
	err := r.db.WithContext(ctx).Where("token_hash = ? AND is_active = ?", hash, true).First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrTokenNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TokenRepository) DeactivateByHash(ctx context.Context, hash string) error {
	return r.db.WithContext(ctx).
		Model(&authDatamodel.RefreshToken{}).
		Where("token_hash = ?", hash).
		Update("is_active", false).Error
}

func (r *TokenRepository) DeactivateAllForUser(ctx context.Context, userID int64, exceptHash string) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&authDatamodel.RefreshToken{}).
		Where("user_id = ? AND is_active = ?", userID, true)
	if exceptHash != "" {
		q = q.Where("token_hash <> ?", exceptHash)
	}
	res := q.Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&authDatamodel.RefreshToken{})
	return res.RowsAffected, res.Error
}

type ResetRepository struct {
	db *gorm.DB
}

func NewResetRepository(db *gorm.DB) *ResetRepository {
	return &ResetRepository{db: db}
}

func (r *ResetRepository) ReplaceForUser(ctx context.Context, p *authDatamodel.PasswordReset) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&authDatamodel.PasswordReset{}).
			Where("user_id = ? AND is_used = ?", p.UserID, false).
			Updates(map[string]interface{}{"is_used": true, "used_at": p.CreatedAt}).Error
		if err != nil {
			return err
		}
		return tx.Create(p).Error
	})
}

// Redeem sets the user's password and marks the matching code used in one transaction. When
// either write fails the code stays redeemable.
func (r *ResetRepository) Redeem(ctx context.Context, email, code, passwordHash string, now time.Time) (*authDatamodel.PasswordReset, error) {
	var p authDatamodel.PasswordReset
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ? AND code = ? AND is_used = ? AND expires_at > ?", email, code, false, now).
			Order("created_at DESC").
			First(&p).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return auth.ErrResetNotFound
			}
			return err
		}

		res := tx.Model(&userDatamodel.User{}).
			Where("id = ?", p.UserID).
			Update("password_hash", passwordHash)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return auth.ErrUserNotFound
		}

		// the is_used guard makes a concurrent second redemption update nothing
		res = tx.Model(&authDatamodel.PasswordReset{}).
			Where("id = ? AND is_used = ?", p.ID, false).
			Updates(map[string]interface{}{"is_used": true, "used_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return auth.ErrResetNotFound
		}
		p.IsUsed = true
		p.UsedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&authDatamodel.PasswordReset{})
	return res.RowsAffected, res.Error
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
