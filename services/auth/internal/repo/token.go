package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/skincare_shop/services/auth/internal/models"
)

var ErrTokenRevoked = errors.New("token expired or revoked")

func (r *GormRepo) AddRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

func (r *GormRepo) FindRefreshByJTI(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("jti = ?", jti).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, err
	}
	return &token, nil
}

// ConsumeRefreshToken revokes a live token. Only one caller can consume a given jti;
// the loser of a concurrent rotation gets ErrTokenRevoked.
func (r *GormRepo) ConsumeRefreshToken(ctx context.Context, jti string, now time.Time) error {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ? AND revoked = ? AND expires_at >= ?", jti, false, now.Unix()).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrTokenRevoked
	}
	return nil
}

// RotateRefreshToken consumes oldJTI and stores next in one transaction.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI string, next *models.RefreshToken, now time.Time) error {
	return r.InTx(ctx, func(tx *GormRepo) error {
		if err := tx.ConsumeRefreshToken(ctx, oldJTI, now); err != nil {
			return err
		}
		return tx.AddRefreshToken(ctx, next)
	})
}

func (r *GormRepo) RevokeByHash(ctx context.Context, hash string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", hash).
		Update("revoked", true).Error
}

// RevokeAllForUser is used when a consumed token is replayed.
func (r *GormRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}
