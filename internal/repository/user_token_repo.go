package repository

import (
	"context"
	"time"

	"cmsbackend/internal/model"

	"gorm.io/gorm"
)

type UserTokenRepository interface {
	Create(ctx context.Context, token *model.UserToken) error
	FindValid(ctx context.Context, token string, now time.Time) (*model.UserToken, error)
	Expire(ctx context.Context, token string) (int64, error)
}

type userTokenRepository struct {
	db *gorm.DB
}

func NewUserTokenRepository(db *gorm.DB) UserTokenRepository {
	return &userTokenRepository{db: db}
}

func (r *userTokenRepository) Create(ctx context.Context, token *model.UserToken) error {
	return translate(GetDB(ctx, r.db).Create(token).Error)
}

// FindValid returns the bookkeeping row of an unexpired, unrevoked token
func (r *userTokenRepository) FindValid(ctx context.Context, token string, now time.Time) (*model.UserToken, error) {
	var row model.UserToken
	err := GetDB(ctx, r.db).
		Where("token = ? AND is_token_expired = ? AND is_deleted = ? AND expires_at > ?", token, false, false, now).
		Take(&row).Error
	if err != nil {
		return nil, translate(err)
	}
	return &row, nil
}

func (r *userTokenRepository) Expire(ctx context.Context, token string) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.UserToken{}).
		Where("token = ?", token).
		Update("is_token_expired", true)
	return res.RowsAffected, translate(res.Error)
}
