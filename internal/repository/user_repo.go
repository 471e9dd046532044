package repository

import (
	"context"
	"time"

	"cmsbackend/internal/apperr"
	"cmsbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines the data access the auth and seeding flows need
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	FindByUsernames(ctx context.Context, usernames []string) ([]model.User, error)
	InsertMissing(ctx context.Context, users []model.User) (int64, error)
	UpdateLoginState(ctx context.Context, id uuid.UUID, attempts int, reactiveAt *time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetByLogin matches either the username or the email
func (r *userRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	err := GetDB(ctx, r.db).
		Where("username = ? OR email = ?", login, login).
		Take(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) FindByUsernames(ctx context.Context, usernames []string) ([]model.User, error) {
	var users []model.User
	if len(usernames) == 0 {
		return users, nil
	}
	err := GetDB(ctx, r.db).Where("username IN ?", usernames).Find(&users).Error
	return users, translate(err)
}

// InsertMissing creates users whose username is free; existing users are left untouched
func (r *userRepository) InsertMissing(ctx context.Context, users []model.User) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}
	res := GetDB(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&users, insertBatchSize)
	return res.RowsAffected, translate(res.Error)
}

// UpdateLoginState stores the failed login counter and lock; a nil
// reactiveAt clears the lock
func (r *userRepository) UpdateLoginState(ctx context.Context, id uuid.UUID, attempts int, reactiveAt *time.Time) error {
	res := GetDB(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"login_retry_limit":   attempts,
		"login_reactive_time": reactiveAt,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
