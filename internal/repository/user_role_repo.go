package repository

import (
	"context"

	"cmsbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRoleRepository interface {
	InsertMissing(ctx context.Context, assignments []model.UserRole) (int64, error)
	RoleIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	Delete(ctx context.Context, userID, roleID uuid.UUID) (int64, error)
}

type userRoleRepository struct {
	db *gorm.DB
}

func NewUserRoleRepository(db *gorm.DB) UserRoleRepository {
	return &userRoleRepository{db: db}
}

func (r *userRoleRepository) InsertMissing(ctx context.Context, assignments []model.UserRole) (int64, error) {
	if len(assignments) == 0 {
		return 0, nil
	}
	res := GetDB(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&assignments, insertBatchSize)
	return res.RowsAffected, translate(res.Error)
}

// RoleIDsForUser returns the distinct active roles assigned to a principal
func (r *userRoleRepository) RoleIDsForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := GetDB(ctx, r.db).Model(&model.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND user_roles.is_active = ? AND user_roles.is_deleted = ?", userID, true, false).
		Where("roles.is_active = ? AND roles.is_deleted = ?", true, false).
		Distinct().
		Pluck("user_roles.role_id", &ids).Error
	return ids, translate(err)
}

func (r *userRoleRepository) Delete(ctx context.Context, userID, roleID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Where("user_id = ? AND role_id = ?", userID, roleID).Delete(&model.UserRole{})
	return res.RowsAffected, translate(res.Error)
}
