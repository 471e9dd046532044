package repository

import (
	"context"

	"cmsbackend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleRepository interface {
	FindByCodes(ctx context.Context, codes []string) ([]model.Role, error)
	InsertMissing(ctx context.Context, roles []model.Role) (int64, error)
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

// FindByCodes returns the active, non-deleted roles with the given codes
func (r *roleRepository) FindByCodes(ctx context.Context, codes []string) ([]model.Role, error) {
	var roles []model.Role
	if len(codes) == 0 {
		return roles, nil
	}
	err := GetDB(ctx, r.db).
		Where("code IN ? AND is_active = ? AND is_deleted = ?", codes, true, false).
		Find(&roles).Error
	return roles, translate(err)
}

// InsertMissing inserts roles whose code is not taken yet; existing codes are skipped
func (r *roleRepository) InsertMissing(ctx context.Context, roles []model.Role) (int64, error) {
	if len(roles) == 0 {
		return 0, nil
	}
	res := GetDB(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&roles, insertBatchSize)
	return res.RowsAffected, translate(res.Error)
}
