package repository

import (
	"context"

	"cmsbackend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RouteRoleRepository interface {
	InsertMissing(ctx context.Context, grants []model.RouteRole) (int64, error)
	RoleIDsForRoute(ctx context.Context, routeID uuid.UUID) ([]uuid.UUID, error)
}

type routeRoleRepository struct {
	db *gorm.DB
}

func NewRouteRoleRepository(db *gorm.DB) RouteRoleRepository {
	return &routeRoleRepository{db: db}
}

// InsertMissing inserts grants, ignoring pairs already present. Two seeders
// racing on the same pair both succeed; only one row survives.
func (r *routeRoleRepository) InsertMissing(ctx context.Context, grants []model.RouteRole) (int64, error) {
	if len(grants) == 0 {
		return 0, nil
	}
	res := GetDB(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&grants, insertBatchSize)
	return res.RowsAffected, translate(res.Error)
}

// RoleIDsForRoute returns the distinct active roles granted to a route
func (r *routeRoleRepository) RoleIDsForRoute(ctx context.Context, routeID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := GetDB(ctx, r.db).Model(&model.RouteRole{}).
		Joins("JOIN roles ON roles.id = route_roles.role_id").
		Where("route_roles.route_id = ? AND route_roles.is_active = ? AND route_roles.is_deleted = ?", routeID, true, false).
		Where("roles.is_active = ? AND roles.is_deleted = ?", true, false).
		Distinct().
		Pluck("route_roles.role_id", &ids).Error
	return ids, translate(err)
}
