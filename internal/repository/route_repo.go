package repository

import (
	"context"

	"cmsbackend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectRouteRepository interface {
	FindActive(ctx context.Context, uris, methods []string) ([]model.ProjectRoute, error)
	FindByURIMethod(ctx context.Context, uri, method string) (*model.ProjectRoute, error)
	InsertMissing(ctx context.Context, routes []model.ProjectRoute) (int64, error)
}

type projectRouteRepository struct {
	db *gorm.DB
}

func NewProjectRouteRepository(db *gorm.DB) ProjectRouteRepository {
	return &projectRouteRepository{db: db}
}

// FindActive returns active, non-deleted routes whose uri and method are both
// in the given sets. Callers match exact pairs in memory.
func (r *projectRouteRepository) FindActive(ctx context.Context, uris, methods []string) ([]model.ProjectRoute, error) {
	var routes []model.ProjectRoute
	if len(uris) == 0 || len(methods) == 0 {
		return routes, nil
	}
	err := GetDB(ctx, r.db).
		Where("uri IN ? AND method IN ? AND is_active = ? AND is_deleted = ?", uris, methods, true, false).
		Find(&routes).Error
	return routes, translate(err)
}

func (r *projectRouteRepository) FindByURIMethod(ctx context.Context, uri, method string) (*model.ProjectRoute, error) {
	var route model.ProjectRoute
	err := GetDB(ctx, r.db).
		Where("uri = ? AND method = ? AND is_active = ? AND is_deleted = ?", uri, method, true, false).
		Take(&route).Error
	if err != nil {
		return nil, translate(err)
	}
	return &route, nil
}

// InsertMissing relies on the (uri, method) unique index to skip existing routes
func (r *projectRouteRepository) InsertMissing(ctx context.Context, routes []model.ProjectRoute) (int64, error) {
	if len(routes) == 0 {
		return 0, nil
	}
	res := GetDB(ctx, r.db).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&routes, insertBatchSize)
	return res.RowsAffected, translate(res.Error)
}
