package service

import (
	"context"
	"fmt"

	"cmsbackend/internal/repository"

	"github.com/google/uuid"
)

// CascadeFunc removes or soft deletes the rows that reference parentIDs
type CascadeFunc func(ctx context.Context, parentIDs []uuid.UUID, soft bool, actor *uuid.UUID) error

// Dependent is a collection whose Field references a parent id
type Dependent struct {
	Name       string
	Field      string
	deleteMany func(ctx context.Context, filter repository.Filter) (int64, error)
	updateMany func(ctx context.Context, filter repository.Filter, patch map[string]interface{}) (int64, error)
}

// DependentOf describes the rows of store whose field holds a parent id
func DependentOf[T any](name string, store repository.Store[T], field string) Dependent {
	return Dependent{Name: name, Field: field, deleteMany: store.DeleteMany, updateMany: store.UpdateMany}
}

// Cascade builds a CascadeFunc over the given dependents, applied in order
func Cascade(deps ...Dependent) CascadeFunc {
	return func(ctx context.Context, parentIDs []uuid.UUID, soft bool, actor *uuid.UUID) error {
		if len(parentIDs) == 0 {
			return nil
		}
		for _, d := range deps {
			filter := repository.Filter{d.Field: parentIDs}
			var err error
			if soft {
				_, err = d.updateMany(ctx, filter, map[string]interface{}{
					"isDeleted": true,
					"updatedBy": actor,
				})
			} else {
				_, err = d.deleteMany(ctx, filter)
			}
			if err != nil {
				return fmt.Errorf("cascade to %s: %w", d.Name, err)
			}
		}
		return nil
	}
}
