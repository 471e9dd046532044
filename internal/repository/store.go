package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cmsbackend/internal/apperr"
	"cmsbackend/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the document storage contract every entity is served through
type Store[T any] interface {
	FindMany(ctx context.Context, filter Filter) ([]T, error)
	FindOne(ctx context.Context, filter Filter) (*T, error)
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Create(ctx context.Context, doc *T) error
	CreateMany(ctx context.Context, docs []T) (int64, error)
	UpdateOne(ctx context.Context, filter Filter, patch map[string]interface{}, prepare func(*T) error) (*T, error)
	UpdateMany(ctx context.Context, filter Filter, patch map[string]interface{}) (int64, error)
	DeleteOne(ctx context.Context, filter Filter) (*T, error)
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
	Paginate(ctx context.Context, filter Filter, params pagination.Params) (*pagination.Page[T], error)
	ValidatePatch(patch map[string]interface{}) (map[string]interface{}, error)
}

type store[T any] struct {
	db     *gorm.DB
	fields *fieldIndex
}

// NewStore builds a Store for the model type T
func NewStore[T any](db *gorm.DB) (Store[T], error) {
	idx, err := newFieldIndex(db, new(T))
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return &store[T]{db: db, fields: idx}, nil
}

// MustStore is NewStore for wiring code where a schema error is a programming bug
func MustStore[T any](db *gorm.DB) Store[T] {
	s, err := NewStore[T](db)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *store[T]) scoped(ctx context.Context, filter Filter) (*gorm.DB, error) {
	exprs, err := s.fields.where(filter)
	if err != nil {
		return nil, err
	}
	q := GetDB(ctx, s.db).Model(new(T))
	if len(exprs) > 0 {
		q = q.Clauses(clause.Where{Exprs: exprs})
	}
	return q, nil
}

func (s *store[T]) FindMany(ctx context.Context, filter Filter) ([]T, error) {
	q, err := s.scoped(ctx, filter)
	if err != nil {
		return nil, err
	}
	var docs []T
	if err := q.Find(&docs).Error; err != nil {
		return nil, translate(err)
	}
	return docs, nil
}

func (s *store[T]) FindOne(ctx context.Context, filter Filter) (*T, error) {
	q, err := s.scoped(ctx, filter)
	if err != nil {
		return nil, err
	}
	var doc T
	if err := q.Take(&doc).Error; err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

func (s *store[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	return s.FindOne(ctx, Filter{"id": id})
}

func (s *store[T]) Count(ctx context.Context, filter Filter) (int64, error) {
	q, err := s.scoped(ctx, filter)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, translate(err)
	}
	return total, nil
}

func (s *store[T]) Create(ctx context.Context, doc *T) error {
	return translate(GetDB(ctx, s.db).Create(doc).Error)
}

func (s *store[T]) CreateMany(ctx context.Context, docs []T) (int64, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	res := GetDB(ctx, s.db).Create(&docs)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

// UpdateOne merges the patch into the matched document and saves it whole,
// so serialized columns go through their serializers
func (s *store[T]) UpdateOne(ctx context.Context, filter Filter, patch map[string]interface{}, prepare func(*T) error) (*T, error) {
	clean, err := s.fields.sanitizePatch(patch)
	if err != nil {
		return nil, err
	}
	doc, err := s.FindOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(clean)
	if err != nil {
		return nil, apperr.Validation("invalid patch: %v", err)
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, apperr.Validation("invalid patch: %v", err)
	}
	if prepare != nil {
		if err := prepare(doc); err != nil {
			return nil, err
		}
	}
	if err := GetDB(ctx, s.db).Omit(clause.Associations).Save(doc).Error; err != nil {
		return nil, translate(err)
	}
	return doc, nil
}

// UpdateMany returns the number of affected rows only
func (s *store[T]) UpdateMany(ctx context.Context, filter Filter, patch map[string]interface{}) (int64, error) {
	if len(filter) == 0 {
		return 0, apperr.Validation("filter is required")
	}
	cols, err := s.fields.columns(patch)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, apperr.Validation("nothing to update")
	}
	q, err := s.scoped(ctx, filter)
	if err != nil {
		return 0, err
	}
	res := q.Updates(cols)
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (s *store[T]) DeleteOne(ctx context.Context, filter Filter) (*T, error) {
	doc, err := s.FindOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := GetDB(ctx, s.db).Delete(doc).Error; err != nil {
		return nil, translate(err)
	}
	return doc, nil
}

func (s *store[T]) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, apperr.Validation("filter is required")
	}
	q, err := s.scoped(ctx, filter)
	if err != nil {
		return 0, err
	}
	res := q.Delete(new(T))
	if res.Error != nil {
		return 0, translate(res.Error)
	}
	return res.RowsAffected, nil
}

func (s *store[T]) Paginate(ctx context.Context, filter Filter, params pagination.Params) (*pagination.Page[T], error) {
	total, err := s.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	q, err := s.scoped(ctx, filter)
	if err != nil {
		return nil, err
	}
	order := clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: "created_at"}}
	if params.Sort != "" {
		if order, err = s.fields.order(params.Sort); err != nil {
			return nil, err
		}
	}
	q = q.Order(order)
	if !params.Disabled {
		q = q.Offset(params.Offset).Limit(params.Limit)
	}

	var docs []T
	if err := q.Find(&docs).Error; err != nil {
		return nil, translate(err)
	}
	return &pagination.Page[T]{Data: docs, Paginator: pagination.NewMeta(params, total, len(docs))}, nil
}

func (s *store[T]) ValidatePatch(patch map[string]interface{}) (map[string]interface{}, error) {
	return s.fields.sanitizePatch(patch)
}

// translate maps gorm errors onto the shared taxonomy
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", apperr.ErrDuplicate, err)
	case errors.Is(err, gorm.ErrMissingWhereClause):
		return apperr.Validation("filter is required")
	}
	return err
}
