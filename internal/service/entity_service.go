package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"cmsbackend/internal/apperr"
	"cmsbackend/internal/repository"
	"cmsbackend/internal/websocket"
	"cmsbackend/pkg/pagination"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Entity change actions published to the hub
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionSoftDelete = "softDelete"
	ActionDelete     = "delete"
)

// EventPublisher receives entity change events
type EventPublisher interface {
	Publish(e websocket.Event)
}

// document is satisfied by pointers to every model embedding model.Base
type document interface {
	GetID() uuid.UUID
	SetAddedBy(id *uuid.UUID)
	SetUpdatedBy(id *uuid.UUID)
}

// --- DTOs ---

type ListRequest struct {
	Query       repository.Filter  `json:"query"`
	Options     pagination.Options `json:"options"`
	IsCountOnly bool               `json:"isCountOnly"`
}

type CountRequest struct {
	Where repository.Filter `json:"where"`
}

// BulkCreateRequest items are validated by the service after normalization
type BulkCreateRequest[T any] struct {
	Data []T `json:"data" binding:"required,min=1"`
}

type BulkUpdateRequest struct {
	Filter repository.Filter      `json:"filter" binding:"required"`
	Data   map[string]interface{} `json:"data" binding:"required"`
}

type IDsRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1"`
}

// EntityHooks customize an EntityService per entity
type EntityHooks[T any] struct {
	// Normalize rewrites a document into its stored form before validation
	Normalize func(doc *T)
	// BeforeSave runs after validation, before a create or update is written;
	// patch is nil on create
	BeforeSave func(ctx context.Context, doc *T, patch map[string]interface{}) error
	// CheckPatch may reject fields of a single or bulk update
	CheckPatch func(patch map[string]interface{}) error
	// CheckBulkPatch may reject fields of a bulk update
	CheckBulkPatch func(patch map[string]interface{}) error
	// NormalizePatch rewrites bulk update values into their stored form
	NormalizePatch func(patch map[string]interface{}) error
	// Cascade removes or soft deletes the dependents of the given parents
	Cascade CascadeFunc
	// AfterChange runs after every committed mutation
	AfterChange func(ctx context.Context) error
}

// --- Interface ---

// EntityService is the generic CRUD surface of one entity
type EntityService[T any] interface {
	Name() string
	Create(ctx context.Context, actor *uuid.UUID, doc *T) (*T, error)
	CreateMany(ctx context.Context, actor *uuid.UUID, docs []T) (int64, error)
	List(ctx context.Context, req ListRequest) (*pagination.Page[T], error)
	Count(ctx context.Context, where repository.Filter) (int64, error)
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Update(ctx context.Context, actor *uuid.UUID, id uuid.UUID, patch map[string]interface{}) (*T, error)
	UpdateMany(ctx context.Context, actor *uuid.UUID, filter repository.Filter, patch map[string]interface{}) (int64, error)
	SoftDelete(ctx context.Context, actor *uuid.UUID, id uuid.UUID) (*T, error)
	SoftDeleteMany(ctx context.Context, actor *uuid.UUID, ids []uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (*T, error)
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type entityService[T any] struct {
	name      string
	store     repository.Store[T]
	txm       repository.TransactionManager
	hooks     EntityHooks[T]
	publisher EventPublisher
	validate  *validator.Validate
	log       logrus.FieldLogger
}

// NewEntityService wires a store into the generic CRUD service. publisher may be nil.
func NewEntityService[T any](name string, store repository.Store[T], txm repository.TransactionManager, hooks EntityHooks[T], publisher EventPublisher, log logrus.FieldLogger) EntityService[T] {
	return &entityService[T]{
		name:      name,
		store:     store,
		txm:       txm,
		hooks:     hooks,
		publisher: publisher,
		validate:  newValidator(),
		log:       log.WithField("entity", name),
	}
}

// newValidator reads the same "binding" tags gin validates request bodies with
func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// --- Implementation ---

func (s *entityService[T]) Name() string {
	return s.name
}

func (s *entityService[T]) check(doc *T) error {
	err := s.validate.Struct(doc)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
		return apperr.Validation("Invalid values in parameters, %s", strings.Join(parts, "; "))
	}
	return apperr.Validation("%v", err)
}

// prepare normalizes then validates a document about to be written
func (s *entityService[T]) prepare(doc *T) error {
	if s.hooks.Normalize != nil {
		s.hooks.Normalize(doc)
	}
	return s.check(doc)
}

func (s *entityService[T]) Create(ctx context.Context, actor *uuid.UUID, doc *T) (*T, error) {
	if err := s.prepare(doc); err != nil {
		return nil, err
	}
	asDocument(doc).SetAddedBy(actor)
	if s.hooks.BeforeSave != nil {
		if err := s.hooks.BeforeSave(ctx, doc, nil); err != nil {
			return nil, err
		}
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, err
	}
	s.changed(ctx, ActionCreate, asDocument(doc).GetID())
	return doc, nil
}

func (s *entityService[T]) CreateMany(ctx context.Context, actor *uuid.UUID, docs []T) (int64, error) {
	if len(docs) == 0 {
		return 0, apperr.Validation("data must contain at least one record")
	}
	for i := range docs {
		if err := s.prepare(&docs[i]); err != nil {
			return 0, fmt.Errorf("data[%d]: %w", i, err)
		}
		asDocument(&docs[i]).SetAddedBy(actor)
		if s.hooks.BeforeSave != nil {
			if err := s.hooks.BeforeSave(ctx, &docs[i], nil); err != nil {
				return 0, err
			}
		}
	}
	n, err := s.store.CreateMany(ctx, docs)
	if err != nil {
		return 0, err
	}
	ids := make([]uuid.UUID, len(docs))
	for i := range docs {
		ids[i] = asDocument(&docs[i]).GetID()
	}
	s.changed(ctx, ActionCreate, ids...)
	return n, nil
}

func (s *entityService[T]) List(ctx context.Context, req ListRequest) (*pagination.Page[T], error) {
	return s.store.Paginate(ctx, req.Query, pagination.Parse(req.Options))
}

func (s *entityService[T]) Count(ctx context.Context, where repository.Filter) (int64, error) {
	return s.store.Count(ctx, where)
}

func (s *entityService[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	return s.store.FindByID(ctx, id)
}

// Update merges the patch into the stored row; the merged row must still
// pass validation
func (s *entityService[T]) Update(ctx context.Context, actor *uuid.UUID, id uuid.UUID, patch map[string]interface{}) (*T, error) {
	clean, err := s.store.ValidatePatch(patch)
	if err != nil {
		return nil, err
	}
	if s.hooks.CheckPatch != nil {
		if err := s.hooks.CheckPatch(clean); err != nil {
			return nil, err
		}
	}
	doc, err := s.store.UpdateOne(ctx, repository.Filter{"id": id}, clean, func(doc *T) error {
		if err := s.prepare(doc); err != nil {
			return err
		}
		asDocument(doc).SetUpdatedBy(actor)
		if s.hooks.BeforeSave != nil {
			return s.hooks.BeforeSave(ctx, doc, clean)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, ActionUpdate, id)
	return doc, nil
}

// UpdateMany returns the number of matched rows only. The patch is written
// as is, so NormalizePatch must produce stored values.
func (s *entityService[T]) UpdateMany(ctx context.Context, actor *uuid.UUID, filter repository.Filter, patch map[string]interface{}) (int64, error) {
	data, err := s.store.ValidatePatch(patch)
	if err != nil {
		return 0, err
	}
	for _, check := range []func(map[string]interface{}) error{s.hooks.CheckPatch, s.hooks.CheckBulkPatch, s.hooks.NormalizePatch} {
		if check == nil {
			continue
		}
		if err := check(data); err != nil {
			return 0, err
		}
	}
	if len(data) == 0 {
		return 0, apperr.Validation("nothing to update")
	}
	data["updatedBy"] = actor

	n, err := s.store.UpdateMany(ctx, filter, data)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.changed(ctx, ActionUpdate)
	}
	return n, nil
}

func (s *entityService[T]) SoftDelete(ctx context.Context, actor *uuid.UUID, id uuid.UUID) (*T, error) {
	var doc *T
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		doc, err = s.store.UpdateOne(txCtx, repository.Filter{"id": id}, map[string]interface{}{"isDeleted": true}, func(doc *T) error {
			asDocument(doc).SetUpdatedBy(actor)
			return nil
		})
		if err != nil {
			return err
		}
		return s.cascade(txCtx, []uuid.UUID{id}, true, actor)
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, ActionSoftDelete, id)
	return doc, nil
}

func (s *entityService[T]) SoftDeleteMany(ctx context.Context, actor *uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, apperr.Validation("ids must contain at least one id")
	}
	var n int64
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		n, err = s.store.UpdateMany(txCtx, repository.Filter{"id": ids}, map[string]interface{}{
			"isDeleted": true,
			"updatedBy": actor,
		})
		if err != nil {
			return err
		}
		return s.cascade(txCtx, ids, true, actor)
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.changed(ctx, ActionSoftDelete, ids...)
	}
	return n, nil
}

// Delete removes the row and its dependents in one transaction
func (s *entityService[T]) Delete(ctx context.Context, id uuid.UUID) (*T, error) {
	var doc *T
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.cascade(txCtx, []uuid.UUID{id}, false, nil); err != nil {
			return err
		}
		var err error
		doc, err = s.store.DeleteOne(txCtx, repository.Filter{"id": id})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, ActionDelete, id)
	return doc, nil
}

func (s *entityService[T]) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, apperr.Validation("ids must contain at least one id")
	}
	var n int64
	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.cascade(txCtx, ids, false, nil); err != nil {
			return err
		}
		var err error
		n, err = s.store.DeleteMany(txCtx, repository.Filter{"id": ids})
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.changed(ctx, ActionDelete, ids...)
	}
	return n, nil
}

func (s *entityService[T]) cascade(ctx context.Context, ids []uuid.UUID, soft bool, actor *uuid.UUID) error {
	if s.hooks.Cascade == nil {
		return nil
	}
	return s.hooks.Cascade(ctx, ids, soft, actor)
}

// changed runs the post-commit side effects of a mutation
func (s *entityService[T]) changed(ctx context.Context, action string, ids ...uuid.UUID) {
	if s.hooks.AfterChange != nil {
		if err := s.hooks.AfterChange(ctx); err != nil {
			s.log.WithError(err).Warn("post-change hook failed")
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(websocket.Event{Entity: s.name, Action: action, IDs: ids})
	}
}

func asDocument[T any](doc *T) document {
	d, ok := any(doc).(document)
	if !ok {
		panic(fmt.Sprintf("service: %T does not embed model.Base", doc))
	}
	return d
}
