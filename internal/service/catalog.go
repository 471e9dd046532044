package service

import (
	"context"

	"cmsbackend/internal/apperr"
	"cmsbackend/internal/model"
	"cmsbackend/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Catalog holds the CRUD service of every exposed entity
type Catalog struct {
	Users         EntityService[model.User]
	UserTokens    EntityService[model.UserToken]
	Roles         EntityService[model.Role]
	ProjectRoutes EntityService[model.ProjectRoute]
	RouteRoles    EntityService[model.RouteRole]
	UserRoles     EntityService[model.UserRole]

	Services     EntityService[model.Service]
	Portfolios   EntityService[model.Portfolio]
	Partners     EntityService[model.Partner]
	Contents     EntityService[model.Content]
	ContactForms EntityService[model.ContactForm]
	Clients      EntityService[model.Client]
	Chats        EntityService[model.Chat]
	ChatMessages EntityService[model.ChatMessage]
	Blogs        EntityService[model.Blog]
	Langs        EntityService[model.Lang]
	Enterprises  EntityService[model.Enterprise]
	Departments  EntityService[model.Department]
}

// NewCatalog builds the entity services with their cascades. Mutations of
// permission data invalidate the authorizer cache.
func NewCatalog(db *gorm.DB, txm repository.TransactionManager, authz Authorizer, publisher EventPublisher, log logrus.FieldLogger) *Catalog {
	var (
		users         = repository.MustStore[model.User](db)
		userTokens    = repository.MustStore[model.UserToken](db)
		roles         = repository.MustStore[model.Role](db)
		projectRoutes = repository.MustStore[model.ProjectRoute](db)
		routeRoles    = repository.MustStore[model.RouteRole](db)
		userRoles     = repository.MustStore[model.UserRole](db)
		chatMessages  = repository.MustStore[model.ChatMessage](db)
		departments   = repository.MustStore[model.Department](db)
	)

	invalidate := func(ctx context.Context) error {
		if authz == nil {
			return nil
		}
		return authz.Invalidate(ctx)
	}

	return &Catalog{
		Users: NewEntityService("user", users, txm, EntityHooks[model.User]{
			BeforeSave: func(_ context.Context, u *model.User, patch map[string]interface{}) error {
				if _, changed := patch["password"]; patch == nil || changed {
					return u.HashPassword()
				}
				return nil
			},
			CheckBulkPatch: func(patch map[string]interface{}) error {
				if _, ok := patch["password"]; ok {
					return apperr.Validation("password cannot be bulk updated")
				}
				return nil
			},
			Cascade: Cascade(
				DependentOf("userrole", userRoles, "userId"),
				DependentOf("usertokens", userTokens, "userId"),
			),
			AfterChange: invalidate,
		}, publisher, log),
		UserTokens: NewEntityService("usertokens", userTokens, txm, EntityHooks[model.UserToken]{}, publisher, log),
		Roles: NewEntityService("role", roles, txm, EntityHooks[model.Role]{
			Normalize: func(r *model.Role) {
				r.Code = model.RoleCode(r.Code)
			},
			// grants and assignments resolve roles by code
			CheckPatch: rejectFields("cannot be changed once created", "code"),
			Cascade: Cascade(
				DependentOf("routerole", routeRoles, "roleId"),
				DependentOf("userrole", userRoles, "roleId"),
			),
			AfterChange: invalidate,
		}, publisher, log),
		ProjectRoutes: NewEntityService("projectroute", projectRoutes, txm, EntityHooks[model.ProjectRoute]{
			Normalize:      (*model.ProjectRoute).Normalize,
			NormalizePatch: normalizeRoutePatch,
			Cascade:        Cascade(DependentOf("routerole", routeRoles, "routeId")),
			AfterChange:    invalidate,
		}, publisher, log),
		RouteRoles: NewEntityService("routerole", routeRoles, txm, EntityHooks[model.RouteRole]{
			NormalizePatch: normalizeIDPatch("routeId", "roleId"),
			AfterChange:    invalidate,
		}, publisher, log),
		UserRoles: NewEntityService("userrole", userRoles, txm, EntityHooks[model.UserRole]{
			NormalizePatch: normalizeIDPatch("userId", "roleId"),
			AfterChange:    invalidate,
		}, publisher, log),

		Services:     NewEntityService("service", repository.MustStore[model.Service](db), txm, EntityHooks[model.Service]{}, publisher, log),
		Portfolios:   NewEntityService("portfolio", repository.MustStore[model.Portfolio](db), txm, EntityHooks[model.Portfolio]{}, publisher, log),
		Partners:     NewEntityService("partner", repository.MustStore[model.Partner](db), txm, EntityHooks[model.Partner]{}, publisher, log),
		Contents:     NewEntityService("content", repository.MustStore[model.Content](db), txm, EntityHooks[model.Content]{}, publisher, log),
		ContactForms: NewEntityService("contactform", repository.MustStore[model.ContactForm](db), txm, EntityHooks[model.ContactForm]{}, publisher, log),
		Clients:      NewEntityService("client", repository.MustStore[model.Client](db), txm, EntityHooks[model.Client]{}, publisher, log),
		Chats: NewEntityService("chat", repository.MustStore[model.Chat](db), txm, EntityHooks[model.Chat]{
			Cascade: Cascade(DependentOf("chat_message", chatMessages, "groupId")),
		}, publisher, log),
		ChatMessages: NewEntityService("chat_message", chatMessages, txm, EntityHooks[model.ChatMessage]{}, publisher, log),
		Blogs:        NewEntityService("blog", repository.MustStore[model.Blog](db), txm, EntityHooks[model.Blog]{}, publisher, log),
		Langs:        NewEntityService("lang", repository.MustStore[model.Lang](db), txm, EntityHooks[model.Lang]{}, publisher, log),
		Enterprises: NewEntityService("enterprise", repository.MustStore[model.Enterprise](db), txm, EntityHooks[model.Enterprise]{
			Cascade: Cascade(DependentOf("departments", departments, "enterprises")),
		}, publisher, log),
		Departments: NewEntityService("departments", departments, txm, EntityHooks[model.Department]{}, publisher, log),
	}
}
