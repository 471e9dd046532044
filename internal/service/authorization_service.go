package service

import (
	"context"
	"errors"
	"fmt"

	"cmsbackend/internal/apperr"
	"cmsbackend/internal/cache"
	"cmsbackend/internal/metrics"
	"cmsbackend/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Deny reasons
const (
	ReasonRouteNotFound    = "route not found"
	ReasonNoRoles          = "no roles"
	ReasonInsufficientRole = "insufficient role"
)

// Decision is the outcome of one authorization check
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Authorizer decides whether a principal may call a route template.
// It is read-only and safe for concurrent use.
type Authorizer interface {
	Authorize(ctx context.Context, principalID uuid.UUID, method, routeTemplate string) (Decision, error)
	Invalidate(ctx context.Context) error
}

type authorizer struct {
	stores  PermissionStores
	cache   cache.DecisionCache
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

func NewAuthorizer(stores PermissionStores, decisions cache.DecisionCache, mt *metrics.Metrics, log logrus.FieldLogger) Authorizer {
	if decisions == nil {
		decisions = cache.Nop{}
	}
	return &authorizer{stores: stores, cache: decisions, metrics: mt, log: log}
}

// Authorize allows the request iff roles(principal) ∩ roles(route) is not empty
func (a *authorizer) Authorize(ctx context.Context, principalID uuid.UUID, method, routeTemplate string) (Decision, error) {
	uri := model.NormalizeURI(routeTemplate)
	method = model.NormalizeMethod(method)
	key := cache.Key(principalID.String(), method, uri)

	// the generation is read before any lookup so a decision computed while
	// an invalidation commits is never cached as current
	gen, genErr := a.cache.Generation(ctx)
	if genErr != nil {
		a.log.WithError(genErr).Warn("authorization cache unavailable")
	} else if e, ok, err := a.cache.Get(ctx, key); err != nil {
		a.log.WithError(err).Warn("authorization cache read failed")
	} else if ok {
		d := Decision{Allowed: e.Allowed, Reason: e.Reason}
		a.metrics.Decision(d.Allowed, d.Reason)
		return d, nil
	}

	d, err := a.decide(ctx, principalID, method, uri)
	if err != nil {
		return Decision{}, err
	}

	if genErr == nil {
		if err := a.cache.Set(ctx, key, gen, cache.Entry{Allowed: d.Allowed, Reason: d.Reason}); err != nil {
			a.log.WithError(err).Warn("authorization cache write failed")
		}
	}
	a.metrics.Decision(d.Allowed, d.Reason)
	return d, nil
}

func (a *authorizer) decide(ctx context.Context, principalID uuid.UUID, method, uri string) (Decision, error) {
	var (
		route     *model.ProjectRoute
		userRoles []uuid.UUID
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := a.stores.Routes.FindByURIMethod(gctx, uri, method)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find route: %w", err)
		}
		route = r
		return nil
	})
	g.Go(func() error {
		ids, err := a.stores.UserRoles.RoleIDsForUser(gctx, principalID)
		if err != nil {
			return fmt.Errorf("find principal roles: %w", err)
		}
		userRoles = ids
		return nil
	})
	if err := g.Wait(); err != nil {
		return Decision{}, err
	}

	if route == nil {
		return Decision{Reason: ReasonRouteNotFound}, nil
	}
	if len(userRoles) == 0 {
		return Decision{Reason: ReasonNoRoles}, nil
	}

	granted, err := a.stores.RouteRoles.RoleIDsForRoute(ctx, route.ID)
	if err != nil {
		return Decision{}, fmt.Errorf("find route roles: %w", err)
	}
	held := make(map[uuid.UUID]struct{}, len(userRoles))
	for _, id := range userRoles {
		held[id] = struct{}{}
	}
	for _, id := range granted {
		if _, ok := held[id]; ok {
			return Decision{Allowed: true}, nil
		}
	}
	return Decision{Reason: ReasonInsufficientRole}, nil
}

func (a *authorizer) Invalidate(ctx context.Context) error {
	return a.cache.Invalidate(ctx)
}
