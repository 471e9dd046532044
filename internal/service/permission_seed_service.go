package service

import (
	"context"
	"fmt"

	"cmsbackend/internal/cache"
	"cmsbackend/internal/discovery"
	"cmsbackend/internal/manifest"
	"cmsbackend/internal/metrics"
	"cmsbackend/internal/model"
	"cmsbackend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Seed step names, also used as log and metric labels
const (
	StepUsers      = "users"
	StepRoles      = "roles"
	StepRoutes     = "routes"
	StepRouteRoles = "route_roles"
	StepUserRoles  = "user_roles"
)

// PermissionStores groups the repositories of the permission tables
type PermissionStores struct {
	Users      repository.UserRepository
	Roles      repository.RoleRepository
	Routes     repository.ProjectRouteRepository
	RouteRoles repository.RouteRoleRepository
	UserRoles  repository.UserRoleRepository
}

// --- DTOs ---

type SeedStepResult struct {
	Step     string `json:"step"`
	Inserted int64  `json:"inserted"`
	Err      error  `json:"-"`
}

// SeedReport lists what each bootstrap step did
type SeedReport struct {
	Steps   []SeedStepResult  `json:"steps"`
	Dropped []manifest.Triple `json:"dropped"`
}

// Step returns the result of the named step
func (r *SeedReport) Step(name string) SeedStepResult {
	for _, s := range r.Steps {
		if s.Step == name {
			return s
		}
	}
	return SeedStepResult{Step: name}
}

// Failed reports whether any step returned an error
func (r *SeedReport) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// --- Interface ---

// PermissionSeeder converges the permission tables to the manifest. Rows are
// only ever inserted, never updated or deleted.
type PermissionSeeder interface {
	Seed(ctx context.Context, routes []discovery.Route) *SeedReport
}

type permissionSeeder struct {
	stores   PermissionStores
	manifest *manifest.Manifest
	cache    cache.DecisionCache
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

func NewPermissionSeeder(stores PermissionStores, m *manifest.Manifest, decisions cache.DecisionCache, mt *metrics.Metrics, log logrus.FieldLogger) PermissionSeeder {
	if decisions == nil {
		decisions = cache.Nop{}
	}
	return &permissionSeeder{stores: stores, manifest: m, cache: decisions, metrics: mt, log: log}
}

// --- Implementation ---

// Seed runs every step in order. A failing step is logged and recorded in
// the report; later steps still run.
func (s *permissionSeeder) Seed(ctx context.Context, routes []discovery.Route) *SeedReport {
	report := &SeedReport{}

	s.run(ctx, report, StepUsers, s.seedUsers)
	s.run(ctx, report, StepRoles, s.seedRoles)
	s.run(ctx, report, StepRoutes, func(ctx context.Context) (int64, error) {
		return s.seedRoutes(ctx, routes)
	})
	s.run(ctx, report, StepRouteRoles, func(ctx context.Context) (int64, error) {
		n, dropped, err := s.seedRouteRoles(ctx)
		report.Dropped = dropped
		return n, err
	})
	s.run(ctx, report, StepUserRoles, s.seedUserRoles)

	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.WithError(err).Warn("failed to invalidate authorization cache after seeding")
	}
	return report
}

func (s *permissionSeeder) run(ctx context.Context, report *SeedReport, step string, fn func(context.Context) (int64, error)) {
	result := SeedStepResult{Step: step}
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.Err = fmt.Errorf("panic: %v", r)
			}
		}()
		result.Inserted, result.Err = fn(ctx)
	}()

	entry := s.log.WithFields(logrus.Fields{"step": step, "inserted": result.Inserted})
	if result.Err != nil {
		entry.WithError(result.Err).Error("permission seed step failed")
	} else {
		entry.Info("permission seed step done")
	}
	s.metrics.Seeded(step, result.Inserted)
	report.Steps = append(report.Steps, result)
}

func (s *permissionSeeder) seedUsers(ctx context.Context) (int64, error) {
	if len(s.manifest.Users) == 0 {
		return 0, nil
	}
	names := make([]string, 0, len(s.manifest.Users))
	for _, u := range s.manifest.Users {
		names = append(names, u.Username)
	}
	existing, err := s.stores.Users.FindByUsernames(ctx, names)
	if err != nil {
		return 0, fmt.Errorf("find seed users: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, u := range existing {
		present[u.Username] = true
	}

	var missing []model.User
	for _, seed := range s.manifest.Users {
		if present[seed.Username] {
			continue
		}
		present[seed.Username] = true
		u := model.User{
			Username: seed.Username,
			Email:    seed.Email,
			Password: seed.Password,
			Name:     seed.Name,
			UserType: seed.UserType,
		}
		if err := u.HashPassword(); err != nil {
			return 0, fmt.Errorf("hash password of %s: %w", seed.Username, err)
		}
		missing = append(missing, u)
	}
	return s.stores.Users.InsertMissing(ctx, missing)
}

func (s *permissionSeeder) seedRoles(ctx context.Context) (int64, error) {
	codes := s.manifest.RoleCodes()
	existing, err := s.stores.Roles.FindByCodes(ctx, codes)
	if err != nil {
		return 0, fmt.Errorf("find roles: %w", err)
	}
	present := make(map[string]bool, len(existing))
	for _, r := range existing {
		present[r.Code] = true
	}

	var missing []model.Role
	for _, name := range s.manifest.Roles {
		code := manifest.Code(name)
		if present[code] {
			continue
		}
		present[code] = true
		missing = append(missing, model.Role{Code: code, Name: name, Weight: 1})
	}
	return s.stores.Roles.InsertMissing(ctx, missing)
}

type routeKey struct {
	uri    string
	method string
}

func (s *permissionSeeder) seedRoutes(ctx context.Context, routes []discovery.Route) (int64, error) {
	var (
		wanted  []routeKey
		seen    = make(map[routeKey]bool)
		uris    []string
		methods []string
		uriSet  = make(map[string]bool)
		methSet = make(map[string]bool)
	)
	for _, ep := range discovery.Collapse(routes) {
		k := routeKey{uri: model.NormalizeURI(ep.Path), method: model.NormalizeMethod(ep.Method)}
		if seen[k] {
			continue
		}
		seen[k] = true
		wanted = append(wanted, k)
		if !uriSet[k.uri] {
			uriSet[k.uri] = true
			uris = append(uris, k.uri)
		}
		if !methSet[k.method] {
			methSet[k.method] = true
			methods = append(methods, k.method)
		}
	}
	if len(wanted) == 0 {
		return 0, nil
	}

	existing, err := s.stores.Routes.FindActive(ctx, uris, methods)
	if err != nil {
		return 0, fmt.Errorf("find routes: %w", err)
	}
	for _, r := range existing {
		delete(seen, routeKey{uri: r.URI, method: r.Method})
	}

	missing := make([]model.ProjectRoute, 0, len(seen))
	for _, k := range wanted {
		if !seen[k] {
			continue
		}
		missing = append(missing, model.ProjectRoute{URI: k.uri, Method: k.method, RouteName: model.RouteName(k.uri)})
	}
	return s.stores.Routes.InsertMissing(ctx, missing)
}

func (s *permissionSeeder) seedRouteRoles(ctx context.Context) (int64, []manifest.Triple, error) {
	triples := s.manifest.Triples()
	if len(triples) == 0 {
		return 0, nil, nil
	}

	var (
		uris, methods, codes []string
		uriSet               = make(map[string]bool)
		methSet              = make(map[string]bool)
		codeSet              = make(map[string]bool)
	)
	for _, t := range triples {
		if u := model.NormalizeURI(t.Route); !uriSet[u] {
			uriSet[u] = true
			uris = append(uris, u)
		}
		if m := model.NormalizeMethod(t.Method); !methSet[m] {
			methSet[m] = true
			methods = append(methods, m)
		}
		if c := manifest.Code(t.Role); !codeSet[c] {
			codeSet[c] = true
			codes = append(codes, c)
		}
	}

	routes, err := s.stores.Routes.FindActive(ctx, uris, methods)
	if err != nil {
		return 0, nil, fmt.Errorf("find routes: %w", err)
	}
	roles, err := s.stores.Roles.FindByCodes(ctx, codes)
	if err != nil {
		return 0, nil, fmt.Errorf("find roles: %w", err)
	}

	routeIDs := make(map[routeKey]uuid.UUID, len(routes))
	for _, r := range routes {
		routeIDs[routeKey{uri: r.URI, method: r.Method}] = r.ID
	}
	roleIDs := make(map[string]uuid.UUID, len(roles))
	for _, r := range roles {
		roleIDs[r.Code] = r.ID
	}

	type pair struct{ route, role uuid.UUID }
	var (
		grants  []model.RouteRole
		dropped []manifest.Triple
		seen    = make(map[pair]bool)
	)
	for _, t := range triples {
		routeID, routeOK := routeIDs[routeKey{uri: model.NormalizeURI(t.Route), method: model.NormalizeMethod(t.Method)}]
		roleID, roleOK := roleIDs[manifest.Code(t.Role)]
		if !routeOK || !roleOK {
			s.log.WithFields(logrus.Fields{
				"route":      t.Route,
				"method":     t.Method,
				"role":       t.Role,
				"routeFound": routeOK,
				"roleFound":  roleOK,
			}).Warn("dropping unresolved route-role grant")
			dropped = append(dropped, t)
			continue
		}
		p := pair{route: routeID, role: roleID}
		if seen[p] {
			continue
		}
		seen[p] = true
		grants = append(grants, model.RouteRole{RouteID: routeID, RoleID: roleID})
	}

	n, err := s.stores.RouteRoles.InsertMissing(ctx, grants)
	return n, dropped, err
}

func (s *permissionSeeder) seedUserRoles(ctx context.Context) (int64, error) {
	if len(s.manifest.Users) == 0 {
		return 0, nil
	}
	names := make([]string, 0, len(s.manifest.Users))
	for _, u := range s.manifest.Users {
		names = append(names, u.Username)
	}
	users, err := s.stores.Users.FindByUsernames(ctx, names)
	if err != nil {
		return 0, fmt.Errorf("find seed users: %w", err)
	}
	byName := make(map[string]model.User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}

	type wanted struct {
		user uuid.UUID
		code string
	}
	var (
		pending []wanted
		codes   []string
		codeSet = make(map[string]bool)
	)
	for _, seed := range s.manifest.Users {
		u, ok := byName[seed.Username]
		if !ok || !u.IsActive || u.IsDeleted || !u.IsPasswordMatch(seed.Password) {
			s.log.WithField("username", seed.Username).Warn("seed principal not resolved, skipping role assignment")
			continue
		}
		code := s.manifest.RoleFor(u.UserType)
		pending = append(pending, wanted{user: u.ID, code: code})
		if !codeSet[code] {
			codeSet[code] = true
			codes = append(codes, code)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	roles, err := s.stores.Roles.FindByCodes(ctx, codes)
	if err != nil {
		return 0, fmt.Errorf("find roles: %w", err)
	}
	roleIDs := make(map[string]uuid.UUID, len(roles))
	for _, r := range roles {
		roleIDs[r.Code] = r.ID
	}

	assignments := make([]model.UserRole, 0, len(pending))
	for _, p := range pending {
		roleID, ok := roleIDs[p.code]
		if !ok {
			s.log.WithFields(logrus.Fields{"userId": p.user, "role": p.code}).Warn("default role not found, skipping assignment")
			continue
		}
		assignments = append(assignments, model.UserRole{UserID: p.user, RoleID: roleID})
	}
	return s.stores.UserRoles.InsertMissing(ctx, assignments)
}
