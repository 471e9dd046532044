package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"cmsbackend/internal/apperr"
	"cmsbackend/internal/model"
	"cmsbackend/internal/repository"
	"cmsbackend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestInsertMissingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	roles := repository.NewRoleRepository(db)
	routes := repository.NewProjectRouteRepository(db)

	rows := func() []model.Role {
		return []model.Role{{Code: "ADMIN", Name: "Admin"}, {Code: "USER", Name: "User"}}
	}
	n, err := roles.InsertMissing(ctx, rows())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = roles.InsertMissing(ctx, rows())
	require.NoError(t, err)
	assert.Zero(t, n)

	found, err := roles.FindByCodes(ctx, []string{"ADMIN", "USER", "MISSING"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	route := func() []model.ProjectRoute {
		return []model.ProjectRoute{{URI: "/admin/service/list", Method: "POST", RouteName: "_admin_service_list"}}
	}
	n, err = routes.InsertMissing(ctx, route())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = routes.InsertMissing(ctx, route())
	require.NoError(t, err)
	assert.Zero(t, n)

	var total int64
	require.NoError(t, db.Model(&model.ProjectRoute{}).Count(&total).Error)
	assert.EqualValues(t, 1, total)
}

func TestInsertMissingOverlappingBatches(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	routes := repository.NewProjectRouteRepository(db)

	// worker i inserts routes i..i+3, so neighbours overlap by three rows
	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int64
		errs     []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var batch []model.ProjectRoute
			for j := i; j < i+4; j++ {
				uri := fmt.Sprintf("/admin/r%d", j)
				batch = append(batch, model.ProjectRoute{URI: uri, Method: "GET", RouteName: model.RouteName(uri)})
			}
			n, err := routes.InsertMissing(ctx, batch)
			mu.Lock()
			defer mu.Unlock()
			inserted += n
			if err != nil {
				errs = append(errs, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.EqualValues(t, workers+3, inserted)

	var total, distinct int64
	require.NoError(t, db.Model(&model.ProjectRoute{}).Count(&total).Error)
	require.NoError(t, db.Model(&model.ProjectRoute{}).Group("uri, method").Count(&distinct).Error)
	assert.EqualValues(t, workers+3, total)
	assert.Equal(t, total, distinct)
}

func TestProjectRouteLookup(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	routes := repository.NewProjectRouteRepository(db)

	_, err := routes.InsertMissing(ctx, []model.ProjectRoute{
		{URI: "/admin/service/list", Method: "POST", RouteName: "a"},
		{URI: "/admin/service/:id", Method: "GET", RouteName: "b"},
		{URI: "/admin/service/list", Method: "GET", RouteName: "c"},
	})
	require.NoError(t, err)

	got, err := routes.FindByURIMethod(ctx, "/admin/service/:id", "GET")
	require.NoError(t, err)
	assert.Equal(t, "b", got.RouteName)

	_, err = routes.FindByURIMethod(ctx, "/admin/service/:id", "DELETE")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	active, err := routes.FindActive(ctx, []string{"/admin/service/list"}, []string{"POST", "GET"})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	require.NoError(t, db.Model(&model.ProjectRoute{}).Where("route_name = ?", "a").Update("is_deleted", true).Error)
	_, err = routes.FindByURIMethod(ctx, "/admin/service/list", "POST")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func grantFixture(t *testing.T, db *gorm.DB) (route model.ProjectRoute, admin, user model.Role) {
	t.Helper()
	route = model.ProjectRoute{URI: "/admin/role/list", Method: "POST", RouteName: "r"}
	admin = model.Role{Code: "ADMIN", Name: "Admin"}
	user = model.Role{Code: "USER", Name: "User"}
	require.NoError(t, db.Create(&route).Error)
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&user).Error)
	return route, admin, user
}

func TestRouteRolesSkipInactiveRoles(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	grants := repository.NewRouteRoleRepository(db)
	route, admin, user := grantFixture(t, db)

	n, err := grants.InsertMissing(ctx, []model.RouteRole{
		{RouteID: route.ID, RoleID: admin.ID},
		{RouteID: route.ID, RoleID: user.ID},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = grants.InsertMissing(ctx, []model.RouteRole{{RouteID: route.ID, RoleID: admin.ID}})
	require.NoError(t, err)
	assert.Zero(t, n)

	ids, err := grants.RoleIDsForRoute(ctx, route.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{admin.ID, user.ID}, ids)

	require.NoError(t, db.Model(&model.Role{}).Where("id = ?", user.ID).Update("is_deleted", true).Error)
	ids, err = grants.RoleIDsForRoute(ctx, route.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{admin.ID}, ids)
}

func TestUserRoles(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	assignments := repository.NewUserRoleRepository(db)
	_, admin, user := grantFixture(t, db)
	principal := uuid.New()

	n, err := assignments.InsertMissing(ctx, []model.UserRole{
		{UserID: principal, RoleID: admin.ID},
		{UserID: principal, RoleID: user.ID},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	ids, err := assignments.RoleIDsForUser(ctx, principal)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{admin.ID, user.ID}, ids)

	removed, err := assignments.Delete(ctx, principal, admin.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	ids, err = assignments.RoleIDsForUser(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{user.ID}, ids)

	none, err := assignments.RoleIDsForUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUserLookup(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)

	n, err := users.InsertMissing(ctx, []model.User{
		{Username: "alice", Email: "alice@example.com", Password: "x", UserType: model.UserTypeAdmin},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = users.InsertMissing(ctx, []model.User{{Username: "alice", Password: "y"}})
	require.NoError(t, err)
	assert.Zero(t, n)

	byName, err := users.GetByLogin(ctx, "alice")
	require.NoError(t, err)
	byEmail, err := users.GetByLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, byName.ID, byEmail.ID)
	assert.Equal(t, "x", byEmail.Password)

	_, err = users.GetByLogin(ctx, "bob")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	found, err := users.FindByUsernames(ctx, []string{"alice", "bob"})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestUserLoginState(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	users := repository.NewUserRepository(db)

	_, err := users.InsertMissing(ctx, []model.User{{Username: "alice", Password: "x"}})
	require.NoError(t, err)
	alice, err := users.GetByLogin(ctx, "alice")
	require.NoError(t, err)

	until := time.Now().Add(2 * time.Minute).Truncate(time.Second)
	require.NoError(t, users.UpdateLoginState(ctx, alice.ID, 2, &until))
	got, err := users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.LoginRetryLimit)
	require.NotNil(t, got.LoginReactiveTime)
	assert.True(t, until.Equal(*got.LoginReactiveTime))

	require.NoError(t, users.UpdateLoginState(ctx, alice.ID, 0, nil))
	got, err = users.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, got.LoginRetryLimit)
	assert.Nil(t, got.LoginReactiveTime)

	assert.ErrorIs(t, users.UpdateLoginState(ctx, uuid.New(), 1, nil), apperr.ErrNotFound)
}

func TestUserTokens(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	tokens := repository.NewUserTokenRepository(db)
	now := time.Now()

	require.NoError(t, tokens.Create(ctx, &model.UserToken{
		UserID:    uuid.New(),
		Token:     "live",
		Platform:  model.PlatformAdmin,
		ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, tokens.Create(ctx, &model.UserToken{
		UserID:    uuid.New(),
		Token:     "stale",
		Platform:  model.PlatformAdmin,
		ExpiresAt: now.Add(-time.Hour),
	}))

	_, err := tokens.FindValid(ctx, "live", now)
	require.NoError(t, err)
	_, err = tokens.FindValid(ctx, "stale", now)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	n, err := tokens.Expire(ctx, "live")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = tokens.FindValid(ctx, "live", now)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
