package service_test

import (
	"testing"

	"cmsbackend/internal/discovery"
	"cmsbackend/internal/manifest"
	"cmsbackend/internal/repository"
	"cmsbackend/internal/service"
	"cmsbackend/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testManifest = `
roles: [Admin, User]
userTypeRoles:
  1: USER
  2: ADMIN
defaultRole: USER
users:
  - { username: p1, password: secret-one, userType: 2 }
  - { username: p2, password: secret-two, userType: 1 }
actionSets:
  read:
    - { path: "/list", method: post }
grants:
  - prefix: /admin
    resources: [service]
    actionSets: [read]
    roles: [Admin]
  - route: "/admin/service/:id"
    method: get
    roles: [Admin, User]
  - route: /admin/ghost
    method: get
    roles: [Admin]
  - route: /admin/service/list
    method: post
    roles: [Nobody]
`

func loadManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse([]byte(testManifest))
	require.NoError(t, err)
	return m
}

// adminRoutes mirrors a small router: one resource with a mixed case path
func adminRoutes() []discovery.Route {
	root := discovery.NewTree("/admin")
	root.Group("/service").
		Handle("/list", "POST").
		Handle("/:id", "GET").
		Handle("/Create", "post")
	return root.ListRegisteredRoutes()
}

func newStores(db *gorm.DB) service.PermissionStores {
	return service.PermissionStores{
		Users:      repository.NewUserRepository(db),
		Roles:      repository.NewRoleRepository(db),
		Routes:     repository.NewProjectRouteRepository(db),
		RouteRoles: repository.NewRouteRoleRepository(db),
		UserRoles:  repository.NewUserRoleRepository(db),
	}
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

var nullLog = testutil.NullLogger()
