package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cmsbackend/internal/cache"
	"cmsbackend/internal/discovery"
	"cmsbackend/internal/handler"
	"cmsbackend/internal/manifest"
	"cmsbackend/internal/metrics"
	"cmsbackend/internal/model"
	"cmsbackend/internal/repository"
	"cmsbackend/internal/service"
	"cmsbackend/internal/testutil"
	"cmsbackend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	log := testutil.NullLogger()
	db := testutil.NewDB(t)

	mt, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	decisions := cache.NewMemory(time.Minute)
	stores := service.PermissionStores{
		Users:      repository.NewUserRepository(db),
		Roles:      repository.NewRoleRepository(db),
		Routes:     repository.NewProjectRouteRepository(db),
		RouteRoles: repository.NewRouteRoleRepository(db),
		UserRoles:  repository.NewUserRoleRepository(db),
	}
	authz := service.NewAuthorizer(stores, decisions, mt, log)
	auth := service.NewAuthService(stores.Users, repository.NewUserTokenRepository(db), map[model.Platform]string{
		model.PlatformAdmin:  "a",
		model.PlatformClient: "c",
		model.PlatformDevice: "d",
	}, time.Hour)

	router := handler.NewRouter(handler.RouterDeps{
		Auth:       auth,
		Authorizer: authz,
		Catalog:    service.NewCatalog(db, repository.NewTransactionManager(db), authz, nil, log),
		Metrics:    mt,
		Log:        log,
		TokenTTL:   time.Hour,
	})

	m, err := manifest.Default()
	require.NoError(t, err)
	routes := discovery.NewGinLister(router, "/admin", "/client/api/v1", "/device/api/v1").ListRegisteredRoutes()
	report := service.NewPermissionSeeder(stores, m, decisions, mt, log).Seed(ctx, routes)
	require.False(t, report.Failed())
	require.Empty(t, report.Dropped)

	return &testAPI{router: router, db: db}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env response.Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (a *testAPI) login(t *testing.T, prefix, username, password string) string {
	t.Helper()
	w, env := a.do(t, http.MethodPost, prefix+"/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	token, ok := data["token"].(string)
	require.True(t, ok)
	return token
}

func dataMap(t *testing.T, env response.Response) map[string]interface{} {
	t.Helper()
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", env.Data)
	return data
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	w, _ := api.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminCRUDFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "/admin", "Virgil.Jacobi19", "H97DmukSybXgJTz")

	w, env := api.do(t, http.MethodPost, "/admin/service/list", token, gin.H{})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.StatusNotFound, env.Status)

	w, env = api.do(t, http.MethodPost, "/admin/service/create", token, gin.H{"title": "Hosting", "description": "managed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	id := dataMap(t, env)["id"].(string)

	w, env = api.do(t, http.MethodGet, "/admin/service/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hosting", dataMap(t, env)["title"])

	w, env = api.do(t, http.MethodPut, "/admin/service/partial-update/"+id, token, gin.H{"title": "Managed hosting"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Managed hosting", dataMap(t, env)["title"])
	assert.Equal(t, "managed", dataMap(t, env)["description"])

	w, env = api.do(t, http.MethodPost, "/admin/service/addBulk", token, gin.H{"data": []gin.H{{"title": "a"}, {"title": "b"}}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, dataMap(t, env)["count"])

	w, env = api.do(t, http.MethodPost, "/admin/service/list", token, gin.H{
		"query":   gin.H{"title": gin.H{"$in": []string{"a", "b"}}},
		"options": gin.H{"sort": "title", "limit": 1},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := dataMap(t, env)
	assert.Len(t, page["data"], 1)
	assert.EqualValues(t, 2, page["paginator"].(map[string]interface{})["itemCount"])

	w, env = api.do(t, http.MethodPost, "/admin/service/list", token, gin.H{"isCountOnly": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, dataMap(t, env)["totalRecords"])

	w, env = api.do(t, http.MethodPost, "/admin/service/count", token, gin.H{"where": gin.H{"title": "a"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, dataMap(t, env)["count"])

	w, env = api.do(t, http.MethodPut, "/admin/service/updateBulk", token, gin.H{"filter": gin.H{"title": "nothing"}, "data": gin.H{"description": "x"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.StatusNotFound, env.Status)

	w, _ = api.do(t, http.MethodPut, "/admin/service/softDelete/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, http.MethodDelete, "/admin/service/delete/"+id, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(t, http.MethodGet, "/admin/service/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = api.do(t, http.MethodGet, "/admin/service/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "invalid objectId.", env.Message)
}

func TestValidationEnvelope(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "/admin", "Virgil.Jacobi19", "H97DmukSybXgJTz")

	w, env := api.do(t, http.MethodPost, "/admin/role/create", token, gin.H{"code": "editor"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, response.StatusValidation, env.Status)

	w, env = api.do(t, http.MethodPost, "/admin/role/create", token, gin.H{"code": "admin", "name": "Again"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "Record already exists with the given unique values", env.Message)

	w, env = api.do(t, http.MethodPost, "/admin/service/addBulk", token, gin.H{"data": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.StatusBadRequest, env.Status)
}

func TestPlatformAuthorization(t *testing.T) {
	api := newTestAPI(t)

	// user type 1 may not log into the admin panel
	w, env := api.do(t, http.MethodPost, "/admin/auth/login", "", gin.H{"username": "Caleb.Erdman69", "password": "QpPCXqEiR8eGjOj"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "you are unable to access this platform", env.Message)

	user := api.login(t, "/client/api/v1", "Caleb.Erdman69", "QpPCXqEiR8eGjOj")

	w, env = api.do(t, http.MethodPost, "/client/api/v1/blog/create", user, gin.H{"title": "hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	id := dataMap(t, env)["id"].(string)

	w, env = api.do(t, http.MethodPut, "/client/api/v1/blog/softDelete/"+id, user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.StatusForbidden, env.Status)
	assert.Equal(t, "You are not authorized to access this resource", env.Message)

	// client tokens are not accepted by the admin platform
	w, _ = api.do(t, http.MethodPost, "/admin/blog/list", user, gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	system := api.login(t, "/device/api/v1", "Andres_Hand", "dnp0LQmyFkM57qw")
	w, _ = api.do(t, http.MethodPut, "/device/api/v1/blog/softDelete/"+id, system, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminOnlyResources(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "/admin", "Virgil.Jacobi19", "H97DmukSybXgJTz")

	w, env := api.do(t, http.MethodPost, "/admin/projectroute/list", admin, gin.H{"options": gin.H{"pagination": false}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, dataMap(t, env)["data"])

	w, env = api.do(t, http.MethodGet, "/admin/auth/me", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := dataMap(t, env)
	assert.Equal(t, "Virgil.Jacobi19", me["username"])
	assert.NotContains(t, me, "password")

	// role endpoints do not exist outside the admin platform
	device := api.login(t, "/device/api/v1", "Caleb.Erdman69", "QpPCXqEiR8eGjOj")
	w, _ = api.do(t, http.MethodPost, "/device/api/v1/role/list", device, gin.H{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRevokingAssignmentDenies(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "/admin", "Virgil.Jacobi19", "H97DmukSybXgJTz")

	w, env := api.do(t, http.MethodPost, "/admin/userrole/list", admin, gin.H{"options": gin.H{"pagination": false}})
	require.Equal(t, http.StatusOK, w.Code)
	var adminUser model.User
	require.NoError(t, api.db.Where("username = ?", "Virgil.Jacobi19").Take(&adminUser).Error)

	var assignment string
	for _, row := range dataMap(t, env)["data"].([]interface{}) {
		r := row.(map[string]interface{})
		if r["userId"] == adminUser.ID.String() {
			assignment = r["id"].(string)
		}
	}
	require.NotEmpty(t, assignment)

	w, _ = api.do(t, http.MethodDelete, "/admin/userrole/delete/"+assignment, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(t, http.MethodPost, "/admin/service/list", admin, gin.H{})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, response.StatusForbidden, env.Status)
}

func TestLogout(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(t, "/admin", "Virgil.Jacobi19", "H97DmukSybXgJTz")

	w, _ := api.do(t, http.MethodPost, "/admin/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := api.do(t, http.MethodPost, "/admin/service/list", token, gin.H{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.StatusUnauthorized, env.Status)
}

func TestProjectRouteWritesAreNormalized(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(t, "/admin", "Virgil.Jacobi19", "H97DmukSybXgJTz")

	w, env := api.do(t, http.MethodPost, "/admin/projectroute/create", admin, gin.H{"uri": "/admin/Extra/", "method": "get"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := dataMap(t, env)
	assert.Equal(t, "/admin/extra", created["uri"])
	assert.Equal(t, "GET", created["method"])
	assert.Equal(t, "_admin_extra", created["route_name"])

	w, env = api.do(t, http.MethodPut, "/admin/projectroute/updateBulk", admin, gin.H{"filter": gin.H{"uri": "/admin/extra"}, "data": gin.H{"method": "delete"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, dataMap(t, env)["count"])

	w, env = api.do(t, http.MethodPut, "/admin/projectroute/updateBulk", admin, gin.H{"filter": gin.H{"uri": "/admin/extra"}, "data": gin.H{"method": "patch"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, response.StatusValidation, env.Status)

	w, _ = api.do(t, http.MethodPut, "/admin/role/updateBulk", admin, gin.H{"filter": gin.H{"code": "USER"}, "data": gin.H{"code": "admin"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var route model.ProjectRoute
	require.NoError(t, api.db.Where("uri = ?", "/admin/extra").Take(&route).Error)
	assert.Equal(t, "DELETE", route.Method)
}
