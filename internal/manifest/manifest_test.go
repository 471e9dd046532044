package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultManifest(t *testing.T) {
	m, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"CLIENT", "USER", "ADMIN", "SYSTEM_USER"}, m.RoleCodes())
	assert.Len(t, m.Users, 3)

	assert.Equal(t, "ADMIN", m.RoleFor(2))
	assert.Equal(t, "USER", m.RoleFor(1))
	assert.Equal(t, "SYSTEM_USER", m.RoleFor(3))
	assert.Equal(t, "SYSTEM_USER", m.RoleFor(42))

	triples := m.Triples()
	assert.Contains(t, triples, Triple{Route: "/admin/service/create", Role: "ADMIN", Method: "POST"})
	assert.Contains(t, triples, Triple{Route: "/admin/role/delete/:id", Role: "ADMIN", Method: "DELETE"})
	assert.Contains(t, triples, Triple{Route: "/device/api/v1/blog/:id", Role: "USER", Method: "GET"})
	assert.NotContains(t, triples, Triple{Route: "/admin/service/delete/:id", Role: "USER", Method: "DELETE"})
	assert.NotContains(t, triples, Triple{Route: "/client/api/v1/role/create", Role: "ADMIN", Method: "POST"})
}

func TestTriplesExplicitAndExpanded(t *testing.T) {
	m, err := Parse([]byte(`
roles: [Admin, User]
actionSets:
  read:
    - { path: "/list", method: post }
grants:
  - route: /admin/service/create
    method: post
    roles: [ADMIN]
  - prefix: /admin/
    resources: [service]
    actionSets: [read]
    roles: [ADMIN, USER]
  - route: /admin/service/create
    method: POST
    roles: [ADMIN]
`))
	require.NoError(t, err)

	assert.Equal(t, []Triple{
		{Route: "/admin/service/create", Role: "ADMIN", Method: "POST"},
		{Route: "/admin/service/list", Role: "ADMIN", Method: "POST"},
		{Route: "/admin/service/list", Role: "USER", Method: "POST"},
	}, m.Triples())
}

func TestParseRejectsInvalidManifests(t *testing.T) {
	cases := map[string]string{
		"no roles":          `grants: []`,
		"unknown key":       "roles: [A]\nrole: [B]",
		"grant no roles":    "roles: [A]\ngrants:\n  - route: /x\n    method: GET",
		"grant no method":   "roles: [A]\ngrants:\n  - route: /x\n    roles: [A]",
		"unknown actionSet": "roles: [A]\ngrants:\n  - prefix: /x\n    resources: [y]\n    actionSets: [nope]\n    roles: [A]",
		"mixed grant":       "roles: [A]\nactionSets: {r: [{path: /l, method: GET}]}\ngrants:\n  - route: /x\n    method: GET\n    prefix: /p\n    resources: [y]\n    actionSets: [r]\n    roles: [A]",
		"user no password":  "roles: [A]\nusers:\n  - username: bob",
		"malformed":         "roles: [A",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("roles: [Editor]\ndefaultRole: editor\n"), 0o600))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"EDITOR"}, m.RoleCodes())
	assert.Equal(t, "EDITOR", m.RoleFor(1))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	def, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, def.Grants)
}
