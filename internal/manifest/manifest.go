// Package manifest loads the desired permission state the bootstrap converges to.
package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed permissions.yaml
var defaultManifest []byte

// Manifest is the declarative permission catalogue
type Manifest struct {
	Roles         []string               `yaml:"roles"`
	UserTypeRoles map[int]string         `yaml:"userTypeRoles"`
	DefaultRole   string                 `yaml:"defaultRole"`
	Users         []SeedUser             `yaml:"users"`
	ActionSets    map[string][]Action    `yaml:"actionSets"`
	Grants        []Grant                `yaml:"grants"`
	Extra         map[string]interface{} `yaml:",inline"`
}

// SeedUser is a principal created and assigned a role at bootstrap
type SeedUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	UserType int    `yaml:"userType"`
}

// Action is a route suffix relative to a resource
type Action struct {
	Path   string `yaml:"path"`
	Method string `yaml:"method"`
}

// Grant is either an explicit route/method pair or a cross product of
// prefix, resources and action sets
type Grant struct {
	Route      string   `yaml:"route"`
	Method     string   `yaml:"method"`
	Prefix     string   `yaml:"prefix"`
	Resources  []string `yaml:"resources"`
	ActionSets []string `yaml:"actionSets"`
	Roles      []string `yaml:"roles"`
}

// Triple is one desired (route, role, method) grant
type Triple struct {
	Route  string
	Role   string
	Method string
}

// Default returns the manifest embedded in the binary
func Default() (*Manifest, error) {
	return Parse(defaultManifest)
}

// Load reads the manifest at path, or the embedded default when path is empty
func Load(path string) (*Manifest, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: decode: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the structure only; unknown roles or routes are resolved
// (and reported) by the seeder
func (m *Manifest) Validate() error {
	if len(m.Extra) > 0 {
		keys := make([]string, 0, len(m.Extra))
		for k := range m.Extra {
			keys = append(keys, k)
		}
		return fmt.Errorf("manifest: unknown keys %v", keys)
	}
	if len(m.Roles) == 0 {
		return errors.New("manifest: at least one role is required")
	}
	for i, u := range m.Users {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("manifest: users[%d] needs username and password", i)
		}
	}
	for name, actions := range m.ActionSets {
		for i, a := range actions {
			if a.Method == "" {
				return fmt.Errorf("manifest: actionSets.%s[%d] has no method", name, i)
			}
		}
	}
	for i, g := range m.Grants {
		if len(g.Roles) == 0 {
			return fmt.Errorf("manifest: grants[%d] has no roles", i)
		}
		explicit := g.Route != ""
		expanded := g.Prefix != "" || len(g.Resources) > 0 || len(g.ActionSets) > 0
		switch {
		case explicit && expanded:
			return fmt.Errorf("manifest: grants[%d] mixes route with prefix/resources", i)
		case explicit:
			if g.Method == "" {
				return fmt.Errorf("manifest: grants[%d] has no method", i)
			}
		case expanded:
			if len(g.Resources) == 0 || len(g.ActionSets) == 0 {
				return fmt.Errorf("manifest: grants[%d] needs resources and actionSets", i)
			}
			for _, set := range g.ActionSets {
				if _, ok := m.ActionSets[set]; !ok {
					return fmt.Errorf("manifest: grants[%d] references unknown action set %q", i, set)
				}
			}
		default:
			return fmt.Errorf("manifest: grants[%d] is empty", i)
		}
	}
	return nil
}

// RoleCodes returns the uppercase codes of the declared roles
func (m *Manifest) RoleCodes() []string {
	codes := make([]string, 0, len(m.Roles))
	for _, r := range m.Roles {
		codes = append(codes, Code(r))
	}
	return codes
}

// RoleFor maps a user type to its default role code
func (m *Manifest) RoleFor(userType int) string {
	if code, ok := m.UserTypeRoles[userType]; ok {
		return Code(code)
	}
	return Code(m.DefaultRole)
}

// Triples expands every grant into (route, role, method) triples, in
// declaration order and without repeats
func (m *Manifest) Triples() []Triple {
	var out []Triple
	seen := make(map[Triple]bool)
	add := func(route, method string, roles []string) {
		for _, role := range roles {
			t := Triple{Route: route, Role: role, Method: strings.ToUpper(method)}
			if seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	for _, g := range m.Grants {
		if g.Route != "" {
			add(g.Route, g.Method, g.Roles)
			continue
		}
		for _, resource := range g.Resources {
			for _, set := range g.ActionSets {
				for _, a := range m.ActionSets[set] {
					add(joinRoute(g.Prefix, resource, a.Path), a.Method, g.Roles)
				}
			}
		}
	}
	return out
}

// Code normalizes a role name to its code form
func Code(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func joinRoute(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		b.WriteString("/")
		b.WriteString(p)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
