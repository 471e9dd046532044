// Package discovery lists the (path, method) pairs a router actually serves.
package discovery

import (
	"strings"
)

// Route is one concatenated path with the methods registered on it
type Route struct {
	Path    string
	Methods []string
}

// Endpoint is a single (path, method) pair
type Endpoint struct {
	Path   string
	Method string
}

// Lister is implemented once per router framework
type Lister interface {
	ListRegisteredRoutes() []Route
}

// Node is a router mounted at a path segment, holding leaf routes and sub-routers
type Node interface {
	Segment() string
	Leaves() []Route
	Children() []Node
}

// Walk traverses the router tree depth first, concatenating mount segments.
// Methods are grouped per concatenated path in first-seen order; a path
// reachable through several mounts shows up once per distinct full path.
func Walk(root Node) []Route {
	var (
		out   []Route
		index = make(map[string]int)
	)
	var visit func(n Node, prefix string)
	visit = func(n Node, prefix string) {
		base := join(prefix, n.Segment())
		for _, leaf := range n.Leaves() {
			full := join(base, leaf.Path)
			pos, ok := index[full]
			if !ok {
				pos = len(out)
				index[full] = pos
				out = append(out, Route{Path: full})
			}
			out[pos].Methods = appendMissing(out[pos].Methods, leaf.Methods...)
		}
		for _, child := range n.Children() {
			visit(child, base)
		}
	}
	visit(root, "")
	return out
}

// Collapse flattens routes into unique (path, method) pairs in first-seen order
func Collapse(routes []Route) []Endpoint {
	seen := make(map[Endpoint]bool)
	var out []Endpoint
	for _, r := range routes {
		for _, m := range r.Methods {
			ep := Endpoint{Path: r.Path, Method: strings.ToUpper(m)}
			if seen[ep] {
				continue
			}
			seen[ep] = true
			out = append(out, ep)
		}
	}
	return out
}

func appendMissing(methods []string, add ...string) []string {
	for _, m := range add {
		m = strings.ToUpper(m)
		found := false
		for _, existing := range methods {
			if existing == m {
				found = true
				break
			}
		}
		if !found {
			methods = append(methods, m)
		}
	}
	return methods
}

// join concatenates two path fragments with exactly one slash between them
func join(prefix, segment string) string {
	segment = strings.Trim(segment, "/")
	prefix = strings.TrimRight(prefix, "/")
	if segment == "" {
		if prefix == "" {
			return "/"
		}
		return prefix
	}
	return prefix + "/" + segment
}
