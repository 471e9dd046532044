package discovery

// Tree is a declarative router tree, handy for describing mounts outside a
// live router
type Tree struct {
	Prefix string
	Routes []Route
	Mounts []*Tree
}

func NewTree(prefix string) *Tree {
	return &Tree{Prefix: prefix}
}

// Handle registers methods on a path relative to the tree prefix
func (t *Tree) Handle(path string, methods ...string) *Tree {
	t.Routes = append(t.Routes, Route{Path: path, Methods: methods})
	return t
}

// Group creates and mounts a child tree
func (t *Tree) Group(prefix string) *Tree {
	child := NewTree(prefix)
	t.Mounts = append(t.Mounts, child)
	return child
}

// Mount attaches an existing tree; the same tree may be mounted more than once
func (t *Tree) Mount(child *Tree) *Tree {
	t.Mounts = append(t.Mounts, child)
	return t
}

func (t *Tree) Segment() string { return t.Prefix }

func (t *Tree) Leaves() []Route { return t.Routes }

func (t *Tree) Children() []Node {
	nodes := make([]Node, len(t.Mounts))
	for i, m := range t.Mounts {
		nodes[i] = m
	}
	return nodes
}

func (t *Tree) ListRegisteredRoutes() []Route {
	return Walk(t)
}
