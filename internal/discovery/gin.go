package discovery

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// GinLister lists the routes of a gin engine. When Prefixes is set only
// routes under one of them are reported.
type GinLister struct {
	Engine   *gin.Engine
	Prefixes []string
}

func NewGinLister(engine *gin.Engine, prefixes ...string) *GinLister {
	return &GinLister{Engine: engine, Prefixes: prefixes}
}

func (l *GinLister) ListRegisteredRoutes() []Route {
	root := NewTree("")
	for _, info := range l.Engine.Routes() {
		if !l.accepts(info.Path) {
			continue
		}
		root.Handle(info.Path, info.Method)
	}
	return Walk(root)
}

func (l *GinLister) accepts(path string) bool {
	if len(l.Prefixes) == 0 {
		return true
	}
	for _, p := range l.Prefixes {
		if path == p || strings.HasPrefix(path, strings.TrimRight(p, "/")+"/") {
			return true
		}
	}
	return false
}
