package router

import "github.com/gin-gonic/gin"

// Route is one endpoint, relative to its group.
type Route struct {
	Method   string
	Path     string
	Handlers []gin.HandlerFunc
}

// Group is a path prefix with its routes and nested groups. Middleware runs
// for the group's routes and every nested group.
type Group struct {
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
	Children   []Group
}

// Mount registers g under parent.
func (g Group) Mount(parent *gin.RouterGroup) {
	rg := parent.Group(g.Prefix, g.Middleware...)
	for _, r := range g.Routes {
		rg.Handle(r.Method, r.Path, r.Handlers...)
	}
	for _, child := range g.Children {
		child.Mount(rg)
	}
}

// Count is the number of routes in g and its children.
func (g Group) Count() int {
	n := len(g.Routes)
	for _, child := range g.Children {
		n += child.Count()
	}
	return n
}

// Mount attaches groups under /api/<version>. Routes registered directly on
// engine, such as /health, stay outside the API prefix.
func Mount(engine *gin.Engine, version string, groups ...Group) *gin.RouterGroup {
	api := engine.Group("/api/" + version)
	for _, g := range groups {
		g.Mount(api)
	}
	return api
}
