// Package router holds the gateway's declarative path-prefix to
// broker-routing-key table (spec §4.5) and the chi assembly that wires
// filters, the Auth Filter, and the Bridge into one HTTP server.
package router

import "strings"

// Route maps one path prefix to the broker routing key every request
// under it is published with.
type Route struct {
	Prefix     string
	RoutingKey string
}

// Table is the gateway's static routing table. Route order does not
// matter: Resolve picks the longest matching prefix. Unknown prefixes
// resolve to ("", false) and the caller returns
// 404, per spec §4.5's "no matching prefix" edge case.
type Table struct {
	routes []Route
}

// NewTable builds a Table from routes, in the order given.
func NewTable(routes []Route) *Table {
	return &Table{routes: routes}
}

// DefaultTable is the routing table spec §4.5 names explicitly.
func DefaultTable() *Table {
	return NewTable([]Route{
		{Prefix: "/api/auth/", RoutingKey: "auth.request"},
		{Prefix: "/api/recipes/", RoutingKey: "recipe.request"},
		{Prefix: "/api/account/", RoutingKey: "account.request"},
	})
}

// Resolve returns the routing key for path's longest matching prefix.
func (t *Table) Resolve(path string) (string, bool) {
	best := ""
	bestKey := ""
	for _, route := range t.routes {
		if strings.HasPrefix(path, route.Prefix) && len(route.Prefix) > len(best) {
			best = route.Prefix
			bestKey = route.RoutingKey
		}
	}
	if best == "" {
		return "", false
	}
	return bestKey, true
}
