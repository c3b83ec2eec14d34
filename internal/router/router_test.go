package router

import "testing"

func TestResolveMatchesKnownPrefixes(t *testing.T) {
	table := DefaultTable()
	cases := map[string]string{
		"/api/auth/login":     "auth.request",
		"/api/recipes/42":     "recipe.request",
		"/api/account/me":     "account.request",
	}
	for path, want := range cases {
		got, ok := table.Resolve(path)
		if !ok || got != want {
			t.Errorf("Resolve(%q) = (%q, %v), want (%q, true)", path, got, ok, want)
		}
	}
}

func TestResolveRejectsUnknownPrefix(t *testing.T) {
	table := DefaultTable()
	if _, ok := table.Resolve("/api/unknown/thing"); ok {
		t.Fatalf("expected no match for unknown prefix")
	}
}

func TestResolvePrefersLongestMatch(t *testing.T) {
	table := NewTable([]Route{
		{Prefix: "/api/", RoutingKey: "generic.request"},
		{Prefix: "/api/recipes/", RoutingKey: "recipe.request"},
	})
	got, ok := table.Resolve("/api/recipes/42")
	if !ok || got != "recipe.request" {
		t.Fatalf("Resolve = (%q, %v), want (recipe.request, true)", got, ok)
	}
}
