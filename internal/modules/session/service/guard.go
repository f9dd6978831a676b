package service

import (
	"strings"

	"anoa.com/notifiq/internal/entity"
)

// Decision is the outcome of a route guard.
type Decision struct {
	Allowed  bool   `json:"allowed"`
	Redirect string `json:"redirect,omitempty"`
}

var publicRoutes = map[string]bool{
	"/":        true,
	"/landing": true,
	"/login":   true,
	"/contact": true,
}

var memberRoutes = map[string]bool{
	"/admin":   true,
	"/viewer":  true,
	"/profile": true,
}

// Guard decides whether viewer may open path. Unknown paths go home.
func Guard(path string, viewer entity.Viewer) Decision {
	path = normalizePath(path)

	switch {
	case publicRoutes[path]:
		return Decision{Allowed: true}
	case memberRoutes[path]:
		if !viewer.IsAuthenticated() {
			return Decision{Redirect: "/login"}
		}
		return Decision{Allowed: true}
	case path == "/super":
		if !viewer.IsSuperAdmin() {
			return Decision{Redirect: "/"}
		}
		return Decision{Allowed: true}
	default:
		return Decision{Redirect: "/"}
	}
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(strings.TrimSpace(path), "/")
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.ToLower(path)
}

// HomeRoute is where a viewer lands after signing in.
func HomeRoute(viewer entity.Viewer) string {
	switch {
	case !viewer.IsAuthenticated():
		return "/login"
	case viewer.IsSuperAdmin():
		return "/super"
	case !viewer.HasCollege():
		return "/login"
	case viewer.CanWrite():
		return "/admin"
	default:
		return "/viewer"
	}
}
