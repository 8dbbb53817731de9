package tui

import (
	"net/url"
	"strings"
)

// RouteName identifies a page
type RouteName int

const (
	RouteNotFound RouteName = iota
	RouteProjects
	RouteNewProject
	RouteProject
	RouteDetail
)

// Canonical paths of the fixed pages
const (
	ProjectsPath   = "/projects"
	NewProjectPath = "/projects/new"
)

// Route is a parsed location
type Route struct {
	Name      RouteName
	ProjectID string
	ErrorID   string
	Raw       string
}

// ProjectRoute is /projects/:projectId
func ProjectRoute(projectID string) Route {
	return Route{Name: RouteProject, ProjectID: projectID}
}

// DetailRoute is /projects/:projectId/error/:errorId
func DetailRoute(projectID, vulnID string) Route {
	return Route{Name: RouteDetail, ProjectID: projectID, ErrorID: vulnID}
}

// ParseRoute maps a path to a route. "/" and "" redirect to /projects;
// trailing slashes are ignored.
func ParseRoute(path string) Route {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return Route{Name: RouteProjects}
	}

	segs := strings.Split(trimmed, "/")
	for i, s := range segs {
		if u, err := url.PathUnescape(s); err == nil {
			segs[i] = u
		}
		if segs[i] == "" {
			return Route{Name: RouteNotFound, Raw: path}
		}
	}

	if segs[0] != "projects" {
		return Route{Name: RouteNotFound, Raw: path}
	}

	switch len(segs) {
	case 1:
		return Route{Name: RouteProjects}
	case 2:
		if segs[1] == "new" {
			return Route{Name: RouteNewProject}
		}
		return ProjectRoute(segs[1])
	case 4:
		if segs[2] == "error" {
			return DetailRoute(segs[1], segs[3])
		}
	}
	return Route{Name: RouteNotFound, Raw: path}
}

// Path renders the route back to its canonical path
func (r Route) Path() string {
	switch r.Name {
	case RouteProjects:
		return ProjectsPath
	case RouteNewProject:
		return NewProjectPath
	case RouteProject:
		return ProjectsPath + "/" + url.PathEscape(r.ProjectID)
	case RouteDetail:
		return ProjectsPath + "/" + url.PathEscape(r.ProjectID) + "/error/" + url.PathEscape(r.ErrorID)
	default:
		return r.Raw
	}
}
